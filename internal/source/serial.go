package source

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/banshee-data/scanview/internal/monitoring"
	"github.com/banshee-data/scanview/internal/protocol"
	"github.com/banshee-data/scanview/internal/serialmux"
)

// SerialSource parses poll lines from a serial mux subscription.
type SerialSource struct {
	mux serialmux.SerialMuxInterface

	lines     atomic.Uint64
	malformed atomic.Uint64
	ignored   atomic.Uint64
}

// NewSerialSource returns a source reading lines from mux. The mux must be
// monitored separately.
func NewSerialSource(mux serialmux.SerialMuxInterface) *SerialSource {
	return &SerialSource{mux: mux}
}

// LineCounts reports lines seen, lines with a malformed poll token and lines
// without one.
func (s *SerialSource) LineCounts() (lines, malformed, ignored uint64) {
	return s.lines.Load(), s.malformed.Load(), s.ignored.Load()
}

// Run returns nil when the mux closes the subscription.
func (s *SerialSource) Run(ctx context.Context, out chan<- protocol.Sample) error {
	id, lines := s.mux.Subscribe()
	defer s.mux.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			s.lines.Add(1)
			samples, err := protocol.ParsePollLine(line)
			switch {
			case errors.Is(err, protocol.ErrNoSamples):
				s.ignored.Add(1)
				continue
			case err != nil:
				s.malformed.Add(1)
				monitoring.Logf("serial: dropping malformed poll data: %v", err)
			}
			for _, sample := range samples {
				if err := emit(ctx, out, sample); err != nil {
					return err
				}
			}
		}
	}
}
