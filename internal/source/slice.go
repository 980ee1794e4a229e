package source

import (
	"context"
	"time"

	"github.com/banshee-data/scanview/internal/protocol"
	"github.com/banshee-data/scanview/internal/timeutil"
)

// SliceSource replays a fixed list of samples, optionally one per Interval.
type SliceSource struct {
	Samples  []protocol.Sample
	Interval time.Duration
	Clock    timeutil.Clock
}

func (s *SliceSource) Run(ctx context.Context, out chan<- protocol.Sample) error {
	clock := s.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	for i, sample := range s.Samples {
		if i > 0 && s.Interval > 0 {
			if err := clock.Sleep(ctx, s.Interval); err != nil {
				return err
			}
		}
		if err := emit(ctx, out, sample); err != nil {
			return err
		}
	}
	return nil
}
