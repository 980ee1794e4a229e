// Package source produces rangefinder samples from hardware, the network,
// captures or synthetic sweeps.
package source

import (
	"context"

	"github.com/banshee-data/scanview/internal/protocol"
)

// Source delivers samples on out until ctx is done or the input is
// exhausted. Run does not close out; the caller owns the channel.
type Source interface {
	Run(ctx context.Context, out chan<- protocol.Sample) error
}

// Func adapts a function to Source.
type Func func(ctx context.Context, out chan<- protocol.Sample) error

func (f Func) Run(ctx context.Context, out chan<- protocol.Sample) error { return f(ctx, out) }

// emit sends s on out unless ctx is done first.
func emit(ctx context.Context, out chan<- protocol.Sample, s protocol.Sample) error {
	select {
	case out <- s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
