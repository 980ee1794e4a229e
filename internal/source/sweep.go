package source

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/banshee-data/scanview/internal/protocol"
	"github.com/banshee-data/scanview/internal/timeutil"
)

// ErrInvalidSweep is returned for sweeps with an empty range or a step that
// does not fit inside it.
var ErrInvalidSweep = errors.New("invalid sweep")

// SweepGenerator emulates a servo-mounted rangefinder sweeping back and
// forth between MinAngle and MaxAngle.
type SweepGenerator struct {
	MinAngle int
	MaxAngle int
	Step     int
	// Sweeps is the number of one-way passes to emit; 0 runs until ctx is
	// done.
	Sweeps   int
	Interval time.Duration
	Clock    timeutil.Clock
	// Distance returns the reading at an angle; DefaultRoom when nil.
	Distance func(angle int) int
}

// NewSweepGenerator returns the default 0..180 degree sweep, one step per
// degree.
func NewSweepGenerator() *SweepGenerator {
	return &SweepGenerator{MinAngle: 0, MaxAngle: 180, Step: 1, Interval: 20 * time.Millisecond}
}

// DefaultRoom is a distance profile of a rectangular room 1200 wide with the
// sensor 800 from the far wall, plus a pillar around 60 degrees.
func DefaultRoom(angle int) int {
	rad := float64(angle) * math.Pi / 180
	wall := 800 / math.Max(math.Abs(math.Sin(rad)), 1e-3)
	side := 600 / math.Max(math.Abs(math.Cos(rad)), 1e-3)
	d := math.Min(wall, side)
	if angle >= 55 && angle <= 65 {
		d = 350
	}
	return int(d)
}

func (g *SweepGenerator) Run(ctx context.Context, out chan<- protocol.Sample) error {
	if g.Step <= 0 || g.MaxAngle <= g.MinAngle || g.Step > g.MaxAngle-g.MinAngle {
		return ErrInvalidSweep
	}
	clock := g.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	distance := g.Distance
	if distance == nil {
		distance = DefaultRoom
	}

	angle, dir := g.MinAngle, 1
	for pass := 0; g.Sweeps == 0 || pass < g.Sweeps; {
		s := protocol.Sample{AngleDegrees: protocol.NormaliseAngle(angle), Distance: distance(angle)}
		if err := emit(ctx, out, s); err != nil {
			return err
		}
		if g.Interval > 0 {
			if err := clock.Sleep(ctx, g.Interval); err != nil {
				return err
			}
		}

		next := angle + dir*g.Step
		if next > g.MaxAngle || next < g.MinAngle {
			dir = -dir
			pass++
			next = angle + dir*g.Step
		}
		angle = next
	}
	return nil
}
