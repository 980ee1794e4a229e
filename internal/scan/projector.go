package scan

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidProjectionLength is returned when a projector or buffer is
// configured with a maximum projection length below one pixel.
var ErrInvalidProjectionLength = errors.New("projection length must be at least 1")

// Projector converts polar samples to pixel coordinates relative to a fixed
// origin. It is immutable after construction and safe for concurrent use.
type Projector struct {
	maxLength int
	originX   int
	originY   int
}

// NewProjector returns a Projector for the given maximum length and origin.
func NewProjector(maxProjectionLength, originX, originY int) (*Projector, error) {
	if maxProjectionLength < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidProjectionLength, maxProjectionLength)
	}
	return &Projector{
		maxLength: maxProjectionLength,
		originX:   originX,
		originY:   originY,
	}, nil
}

// MaxLength returns the configured maximum projection length.
func (p *Projector) MaxLength() int { return p.maxLength }

// Origin returns the projection origin.
func (p *Projector) Origin() (x, y int) { return p.originX, p.originY }

// IsNoise reports whether a raw distance is at or beyond the projection range
// (or negative) and will therefore be collapsed to the origin.
func (p *Projector) IsNoise(distance int) bool {
	return distance < 0 || distance >= p.maxLength
}

// Project places a sample on the surface. The distance is the hypotenuse of a
// right triangle whose opposite side is the vertical offset above the origin
// and whose adjacent side is the horizontal offset; angles up to 90 degrees
// land left of the origin, larger angles to the right.
//
// Noise readings are projected with distance zero rather than dropped, so
// they still take their place in the window.
func (p *Projector) Project(angleDegrees, distance int) ProjectedPoint {
	if p.IsNoise(distance) {
		distance = 0
	}

	rad := float64(angleDegrees) * math.Pi / 180.0
	hyp := float64(distance)
	// Readings from the rear half fold onto the front arc.
	opposite := math.Abs(hyp * math.Sin(rad))
	adjacent := math.Sqrt(math.Max(0, hyp*hyp-opposite*opposite))

	pt := ProjectedPoint{
		AngleDegrees: angleDegrees,
		AngleRadians: rad,
		Distance:     distance,
		Y:            p.originY - int(opposite),
	}
	if angleDegrees <= 90 {
		pt.X = p.originX - int(adjacent)
	} else {
		pt.X = p.originX + int(adjacent)
	}
	return pt
}
