package scan

import (
	"errors"
	"fmt"
	"image"
	"sync"
)

const (
	// DefaultMaxPoints keeps one point per degree of a full rotation.
	DefaultMaxPoints = 360
	// DefaultMaxProjectionLength is the projection range used when none is set.
	DefaultMaxProjectionLength = 2500
	// DefaultTrailWidth is the pen width for trail segments, in pixels.
	DefaultTrailWidth = 2
	// SurfaceMargin is added to the surface on top of the projection range.
	SurfaceMargin = 100
)

// ErrInvalidMaxPoints is returned when the window capacity is below one.
var ErrInvalidMaxPoints = errors.New("max points must be at least 1")

// Config configures a ScanBuffer. Zero values for MaxPoints and TrailWidth
// take their defaults; MaxProjectionLength has no default and must be set.
type Config struct {
	MaxProjectionLength int
	MaxPoints           int
	TrailWidth          int
	Palette             *Palette
	Observer            Observer
}

// Stats counts what a ScanBuffer has seen since construction.
type Stats struct {
	Samples     uint64 `json:"samples"`
	Noise       uint64 `json:"noise"`
	OutOfBounds uint64 `json:"out_of_bounds"`
	Evicted     uint64 `json:"evicted"`
}

// ScanBuffer is the bounded window of projected points and the surface it
// renders into. The surface is owned by the buffer; observers only ever see
// copies of it.
type ScanBuffer struct {
	mu sync.Mutex

	projector  *Projector
	surface    *Surface
	canvas     Canvas
	palette    Palette
	maxPoints  int
	trailWidth int
	observer   Observer

	// ring holds the window in insertion order starting at head.
	ring  []ProjectedPoint
	head  int
	count int

	hasLast      bool
	lastX, lastY int

	seq   uint64
	stats Stats
}

// NewScanBuffer allocates the surface, paints it with the background colour
// and returns an empty buffer.
func NewScanBuffer(cfg Config) (*ScanBuffer, error) {
	if cfg.MaxProjectionLength < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidProjectionLength, cfg.MaxProjectionLength)
	}
	if cfg.MaxPoints == 0 {
		cfg.MaxPoints = DefaultMaxPoints
	}
	if cfg.MaxPoints < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxPoints, cfg.MaxPoints)
	}
	if cfg.TrailWidth <= 0 {
		cfg.TrailWidth = DefaultTrailWidth
	}
	palette := DefaultPalette()
	if cfg.Palette != nil {
		palette = *cfg.Palette
	}

	width, height := SurfaceSize(cfg.MaxProjectionLength)
	originX, originY := Origin(cfg.MaxProjectionLength)
	projector, err := NewProjector(cfg.MaxProjectionLength, originX, originY)
	if err != nil {
		return nil, err
	}

	surface := NewSurface(width, height, palette.Background)
	return &ScanBuffer{
		projector:  projector,
		surface:    surface,
		canvas:     surface,
		palette:    palette,
		maxPoints:  cfg.MaxPoints,
		trailWidth: cfg.TrailWidth,
		observer:   cfg.Observer,
		// One slot of headroom: the window grows by one before it is trimmed.
		ring: make([]ProjectedPoint, cfg.MaxPoints+1),
	}, nil
}

// SurfaceSize returns the surface dimensions for a projection range: wide
// enough for the arc on both sides of the origin, tall enough for its height.
func SurfaceSize(maxProjectionLength int) (width, height int) {
	return 2*maxProjectionLength + SurfaceMargin, maxProjectionLength + SurfaceMargin
}

// Origin returns the projection origin for a projection range: horizontally
// centred, half a margin above the bottom edge.
func Origin(maxProjectionLength int) (x, y int) {
	w, h := SurfaceSize(maxProjectionLength)
	return w / 2, h - SurfaceMargin/2
}

// AddPoint projects a sample, draws it and its trail segment, trims the
// window back to capacity erasing what evicted points drew, and notifies the
// observer.
func (b *ScanBuffer) AddPoint(angleDegrees, distance int) {
	b.mu.Lock()

	b.stats.Samples++
	if b.projector.IsNoise(distance) {
		b.stats.Noise++
	}
	pt := b.projector.Project(angleDegrees, distance)

	if b.drawable(pt.X, pt.Y) {
		b.canvas.SetPixel(pt.X, pt.Y, b.palette.Marker)
	} else {
		b.stats.OutOfBounds++
	}

	if b.hasLast {
		b.canvas.DrawLine(b.lastX, b.lastY, pt.X, pt.Y, b.palette.Trail, b.trailWidth)
		pt.Linked = true
		pt.LinkX, pt.LinkY = b.lastX, b.lastY
	}
	b.lastX, b.lastY = pt.X, pt.Y
	b.hasLast = true

	b.push(pt)
	for b.count > b.maxPoints {
		b.evict()
	}

	b.seq++
	observer := b.observer
	var frame Frame
	if observer != nil && !isIdle(observer) {
		frame = b.frameLocked()
	} else {
		observer = nil
	}
	b.mu.Unlock()

	if observer != nil {
		observer.SurfaceUpdated(frame)
	}
}

// evict removes the oldest point and erases the segment it drew on insertion.
// The new oldest point's segment shares an endpoint with the erased one, so it
// is stroked again to close the gap the erase left.
func (b *ScanBuffer) evict() {
	old := b.pop()
	b.stats.Evicted++
	if !old.Linked {
		return
	}
	b.canvas.DrawLine(old.X, old.Y, old.LinkX, old.LinkY, b.palette.Background, b.trailWidth)

	if b.count == 0 {
		return
	}
	if oldest := b.at(0); oldest.Linked {
		b.canvas.DrawLine(oldest.LinkX, oldest.LinkY, oldest.X, oldest.Y, b.palette.Trail, b.trailWidth)
	}
}

// drawable reports whether (x, y) is inside the surface less a one-pixel
// inset along the top and left edges.
func (b *ScanBuffer) drawable(x, y int) bool {
	return x >= 1 && y >= 1 && x < b.surface.Width() && y < b.surface.Height()
}

func (b *ScanBuffer) push(pt ProjectedPoint) {
	b.ring[(b.head+b.count)%len(b.ring)] = pt
	b.count++
}

func (b *ScanBuffer) pop() ProjectedPoint {
	pt := b.ring[b.head]
	b.ring[b.head] = ProjectedPoint{}
	b.head = (b.head + 1) % len(b.ring)
	b.count--
	return pt
}

func (b *ScanBuffer) at(i int) ProjectedPoint {
	return b.ring[(b.head+i)%len(b.ring)]
}

func isIdle(o Observer) bool {
	i, ok := o.(idler)
	return ok && i.Idle()
}

// SetObserver replaces the observer. A nil observer disables notification.
func (b *ScanBuffer) SetObserver(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observer = o
}

// Len returns the number of points in the window.
func (b *ScanBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// MaxPoints returns the window capacity.
func (b *ScanBuffer) MaxPoints() int { return b.maxPoints }

// Projector returns the buffer's projector.
func (b *ScanBuffer) Projector() *Projector { return b.projector }

// Bounds returns the surface bounds.
func (b *ScanBuffer) Bounds() image.Rectangle { return b.surface.Bounds() }

// Points returns the window, oldest first.
func (b *ScanBuffer) Points() []ProjectedPoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ProjectedPoint, b.count)
	for i := range out {
		out[i] = b.at(i)
	}
	return out
}

// Last returns the most recently inserted point, if any.
func (b *ScanBuffer) Last() (ProjectedPoint, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return ProjectedPoint{}, false
	}
	return b.at(b.count - 1), true
}

// Frame returns the current surface copy together with the sequence number
// and window state it corresponds to.
func (b *ScanBuffer) Frame() Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frameLocked()
}

func (b *ScanBuffer) frameLocked() Frame {
	fr := Frame{Seq: b.seq, Image: b.surface.Snapshot(), Points: b.count}
	if b.count > 0 {
		fr.Last = b.at(b.count - 1)
	}
	return fr
}

// Snapshot returns a copy of the surface.
func (b *ScanBuffer) Snapshot() *image.RGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surface.Snapshot()
}

// Thumbnail returns a scaled copy of the surface.
func (b *ScanBuffer) Thumbnail(maxW, maxH int) *image.RGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surface.Thumbnail(maxW, maxH)
}

// Seq returns the number of completed AddPoint calls.
func (b *ScanBuffer) Seq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}

// Stats returns a copy of the buffer's counters.
func (b *ScanBuffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}
