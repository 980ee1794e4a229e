package scan

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scanview/internal/timeutil"
)

// lineOp is one DrawLine call seen by recordingCanvas.
type lineOp struct {
	a, b  image.Point
	color color.RGBA
}

// recordingCanvas forwards to a real surface and records every line drawn.
type recordingCanvas struct {
	next  Canvas
	lines []lineOp
}

func (r *recordingCanvas) SetPixel(x, y int, c color.RGBA) { r.next.SetPixel(x, y, c) }

func (r *recordingCanvas) DrawLine(x0, y0, x1, y1 int, c color.RGBA, width int) {
	r.lines = append(r.lines, lineOp{a: image.Pt(x0, y0), b: image.Pt(x1, y1), color: c})
	r.next.DrawLine(x0, y0, x1, y1, c, width)
}

func sameSegment(p, q lineOp) bool {
	return (p.a == q.a && p.b == q.b) || (p.a == q.b && p.b == q.a)
}

func newTestBuffer(t *testing.T, maxLen, maxPoints int) *ScanBuffer {
	t.Helper()
	b, err := NewScanBuffer(Config{MaxProjectionLength: maxLen, MaxPoints: maxPoints})
	require.NoError(t, err)
	return b
}

func TestNewScanBuffer_Validation(t *testing.T) {
	_, err := NewScanBuffer(Config{MaxProjectionLength: 0})
	assert.True(t, errors.Is(err, ErrInvalidProjectionLength))

	_, err = NewScanBuffer(Config{MaxProjectionLength: 10, MaxPoints: -1})
	assert.True(t, errors.Is(err, ErrInvalidMaxPoints))

	b, err := NewScanBuffer(Config{MaxProjectionLength: 10})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxPoints, b.MaxPoints())
	assert.Equal(t, DefaultTrailWidth, b.trailWidth)
	assert.Equal(t, 0, b.Len())
}

func TestNewScanBuffer_SurfaceGeometry(t *testing.T) {
	b := newTestBuffer(t, 2500, 360)
	assert.Equal(t, image.Rect(0, 0, 5100, 2600), b.Bounds())

	ox, oy := b.Projector().Origin()
	assert.Equal(t, 2550, ox)
	assert.Equal(t, 2550, oy)

	snap := b.Snapshot()
	bg := DefaultPalette().Background
	assert.Equal(t, bg, snap.RGBAAt(0, 0))
	assert.Equal(t, bg, snap.RGBAAt(5099, 2599))
}

func TestAddPoint_ConcreteScenario(t *testing.T) {
	b := newTestBuffer(t, 2500, 360)
	ox, oy := b.Projector().Origin()
	p := DefaultPalette()

	b.AddPoint(90, 100)
	first, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, ox, first.X)
	assert.Equal(t, oy-100, first.Y)
	assert.False(t, first.Linked, "first point has nothing to link to")
	assert.Equal(t, p.Marker, b.surface.At(first.X, first.Y))

	b.AddPoint(0, 100)
	second, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, ox-100, second.X)
	assert.Equal(t, oy, second.Y)

	link, linked := second.Link()
	require.True(t, linked)
	assert.Equal(t, first.Pt(), link)

	// The 45° segment between them passes through (ox-50, oy-50).
	assert.Equal(t, p.Trail, b.surface.At(ox-50, oy-50))
	assert.Equal(t, p.Trail, b.surface.At(second.X, second.Y))
	assert.Equal(t, 2, b.Len())
}

func TestAddPoint_WindowBoundAndOrder(t *testing.T) {
	const maxPoints = 10
	b := newTestBuffer(t, 50, maxPoints)

	for i := 1; i <= 25; i++ {
		b.AddPoint((i*7)%180, i)
		want := i
		if want > maxPoints {
			want = maxPoints
		}
		require.Equal(t, want, b.Len(), "after %d insertions", i)
	}

	pts := b.Points()
	require.Len(t, pts, maxPoints)
	for i, pt := range pts {
		assert.Equal(t, 16+i, pt.Distance, "window position %d", i)
	}
	assert.Equal(t, uint64(15), b.Stats().Evicted)
}

func TestAddPoint_EraseMatchesDraw(t *testing.T) {
	b := newTestBuffer(t, 80, 12)
	rec := &recordingCanvas{next: b.surface}
	b.canvas = rec
	p := DefaultPalette()

	for i := 0; i < 100; i++ {
		b.AddPoint((i*23)%181, (i*37)%95)
	}

	var draws, erases []lineOp
	for _, op := range rec.lines {
		switch op.color {
		case p.Trail:
			draws = append(draws, op)
		case p.Background:
			erases = append(erases, op)
		}
	}
	// The first point has no link; every later eviction erases one segment.
	assert.Len(t, erases, 100-12-1)

	for _, e := range erases {
		found := false
		for _, d := range draws {
			if sameSegment(d, e) {
				found = true
				break
			}
		}
		assert.True(t, found, "erase %v->%v has no matching draw", e.a, e.b)
	}
}

func TestAddPoint_EvictionClearsOldestSegment(t *testing.T) {
	b := newTestBuffer(t, 50, 3)
	p := DefaultPalette()
	// Origin is (100, 100) for a 50 pixel range.
	ox, oy := b.Projector().Origin()
	require.Equal(t, 100, ox)
	require.Equal(t, 100, oy)

	b.AddPoint(90, 40)  // #1 (100, 60)
	b.AddPoint(0, 40)   // #2 (60, 100)
	b.AddPoint(180, 40) // #3 (140, 100)
	b.AddPoint(90, 10)  // #4 (100, 90), evicts #1

	assert.Equal(t, []int{40, 40, 10}, distances(b.Points()))
	// #1's marker is gone; the pixel now belongs to #2's live segment.
	assert.NotEqual(t, p.Marker, b.surface.At(100, 60))
	assert.Equal(t, p.Trail, b.surface.At(100, 60))

	b.AddPoint(90, 20) // #5 (100, 80), evicts #2 and erases #1->#2

	assert.Equal(t, []int{40, 10, 20}, distances(b.Points()))
	assert.Equal(t, p.Background, b.surface.At(80, 80), "midpoint of erased segment")
	assert.Equal(t, p.Background, b.surface.At(100, 60), "far end of erased segment")
	assert.Equal(t, p.Trail, b.surface.At(60, 100), "shared endpoint is restored")
	assert.Equal(t, p.Trail, b.surface.At(120, 100), "#2->#3 segment survives")
	assert.Equal(t, p.Trail, b.surface.At(100, 85), "#4->#5 segment survives")
}

func TestAddPoint_361InsertionsDropFirst(t *testing.T) {
	b := newTestBuffer(t, 2500, 360)
	p := DefaultPalette()

	b.AddPoint(90, 2000)
	first, _ := b.Last()
	for i := 1; i <= 360; i++ {
		b.AddPoint(i%181, 500+i)
	}

	pts := b.Points()
	require.Len(t, pts, 360)
	assert.Equal(t, 501, pts[0].Distance, "insertion #2 is the oldest survivor")
	assert.Equal(t, 860, pts[359].Distance)

	assert.NotEqual(t, p.Marker, b.surface.At(first.X, first.Y))
	for _, pt := range pts {
		assert.NotEqual(t, p.Background, b.surface.At(pt.X, pt.Y), "survivor at %v erased", pt.Pt())
	}
}

func TestAddPoint_NoiseDrawsAtOrigin(t *testing.T) {
	b := newTestBuffer(t, 50, 10)
	ox, oy := b.Projector().Origin()

	b.AddPoint(45, 50)
	b.AddPoint(120, 9000)

	pts := b.Points()
	require.Len(t, pts, 2)
	for _, pt := range pts {
		assert.Equal(t, image.Pt(ox, oy), pt.Pt())
		assert.Equal(t, 0, pt.Distance)
	}
	assert.Equal(t, uint64(2), b.Stats().Noise)
}

func TestDrawable_InsetBounds(t *testing.T) {
	b := newTestBuffer(t, 50, 10)
	w, h := b.surface.Width(), b.surface.Height()

	assert.False(t, b.drawable(0, 5))
	assert.False(t, b.drawable(5, 0))
	assert.True(t, b.drawable(1, 1))
	assert.True(t, b.drawable(w-1, h-1))
	assert.False(t, b.drawable(w, 5))
	assert.False(t, b.drawable(5, h))
}

func TestAddPoint_NotifiesObserverWithCopy(t *testing.T) {
	var mu sync.Mutex
	var frames []Frame
	b, err := NewScanBuffer(Config{
		MaxProjectionLength: 50,
		MaxPoints:           4,
		Observer: ObserverFunc(func(f Frame) {
			mu.Lock()
			frames = append(frames, f)
			mu.Unlock()
		}),
	})
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		b.AddPoint(i*30, 20)
	}

	require.Len(t, frames, 6)
	for i, f := range frames {
		assert.Equal(t, uint64(i+1), f.Seq)
		assert.Equal(t, 20, f.Last.Distance)
		require.NotNil(t, f.Image)
	}
	assert.Equal(t, 4, frames[5].Points)

	// Scribbling on a delivered frame must not reach the surface.
	last := frames[5]
	last.Image.SetRGBA(1, 1, color.RGBA{R: 0xff, A: 0xff})
	assert.Equal(t, DefaultPalette().Background, b.surface.At(1, 1))
}

func TestAddPoint_IdleBroadcasterSkipsSnapshot(t *testing.T) {
	bc := NewBroadcaster(1)
	b, err := NewScanBuffer(Config{MaxProjectionLength: 50, Observer: bc})
	require.NoError(t, err)

	b.AddPoint(10, 10)

	id, ch := bc.Subscribe()
	defer bc.Unsubscribe(id)
	b.AddPoint(20, 10)

	f := <-ch
	assert.Equal(t, uint64(2), f.Seq)
	assert.Equal(t, 2, f.Points)
}

func TestAddPoint_ThrottledSubscriberSkipsSnapshot(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	bc := NewBroadcaster(4)
	bc.SetClock(clock)
	var copies int
	counter := ObserverFunc(func(Frame) { copies++ })
	b, err := NewScanBuffer(Config{MaxProjectionLength: 50, Observer: observers{bc, counter}})
	require.NoError(t, err)

	id, ch := bc.SubscribeEvery(time.Second)
	defer bc.Unsubscribe(id)

	b.AddPoint(10, 10)
	b.AddPoint(20, 10)
	b.AddPoint(30, 10)
	clock.Advance(time.Second)
	b.AddPoint(40, 10)

	assert.Equal(t, 2, copies, "snapshots are taken only when the subscriber is due")
	assert.Equal(t, uint64(1), (<-ch).Seq)
	assert.Equal(t, uint64(4), (<-ch).Seq)
}

// observers counts notifications next to a broadcaster and is idle when the
// broadcaster is.
type observers struct {
	gate *Broadcaster
	tap  Observer
}

func (o observers) SurfaceUpdated(fr Frame) {
	o.gate.SurfaceUpdated(fr)
	o.tap.SurfaceUpdated(fr)
}

func (o observers) Idle() bool { return o.gate.Idle() }

func TestAddPoint_ConcurrentWritersDoNotRace(t *testing.T) {
	b := newTestBuffer(t, 60, 20)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				b.AddPoint((w*45+i)%180, i)
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 20, b.Len())
	assert.Equal(t, uint64(200), b.Seq())
}

func distances(pts []ProjectedPoint) []int {
	out := make([]int, len(pts))
	for i, p := range pts {
		out[i] = p.Distance
	}
	return out
}

func TestFrame_MatchesWindow(t *testing.T) {
	b := newTestBuffer(t, 50, 3)
	empty := b.Frame()
	assert.Equal(t, uint64(0), empty.Seq)
	assert.Equal(t, 0, empty.Points)
	assert.Equal(t, b.Bounds(), empty.Image.Bounds())

	for i := 0; i < 5; i++ {
		b.AddPoint(i*10, 30+i)
	}
	fr := b.Frame()
	assert.Equal(t, uint64(5), fr.Seq)
	assert.Equal(t, 3, fr.Points)
	assert.Equal(t, 34, fr.Last.Distance)
	last, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, last, fr.Last)
}

func TestSetObserver_SwapAndDisable(t *testing.T) {
	b := newTestBuffer(t, 50, 4)
	var first, second int
	b.SetObserver(ObserverFunc(func(Frame) { first++ }))
	b.AddPoint(10, 10)

	b.SetObserver(ObserverFunc(func(Frame) { second++ }))
	b.AddPoint(20, 10)

	b.SetObserver(nil)
	b.AddPoint(30, 10)

	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, uint64(3), b.Seq())
}
