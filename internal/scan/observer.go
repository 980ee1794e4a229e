package scan

import (
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/scanview/internal/timeutil"
)

// Frame is delivered to observers after every AddPoint. Image is a private
// copy; the receiver may keep it.
type Frame struct {
	Seq    uint64
	Image  *image.RGBA
	Points int
	Last   ProjectedPoint
}

// Observer is notified whenever the surface has been updated.
type Observer interface {
	SurfaceUpdated(Frame)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Frame)

func (f ObserverFunc) SurfaceUpdated(fr Frame) { f(fr) }

// idler is implemented by observers that can report nobody is listening, in
// which case the buffer skips taking a snapshot.
type idler interface {
	Idle() bool
}

// Broadcaster fans frames out to any number of subscribers. Delivery never
// blocks the writer: a subscriber whose channel is full misses that frame.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
	depth       int
	clock       timeutil.Clock
	closing     bool
}

type subscriber struct {
	ch    chan Frame
	every time.Duration
	last  time.Time
}

// due reports whether the subscriber wants a frame at now.
func (s *subscriber) due(now time.Time) bool {
	return s.every <= 0 || s.last.IsZero() || now.Sub(s.last) >= s.every
}

// NewBroadcaster returns a Broadcaster whose subscriber channels buffer up to
// depth frames.
func NewBroadcaster(depth int) *Broadcaster {
	if depth < 0 {
		depth = 0
	}
	return &Broadcaster{
		subscribers: make(map[string]*subscriber),
		depth:       depth,
		clock:       timeutil.RealClock{},
	}
}

// SetClock replaces the clock used for subscriber intervals.
func (b *Broadcaster) SetClock(c timeutil.Clock) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clock = c
}

// Subscribe registers a subscriber that receives every frame. The id is used
// to Unsubscribe.
func (b *Broadcaster) Subscribe() (string, <-chan Frame) {
	return b.SubscribeEvery(0)
}

// SubscribeEvery registers a subscriber that receives at most one frame per
// interval. While no subscriber is due the broadcaster reports Idle, so the
// buffer does not copy the surface for frames nobody would take.
func (b *Broadcaster) SubscribeEvery(interval time.Duration) (string, <-chan Frame) {
	id := uuid.NewString()
	ch := make(chan Frame, b.depth)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closing {
		close(ch)
		return id, ch
	}
	b.subscribers[id] = &subscriber{ch: ch, every: interval}
	return id, ch
}

// Unsubscribe removes and closes a subscriber channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subscribers[id]; ok {
		close(s.ch)
		delete(b.subscribers, id)
	}
}

// SurfaceUpdated implements Observer.
func (b *Broadcaster) SurfaceUpdated(fr Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clock.Now()
	for _, s := range b.subscribers {
		if !s.due(now) {
			continue
		}
		select {
		case s.ch <- fr:
			s.last = now
		default:
		}
	}
}

// Idle reports whether no subscriber is due a frame.
func (b *Broadcaster) Idle() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clock.Now()
	for _, s := range b.subscribers {
		if s.due(now) {
			return false
		}
	}
	return true
}

// Close closes every subscriber channel. Later subscriptions receive a closed
// channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closing = true
	for id, s := range b.subscribers {
		close(s.ch)
		delete(b.subscribers, id)
	}
}
