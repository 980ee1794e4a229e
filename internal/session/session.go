// Package session binds one sample source to one scan buffer for the
// lifetime of a connection.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/scanview/internal/monitoring"
	"github.com/banshee-data/scanview/internal/protocol"
	"github.com/banshee-data/scanview/internal/scan"
	"github.com/banshee-data/scanview/internal/source"
	"github.com/banshee-data/scanview/internal/timeutil"
)

// ErrAlreadyRunning is returned when Run is called on a session that is
// already consuming a source.
var ErrAlreadyRunning = errors.New("session already running")

const (
	defaultSampleBuffer = 64
	defaultFrameDepth   = 4
)

// Config configures a Session.
type Config struct {
	// Source and Port describe where samples come from, e.g. "serial" and
	// "/dev/ttyUSB0".
	Source string
	Port   string

	MaxProjectionLength int
	MaxPoints           int
	TrailWidth          int

	// FrameDepth is the per-subscriber buffer of the frame broadcaster.
	FrameDepth int
	Clock      timeutil.Clock
}

// Session owns a ScanBuffer and the Broadcaster it notifies.
type Session struct {
	id        string
	source    string
	port      string
	startedAt time.Time
	clock     timeutil.Clock

	buffer *scan.ScanBuffer
	frames *scan.Broadcaster

	running  atomic.Bool
	received atomic.Uint64

	mu      sync.Mutex
	endedAt time.Time
}

// Info describes a session for the catalogue and status endpoints.
type Info struct {
	ID                  string    `json:"id"`
	Source              string    `json:"source"`
	Port                string    `json:"port,omitempty"`
	MaxProjectionLength int       `json:"max_projection_length"`
	MaxPoints           int       `json:"max_points"`
	StartedAt           time.Time `json:"started_at"`
	EndedAt             time.Time `json:"ended_at,omitzero"`
}

// Status is a point-in-time view of a running session.
type Status struct {
	Info
	Uptime   time.Duration `json:"uptime_ns"`
	Received uint64        `json:"received"`
	Window   int           `json:"window"`
	Seq      uint64        `json:"seq"`
	Stats    scan.Stats    `json:"stats"`
}

// New allocates the scan buffer for a session. The buffer's surface is
// sized from MaxProjectionLength, so this is where invalid geometry is
// rejected.
func New(cfg Config) (*Session, error) {
	if cfg.FrameDepth <= 0 {
		cfg.FrameDepth = defaultFrameDepth
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	frames := scan.NewBroadcaster(cfg.FrameDepth)
	buffer, err := scan.NewScanBuffer(scan.Config{
		MaxProjectionLength: cfg.MaxProjectionLength,
		MaxPoints:           cfg.MaxPoints,
		TrailWidth:          cfg.TrailWidth,
		Observer:            frames,
	})
	if err != nil {
		return nil, err
	}
	return &Session{
		id:        uuid.NewString(),
		source:    cfg.Source,
		port:      cfg.Port,
		startedAt: cfg.Clock.Now(),
		clock:     cfg.Clock,
		buffer:    buffer,
		frames:    frames,
	}, nil
}

func (s *Session) ID() string { return s.id }

// Buffer exposes the session's scan buffer.
func (s *Session) Buffer() *scan.ScanBuffer { return s.buffer }

// Frames is the broadcaster notified after every sample.
func (s *Session) Frames() *scan.Broadcaster { return s.frames }

// Run consumes src until it is exhausted or ctx is done, feeding every sample
// into the buffer from this goroutine only. Cancellation is not an error.
func (s *Session) Run(ctx context.Context, src source.Source) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	samples := make(chan protocol.Sample, defaultSampleBuffer)
	errc := make(chan error, 1)
	go func() {
		defer close(samples)
		errc <- src.Run(ctx, samples)
	}()

	for sample := range samples {
		s.buffer.AddPoint(sample.AngleDegrees, sample.Distance)
		s.received.Add(1)
	}

	err := <-errc
	s.mu.Lock()
	s.endedAt = s.clock.Now()
	s.mu.Unlock()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	monitoring.Logf("session %s ended after %d samples (err=%v)", s.id, s.received.Load(), err)
	return err
}

// Points returns a copy of the current window, oldest first.
func (s *Session) Points() []scan.ProjectedPoint { return s.buffer.Points() }

// Latest renders a frame of the current surface.
func (s *Session) Latest() scan.Frame { return s.buffer.Frame() }

func (s *Session) Info() Info {
	s.mu.Lock()
	ended := s.endedAt
	s.mu.Unlock()
	return Info{
		ID:                  s.id,
		Source:              s.source,
		Port:                s.port,
		MaxProjectionLength: s.buffer.Projector().MaxLength(),
		MaxPoints:           s.buffer.MaxPoints(),
		StartedAt:           s.startedAt,
		EndedAt:             ended,
	}
}

func (s *Session) Status() Status {
	return Status{
		Info:     s.Info(),
		Uptime:   s.clock.Since(s.startedAt),
		Received: s.received.Load(),
		Window:   s.buffer.Len(),
		Seq:      s.buffer.Seq(),
		Stats:    s.buffer.Stats(),
	}
}

// Close releases the frame subscribers. The session must not be run again.
func (s *Session) Close() {
	s.frames.Close()
}
