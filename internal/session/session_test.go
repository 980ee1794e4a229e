package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scanview/internal/monitoring"
	"github.com/banshee-data/scanview/internal/protocol"
	"github.com/banshee-data/scanview/internal/scan"
	"github.com/banshee-data/scanview/internal/source"
	"github.com/banshee-data/scanview/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func newSession(t *testing.T, clock timeutil.Clock) *Session {
	t.Helper()
	s, err := New(Config{Source: "test", MaxProjectionLength: 100, MaxPoints: 5, Clock: clock})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestNew_RejectsBadGeometry(t *testing.T) {
	_, err := New(Config{MaxProjectionLength: 0})
	assert.ErrorIs(t, err, scan.ErrInvalidProjectionLength)

	_, err = New(Config{MaxProjectionLength: 10, MaxPoints: -1})
	assert.ErrorIs(t, err, scan.ErrInvalidMaxPoints)
}

func TestSession_RunConsumesSource(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(start)
	s := newSession(t, clock)
	_, err := uuid.Parse(s.ID())
	require.NoError(t, err)

	var samples []protocol.Sample
	for i := 0; i < 8; i++ {
		samples = append(samples, protocol.Sample{AngleDegrees: i * 10, Distance: 10 + i})
	}
	samples = append(samples, protocol.Sample{AngleDegrees: 90, Distance: 1000})

	require.NoError(t, s.Run(context.Background(), &source.SliceSource{Samples: samples}))

	pts := s.Points()
	require.Len(t, pts, 5)
	assert.Equal(t, 14, pts[0].Distance)
	assert.Equal(t, 0, pts[4].Distance, "noise is recorded with distance zero")

	clock.Advance(time.Minute)
	st := s.Status()
	assert.Equal(t, uint64(9), st.Received)
	assert.Equal(t, 5, st.Window)
	assert.Equal(t, uint64(9), st.Seq)
	assert.Equal(t, uint64(1), st.Stats.Noise)
	assert.Equal(t, uint64(4), st.Stats.Evicted)
	assert.Equal(t, time.Minute, st.Uptime)
	assert.Equal(t, "test", st.Source)
	assert.Equal(t, 100, st.MaxProjectionLength)
	assert.Equal(t, 5, st.MaxPoints)
	assert.Equal(t, start, st.StartedAt)
	assert.Equal(t, start, st.EndedAt)

	latest := s.Latest()
	assert.Equal(t, uint64(9), latest.Seq)
	assert.Equal(t, 5, latest.Points)
	assert.Equal(t, s.Buffer().Bounds(), latest.Image.Bounds())
}

func TestSession_RunPropagatesSourceError(t *testing.T) {
	s := newSession(t, nil)
	boom := errors.New("port vanished")
	err := s.Run(context.Background(), source.Func(func(ctx context.Context, out chan<- protocol.Sample) error {
		out <- protocol.Sample{AngleDegrees: 1, Distance: 1}
		return boom
	}))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s.Buffer().Len())
}

func TestSession_CancelIsNotAnError(t *testing.T) {
	s := newSession(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	g := source.NewSweepGenerator()
	g.Interval = 0

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, g) }()

	require.Eventually(t, func() bool { return s.Status().Received > 50 }, 2*time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 5, s.Buffer().Len())
	assert.False(t, s.Info().EndedAt.IsZero())
}

func TestSession_RunTwice(t *testing.T) {
	s := newSession(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	block := source.Func(func(ctx context.Context, out chan<- protocol.Sample) error {
		<-ctx.Done()
		return ctx.Err()
	})
	go s.Run(ctx, block)
	require.Eventually(t, func() bool { return s.running.Load() }, time.Second, time.Millisecond)
	assert.ErrorIs(t, s.Run(ctx, block), ErrAlreadyRunning)
}

func TestSession_FramesReachSubscribers(t *testing.T) {
	s := newSession(t, nil)
	id, frames := s.Frames().Subscribe()
	defer s.Frames().Unsubscribe(id)

	src := &source.SliceSource{Samples: []protocol.Sample{{AngleDegrees: 45, Distance: 50}}}
	require.NoError(t, s.Run(context.Background(), src))

	select {
	case fr := <-frames:
		assert.Equal(t, uint64(1), fr.Seq)
		assert.Equal(t, 50, fr.Last.Distance)
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
	}
}
