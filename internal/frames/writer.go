// Package frames saves rendered scan surfaces to disk as they are produced.
package frames

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/scanview/internal/fsutil"
	"github.com/banshee-data/scanview/internal/monitoring"
	"github.com/banshee-data/scanview/internal/scan"
	"github.com/banshee-data/scanview/internal/security"
	"github.com/banshee-data/scanview/internal/timeutil"
)

var logf = monitoring.Component("frames")

// DefaultDir is where frames are written when no directory is configured.
const DefaultDir = "outputImages"

// Record describes one saved frame for the catalogue.
type Record struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Seq       uint64    `json:"seq"`
	Path      string    `json:"path"`
	Format    Format    `json:"format"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder catalogues saved frames. DeleteFrame is called when a frame is
// pruned by the retention limit.
type Recorder interface {
	RecordFrame(ctx context.Context, rec Record) (int64, error)
	DeleteFrame(ctx context.Context, id int64) error
}

// Config configures a Writer.
type Config struct {
	Dir       string
	SessionID string
	Format    Format
	// Interval is the minimum time between two saved frames; frames arriving
	// sooner are skipped. Zero saves every frame.
	Interval time.Duration
	// Retain caps the number of files kept for the session, removing the
	// oldest first. Zero keeps everything.
	Retain int

	FS       fsutil.FileSystem
	Clock    timeutil.Clock
	Recorder Recorder
}

// WriterStats counts the writer's activity.
type WriterStats struct {
	Written uint64 `json:"written"`
	Skipped uint64 `json:"skipped"`
	Removed uint64 `json:"removed"`
	Errors  uint64 `json:"errors"`
}

// Writer encodes frames into <Dir>/<SessionID>/.
type Writer struct {
	cfg Config
	dir string

	mu      sync.Mutex
	lastAt  time.Time
	kept    []Record
	written atomic.Uint64
	skipped atomic.Uint64
	removed atomic.Uint64
	errors  atomic.Uint64
}

// NewWriter validates cfg and creates the session directory.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.Dir == "" {
		cfg.Dir = DefaultDir
	}
	if cfg.Format == "" {
		cfg.Format = FormatBMP
	}
	if _, err := ParseFormat(string(cfg.Format)); err != nil {
		return nil, err
	}
	if cfg.Interval < 0 {
		return nil, fmt.Errorf("frame interval must not be negative, got %v", cfg.Interval)
	}
	if cfg.Retain < 0 {
		return nil, fmt.Errorf("frame retain must not be negative, got %d", cfg.Retain)
	}
	if cfg.FS == nil {
		cfg.FS = fsutil.OSFileSystem{}
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}

	dir := filepath.Join(cfg.Dir, security.SanitizeFilename(cfg.SessionID))
	if err := security.IsWithinDirectory(dir, cfg.Dir); err != nil {
		return nil, err
	}
	if err := cfg.FS.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create frame directory: %w", err)
	}
	return &Writer{cfg: cfg, dir: dir}, nil
}

// Dir returns the directory frames are written into.
func (w *Writer) Dir() string { return w.dir }

// Run saves frames from ch until it is closed or ctx is done. Individual
// write failures are logged and counted, not returned.
func (w *Writer) Run(ctx context.Context, ch <-chan scan.Frame) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fr, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := w.Write(ctx, fr); err != nil {
				logf("failed to save frame %d: %v", fr.Seq, err)
			}
		}
	}
}

// ErrThrottled is returned by Write for frames arriving within Interval of
// the previous saved frame.
var ErrThrottled = errors.New("frame skipped by interval")

// Write encodes and saves fr, returning its catalogue record.
func (w *Writer) Write(ctx context.Context, fr scan.Frame) (Record, error) {
	if fr.Image == nil {
		w.errors.Add(1)
		return Record{}, errors.New("frame has no image")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.cfg.Clock.Now()
	if w.cfg.Interval > 0 && !w.lastAt.IsZero() && now.Sub(w.lastAt) < w.cfg.Interval {
		w.skipped.Add(1)
		return Record{}, ErrThrottled
	}

	var buf bytes.Buffer
	if err := Encode(&buf, fr.Image, w.cfg.Format); err != nil {
		w.errors.Add(1)
		return Record{}, fmt.Errorf("encode: %w", err)
	}

	path := w.uniquePath(now)
	f, err := w.cfg.FS.Create(path)
	if err != nil {
		w.errors.Add(1)
		return Record{}, fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		w.errors.Add(1)
		return Record{}, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		w.errors.Add(1)
		return Record{}, fmt.Errorf("close %s: %w", path, err)
	}

	rec := Record{
		SessionID: w.cfg.SessionID,
		Seq:       fr.Seq,
		Path:      path,
		Format:    w.cfg.Format,
		Points:    fr.Points,
		CreatedAt: now,
	}
	if w.cfg.Recorder != nil {
		id, err := w.cfg.Recorder.RecordFrame(ctx, rec)
		if err != nil {
			logf("failed to catalogue %s: %v", path, err)
		} else {
			rec.ID = id
		}
	}

	w.lastAt = now
	w.written.Add(1)
	w.kept = append(w.kept, rec)
	w.prune(ctx)
	return rec, nil
}

// uniquePath names a frame by time, adding the frame count when two frames
// share a timestamp.
func (w *Writer) uniquePath(now time.Time) string {
	path := filepath.Join(w.dir, FileName(now, w.cfg.Format))
	if !w.cfg.FS.Exists(path) {
		return path
	}
	base := strings.TrimSuffix(path, w.cfg.Format.Ext())
	for n := 1; ; n++ {
		p := fmt.Sprintf("%s_%d%s", base, n, w.cfg.Format.Ext())
		if !w.cfg.FS.Exists(p) {
			return p
		}
	}
}

func (w *Writer) prune(ctx context.Context) {
	if w.cfg.Retain == 0 {
		return
	}
	for len(w.kept) > w.cfg.Retain {
		old := w.kept[0]
		w.kept = w.kept[1:]
		if err := w.cfg.FS.Remove(old.Path); err != nil {
			w.errors.Add(1)
			logf("failed to remove %s: %v", old.Path, err)
			continue
		}
		w.removed.Add(1)
		if w.cfg.Recorder != nil && old.ID != 0 {
			if err := w.cfg.Recorder.DeleteFrame(ctx, old.ID); err != nil {
				logf("failed to drop catalogue entry %d: %v", old.ID, err)
			}
		}
	}
}

// Kept returns the records of the frames currently on disk, oldest first.
func (w *Writer) Kept() []Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Record(nil), w.kept...)
}

func (w *Writer) Stats() WriterStats {
	return WriterStats{
		Written: w.written.Load(),
		Skipped: w.skipped.Load(),
		Removed: w.removed.Load(),
		Errors:  w.errors.Load(),
	}
}
