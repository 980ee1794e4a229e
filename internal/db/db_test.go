package db

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/scanview/internal/frames"
	"github.com/banshee-data/scanview/internal/monitoring"
	"github.com/banshee-data/scanview/internal/session"
)

func init() {
	monitoring.SetLogger(nil)
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testSession(id string, started time.Time) session.Info {
	return session.Info{
		ID:                  id,
		Source:              "serial",
		Port:                "/dev/ttyUSB0",
		MaxProjectionLength: 2500,
		MaxPoints:           360,
		StartedAt:           started,
	}
}

func TestPragmasApplied(t *testing.T) {
	db := setupTestDB(t)

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}

	var timeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
}

func TestSessions_CreateEndList(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.CreateSession(ctx, testSession("a", t0)); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := db.CreateSession(ctx, testSession("b", t0.Add(time.Hour))); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := db.CreateSession(ctx, testSession("a", t0)); err == nil {
		t.Error("expected duplicate session id to fail")
	}

	if err := db.EndSession(ctx, "a", t0.Add(time.Minute)); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if err := db.EndSession(ctx, "missing", t0); !errors.Is(err, ErrNotFound) {
		t.Errorf("EndSession(missing) = %v, want ErrNotFound", err)
	}

	got, err := db.GetSession(ctx, "a")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	want := testSession("a", t0)
	want.EndedAt = t0.Add(time.Minute)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetSession mismatch (-want +got):\n%s", diff)
	}

	list, err := db.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 2 || list[0].ID != "b" || list[1].ID != "a" {
		t.Fatalf("ListSessions order = %+v", list)
	}
	if !list[0].EndedAt.IsZero() {
		t.Errorf("running session has end time %v", list[0].EndedAt)
	}

	list, err = db.ListSessions(ctx, 1)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListSessions(1) returned %d", len(list))
	}

	if _, err := db.GetSession(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSession(missing) = %v, want ErrNotFound", err)
	}
}

func TestFrames_RecordListDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	if err := db.CreateSession(ctx, testSession("s", t0)); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := db.RecordFrame(ctx, frames.Record{
			SessionID: "s",
			Seq:       uint64(i + 1),
			Path:      filepath.Join("out", "s", "f"+string(rune('0'+i))+".bmp"),
			Format:    frames.FormatBMP,
			Points:    i + 1,
			CreatedAt: t0.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("RecordFrame: %v", err)
		}
		ids = append(ids, id)
	}

	list, err := db.ListFrames(ctx, "s", 2)
	if err != nil {
		t.Fatalf("ListFrames: %v", err)
	}
	if len(list) != 2 || list[0].Seq != 3 || list[1].Seq != 2 {
		t.Fatalf("ListFrames = %+v", list)
	}
	if list[0].Format != frames.FormatBMP || !list[0].CreatedAt.Equal(t0.Add(2*time.Second)) {
		t.Errorf("frame fields not round-tripped: %+v", list[0])
	}

	if err := db.DeleteFrame(ctx, ids[0]); err != nil {
		t.Fatalf("DeleteFrame: %v", err)
	}
	if err := db.DeleteFrame(ctx, ids[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteFrame = %v, want ErrNotFound", err)
	}
	if _, err := db.GetFrame(ctx, ids[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetFrame(deleted) = %v, want ErrNotFound", err)
	}
	rec, err := db.GetFrame(ctx, ids[1])
	if err != nil {
		t.Fatalf("GetFrame: %v", err)
	}
	if rec.Points != 2 {
		t.Errorf("Points = %d, want 2", rec.Points)
	}

	n, err := db.FrameCount(ctx, "s")
	if err != nil {
		t.Fatalf("FrameCount: %v", err)
	}
	if n != 2 {
		t.Errorf("FrameCount = %d, want 2", n)
	}
}

func TestFrames_RequireSession(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.RecordFrame(context.Background(), frames.Record{SessionID: "nope", Path: "x.bmp", Format: frames.FormatBMP, CreatedAt: t0})
	if err == nil {
		t.Fatal("expected foreign key violation for unknown session")
	}
}

func TestFrames_AsWriterRecorder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	if err := db.CreateSession(ctx, testSession("w", t0)); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	var _ frames.Recorder = db
	w, err := frames.NewWriter(frames.Config{
		Dir:       t.TempDir(),
		SessionID: "w",
		Format:    frames.FormatPNG,
		Retain:    1,
		Recorder:  db,
	})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	buf := testBuffer(t)
	for i := 0; i < 3; i++ {
		buf.AddPoint(i*60, 10)
		if _, err := w.Write(ctx, buf.Frame()); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	n, err := db.FrameCount(ctx, "w")
	if err != nil {
		t.Fatalf("FrameCount: %v", err)
	}
	if n != 1 {
		t.Errorf("catalogue holds %d frames after retention, want 1", n)
	}
}

func TestMigrations_DownAndUp(t *testing.T) {
	db := setupTestDB(t)
	migrations, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS: %v", err)
	}

	st, err := db.GetMigrationStatus(migrations)
	if err != nil {
		t.Fatalf("GetMigrationStatus: %v", err)
	}
	if st.Version != 2 || st.Latest != 2 || st.Dirty || st.NeedsMigrate || !st.TableExists {
		t.Fatalf("status after NewDB = %+v", st)
	}

	if err := db.MigrateDown(migrations); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='scan_frames'`).Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 0 {
		t.Error("scan_frames still exists after rolling back")
	}

	st, err = db.GetMigrationStatus(migrations)
	if err != nil {
		t.Fatalf("GetMigrationStatus: %v", err)
	}
	if !st.NeedsMigrate || st.Version != 1 {
		t.Errorf("status after down = %+v", st)
	}

	if err := db.MigrateUp(migrations); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	// Idempotent at latest.
	if err := db.MigrateUp(migrations); err != nil {
		t.Fatalf("second MigrateUp: %v", err)
	}
}

func TestRunMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")

	var out bytes.Buffer
	if err := RunMigrateCommand([]string{"up"}, path, &out); err != nil {
		t.Fatalf("up: %v", err)
	}
	if !strings.Contains(out.String(), "Current version: 2") {
		t.Errorf("up output = %q", out.String())
	}

	out.Reset()
	if err := RunMigrateCommand([]string{"version", "1"}, path, &out); err != nil {
		t.Fatalf("version 1: %v", err)
	}
	if !strings.Contains(out.String(), "Current version: 1") {
		t.Errorf("version output = %q", out.String())
	}

	out.Reset()
	if err := RunMigrateCommand([]string{"status"}, path, &out); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out.String(), "Latest version: 2") {
		t.Errorf("status output = %q", out.String())
	}

	if err := RunMigrateCommand([]string{"version", "x"}, path, io.Discard); err == nil {
		t.Error("expected invalid version to fail")
	}
	if err := RunMigrateCommand([]string{"bogus"}, path, io.Discard); !errors.Is(err, ErrUnknownMigrateAction) {
		t.Errorf("bogus action = %v", err)
	}
	if err := RunMigrateCommand(nil, path, io.Discard); !errors.Is(err, ErrUnknownMigrateAction) {
		t.Errorf("no action = %v", err)
	}
	out.Reset()
	if err := RunMigrateCommand([]string{"help"}, path, &out); err != nil {
		t.Errorf("help = %v", err)
	}
	if !strings.Contains(out.String(), "Usage: scanview migrate") {
		t.Errorf("help output = %q", out.String())
	}
}

func localHostRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

func TestAttachAdminRoutes(t *testing.T) {
	db := setupTestDB(t)
	if err := db.CreateSession(context.Background(), testSession("backup", t0)); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	mux := http.NewServeMux()
	if err := db.AttachAdminRoutes(mux); err != nil {
		t.Fatalf("AttachAdminRoutes: %v", err)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, localHostRequest(http.MethodGet, "/debug/backup"))
	if rec.Code != http.StatusOK {
		t.Fatalf("backup status = %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment; filename=scanview-backup-") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	gz, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	data, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("SQLite format 3\x00")) {
		t.Errorf("backup is not a sqlite file: % x", data[:16])
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, localHostRequest(http.MethodGet, "/debug/tailsql/"))
	if rec.Code != http.StatusOK {
		t.Errorf("tailsql status = %d", rec.Code)
	}
}
