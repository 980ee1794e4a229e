package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/banshee-data/scanview/internal/frames"
)

// RecordFrame catalogues a saved frame and returns its id.
func (db *DB) RecordFrame(ctx context.Context, rec frames.Record) (int64, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO scan_frames (session_id, seq, path, format, points, created_unix_nanos)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SessionID, int64(rec.Seq), rec.Path, string(rec.Format), rec.Points, unixNanos(rec.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record frame %s: %w", rec.Path, err)
	}
	return res.LastInsertId()
}

// DeleteFrame removes a frame from the catalogue. The file itself is left
// alone.
func (db *DB) DeleteFrame(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM scan_frames WHERE frame_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete frame %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("frame %d: %w", id, ErrNotFound)
	}
	return nil
}

const frameColumns = `frame_id, session_id, seq, path, format, points, created_unix_nanos`

func scanFrame(row rowScanner) (frames.Record, error) {
	var (
		rec     frames.Record
		seq     int64
		format  string
		created int64
	)
	if err := row.Scan(&rec.ID, &rec.SessionID, &seq, &rec.Path, &format, &rec.Points, &created); err != nil {
		return frames.Record{}, err
	}
	rec.Seq = uint64(seq)
	rec.Format = frames.Format(format)
	rec.CreatedAt = fromUnixNanos(created)
	return rec, nil
}

// GetFrame returns one catalogued frame.
func (db *DB) GetFrame(ctx context.Context, id int64) (frames.Record, error) {
	row := db.QueryRowContext(ctx, `SELECT `+frameColumns+` FROM scan_frames WHERE frame_id = ?`, id)
	rec, err := scanFrame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return frames.Record{}, fmt.Errorf("frame %d: %w", id, ErrNotFound)
	}
	return rec, err
}

// ListFrames returns a session's frames, newest first. A limit of zero or
// less returns all of them.
func (db *DB) ListFrames(ctx context.Context, sessionID string, limit int) ([]frames.Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+frameColumns+` FROM scan_frames
		WHERE session_id = ?
		ORDER BY created_unix_nanos DESC, frame_id DESC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []frames.Record
	for rows.Next() {
		rec, err := scanFrame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FrameCount returns the number of catalogued frames for a session.
func (db *DB) FrameCount(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_frames WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
