package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/scanview/internal/session"
)

// ErrNotFound is returned when a session or frame id is unknown.
var ErrNotFound = errors.New("not found")

func unixNanos(t time.Time) int64 { return t.UnixNano() }

func fromUnixNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

// CreateSession records the start of a session.
func (db *DB) CreateSession(ctx context.Context, info session.Info) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO scan_sessions (
			session_id, source, port, max_projection_length, max_points, started_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?)`,
		info.ID, info.Source, info.Port, info.MaxProjectionLength, info.MaxPoints, unixNanos(info.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create session %s: %w", info.ID, err)
	}
	return nil
}

// EndSession stamps the session's end time.
func (db *DB) EndSession(ctx context.Context, id string, at time.Time) error {
	res, err := db.ExecContext(ctx,
		`UPDATE scan_sessions SET ended_unix_nanos = ? WHERE session_id = ?`,
		unixNanos(at), id,
	)
	if err != nil {
		return fmt.Errorf("failed to end session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

const sessionColumns = `session_id, source, port, max_projection_length, max_points, started_unix_nanos, ended_unix_nanos`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (session.Info, error) {
	var (
		info    session.Info
		started int64
		ended   sql.NullInt64
	)
	if err := row.Scan(&info.ID, &info.Source, &info.Port, &info.MaxProjectionLength, &info.MaxPoints, &started, &ended); err != nil {
		return session.Info{}, err
	}
	info.StartedAt = fromUnixNanos(started)
	if ended.Valid {
		info.EndedAt = fromUnixNanos(ended.Int64)
	}
	return info, nil
}

// GetSession returns one session by id.
func (db *DB) GetSession(ctx context.Context, id string) (session.Info, error) {
	row := db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM scan_sessions WHERE session_id = ?`, id)
	info, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Info{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return info, err
}

// ListSessions returns the most recent sessions first. A limit of zero or
// less returns all of them.
func (db *DB) ListSessions(ctx context.Context, limit int) ([]session.Info, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM scan_sessions ORDER BY started_unix_nanos DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []session.Info
	for rows.Next() {
		info, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
