// Package journal persists a history of transfer outcomes in a local
// sqlite database, one row per attempted file.
package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Entry is one journaled transfer attempt.
type Entry struct {
	ID        string        `json:"id"`
	At        time.Time     `json:"at"`
	Direction string        `json:"direction"`
	Filename  string        `json:"filename"`
	Source    string        `json:"source"`
	Dest      string        `json:"dest"`
	Size      int64         `json:"size"`
	Duration  time.Duration `json:"duration"`
	Outcome   string        `json:"outcome"`
	Error     string        `json:"error,omitempty"`
}

type Journal struct {
	db *sql.DB
}

func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	j := &Journal{db: db}
	if err := j.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) Migrate(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx, schemaSQL)
	return err
}

// Record writes one entry. A missing ID or timestamp is filled in.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO transfers (id, at, direction, filename, source, dest, size, duration_ms, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.At.UnixMilli(), e.Direction, e.Filename, e.Source, e.Dest,
		e.Size, e.Duration.Milliseconds(), e.Outcome, e.Error)
	return err
}

// Recent returns the newest entries, most recent first.
func (j *Journal) Recent(ctx context.Context, limit int) (entries []Entry, err error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, at, direction, filename, source, dest, size, duration_ms, outcome, error
		FROM transfers ORDER BY at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		var e Entry
		var at, durationMs int64
		if err := rows.Scan(&e.ID, &at, &e.Direction, &e.Filename, &e.Source,
			&e.Dest, &e.Size, &durationMs, &e.Outcome, &e.Error); err != nil {
			return nil, err
		}
		e.At = time.UnixMilli(at)
		e.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Prune drops entries older than cutoff and reports how many were
// removed.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM transfers WHERE at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS transfers (
	id TEXT PRIMARY KEY,
	at INTEGER NOT NULL,
	direction TEXT NOT NULL,
	filename TEXT NOT NULL,
	source TEXT NOT NULL,
	dest TEXT NOT NULL,
	size INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_transfers_at ON transfers(at);
`
