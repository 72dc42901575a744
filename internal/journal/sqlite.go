package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lucasew/logroll/internal/errutil"
	"github.com/lucasew/logroll/internal/segment"
)

// Event kinds.
const (
	KindRotate = "rotate"
	KindEvict  = "evict"
)

// Event is one journaled lifecycle event.
type Event struct {
	ID    int64
	At    time.Time
	Kind  string
	Index int64
	Path  string
	Size  int64
}

// Journal is an optional sqlite-backed audit trail of rotations and
// evictions. It implements the engine's Recorder; recording failures are
// logged and never disturb the write path.
type Journal struct {
	db *sql.DB
}

// Open creates a new Journal at path and initializes the schema.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}

	j := &Journal{db: db}
	if err := j.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return j, nil
}

func (j *Journal) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at TEXT NOT NULL,
		kind TEXT NOT NULL,
		idx INTEGER NOT NULL,
		path TEXT NOT NULL,
		size INTEGER NOT NULL
	);
	`
	_, err := j.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) record(kind string, f segment.File) error {
	_, err := j.db.Exec(
		"INSERT INTO events (at, kind, idx, path, size) VALUES (?, ?, ?, ?, ?)",
		time.Now().UTC().Format(time.RFC3339Nano), kind, f.Index, f.Path, f.Size,
	)
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", kind, err)
	}
	return nil
}

// RecordRotate journals a file transitioning to closed.
func (j *Journal) RecordRotate(f segment.File) {
	errutil.LogMsg(j.record(KindRotate, f), "Failed to journal rotation", "path", f.Path)
}

// RecordEvict journals a file deleted by the eviction pass.
func (j *Journal) RecordEvict(f segment.File) {
	errutil.LogMsg(j.record(KindEvict, f), "Failed to journal eviction", "path", f.Path)
}

// Events returns the most recent events, newest first, up to limit.
func (j *Journal) Events(ctx context.Context, limit int) ([]Event, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT id, at, kind, idx, path, size FROM events ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var e Event
		var at string
		if err := rows.Scan(&e.ID, &at, &e.Kind, &e.Index, &e.Path, &e.Size); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event timestamp %q: %w", at, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return events, nil
}
