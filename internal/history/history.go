package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages the lifecycle action journal backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Entry is one recorded lifecycle action.
type Entry struct {
	ID           int64
	RecordedAt   time.Time
	InvocationID string
	Verb         string
	Outcome      string
	PID          int
	Detail       string
}

const schema = `
CREATE TABLE IF NOT EXISTS actions (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    recorded_at   TEXT NOT NULL,
    invocation_id TEXT NOT NULL,
    verb          TEXT NOT NULL,
    outcome       TEXT NOT NULL,
    pid           INTEGER NOT NULL DEFAULT 0,
    detail        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_actions_recorded_at ON actions(recorded_at);
`

// Open initializes or connects to the journal database.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends one action to the journal.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	recordedAt := entry.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO actions (recorded_at, invocation_id, verb, outcome, pid, detail)
         VALUES (?, ?, ?, ?, ?, ?)`,
		recordedAt.UTC().Format(time.RFC3339Nano),
		entry.InvocationID,
		entry.Verb,
		entry.Outcome,
		entry.PID,
		entry.Detail,
	)
	if err != nil {
		return fmt.Errorf("record action: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, recorded_at, invocation_id, verb, outcome, pid, detail
         FROM actions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var recordedAt string
		if err := rows.Scan(&entry.ID, &recordedAt, &entry.InvocationID, &entry.Verb, &entry.Outcome, &entry.PID, &entry.Detail); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		parsed, parseErr := time.Parse(time.RFC3339Nano, recordedAt)
		if parseErr != nil {
			return nil, fmt.Errorf("parse recorded_at %q: %w", recordedAt, parseErr)
		}
		entry.RecordedAt = parsed
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
