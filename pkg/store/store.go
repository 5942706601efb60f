// Package store is the durable local store: assignment records, the
// archive, the sync ledger and run bookkeeping, all in one SQLite file.
//
// The database is opened in WAL mode so the serve and watch modes can read
// while a reconciliation run writes. Reconciliation runs themselves are
// serialized through the run_lock table (see lock.go); the store performs
// full read-modify-write cycles per merge and a concurrent second run would
// lose updates.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned when a record id is absent from the queried table.
var ErrNotFound = errors.New("record not found")

// Store wraps the SQLite connection.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens (creating if necessary) the store at path and ensures the
// schema exists. The caller must Close it.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	s := &Store{conn: conn, path: path}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := s.initSchema(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS assignments (
	id              TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	raw_title       TEXT NOT NULL DEFAULT '',
	course          TEXT NOT NULL DEFAULT '',
	course_code     TEXT NOT NULL DEFAULT '',
	activity_type   TEXT NOT NULL DEFAULT 'assignment',
	due_date        TEXT NOT NULL DEFAULT '',
	opening_date    TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'Pending',
	origin_url      TEXT NOT NULL DEFAULT '',
	source          TEXT NOT NULL DEFAULT '',
	added_at        TEXT NOT NULL,
	last_updated_at TEXT NOT NULL,
	remote_task_id  TEXT NOT NULL DEFAULT '',
	last_synced_at  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_assignments_status ON assignments(status);

CREATE TABLE IF NOT EXISTS archive (
	id              TEXT PRIMARY KEY,
	record          TEXT NOT NULL,
	archived_at     TEXT NOT NULL,
	reason          TEXT NOT NULL,
	completion_date TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sync_ledger (
	id             TEXT PRIMARY KEY,
	remote_task_id TEXT NOT NULL,
	synced_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_lock (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	owner       TEXT NOT NULL,
	acquired_at TEXT NOT NULL,
	expires_at  TEXT NOT NULL
);
`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ClearAll wipes the active store, the archive, the sync ledger and all
// bookkeeping. Used for a hard reset.
func (s *Store) ClearAll() error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"assignments", "archive", "sync_ledger", "meta", "run_lock"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// formatTime renders a timestamp for storage; the zero time becomes "".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
