package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Meta keys. lastSyncResult holds the JSON-encoded result of the most
// recent reconciliation run.
const (
	metaLastMergeAt          = "last_merge_at"
	metaLastSyncAt           = "last_sync_at"
	metaLastSyncResult       = "last_sync_result"
	metaArchiveLastCleanupAt = "archive_last_cleanup_at"
)

func (s *Store) getMeta(key string) (string, error) {
	var value string
	err := s.conn.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read meta %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) setMeta(key, value string) error {
	_, err := s.conn.Exec(`
INSERT INTO meta (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write meta %s: %w", key, err)
	}
	return nil
}

func setMetaTx(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(`
INSERT INTO meta (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write meta %s: %w", key, err)
	}
	return nil
}

// LastMergeAt returns when a merge last ran, or the zero time.
func (s *Store) LastMergeAt() (time.Time, error) {
	v, err := s.getMeta(metaLastMergeAt)
	return parseTime(v), err
}

// LastSyncAt returns when a reconciliation last completed, or the zero time.
func (s *Store) LastSyncAt() (time.Time, error) {
	v, err := s.getMeta(metaLastSyncAt)
	return parseTime(v), err
}

// SetLastSync stores the completion time and JSON result of a run.
func (s *Store) SetLastSync(at time.Time, resultJSON string) error {
	if err := s.setMeta(metaLastSyncAt, formatTime(at)); err != nil {
		return err
	}
	return s.setMeta(metaLastSyncResult, resultJSON)
}

// LastSyncResult returns the JSON result of the most recent run, or "".
func (s *Store) LastSyncResult() (string, error) {
	return s.getMeta(metaLastSyncResult)
}

// ArchiveLastCleanupAt returns when completed-aged archiving last ran.
func (s *Store) ArchiveLastCleanupAt() (time.Time, error) {
	v, err := s.getMeta(metaArchiveLastCleanupAt)
	return parseTime(v), err
}
