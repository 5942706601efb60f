package store

import (
	"errors"
	"fmt"
	"time"
)

// ErrRunInProgress means another reconciliation run holds the lock.
var ErrRunInProgress = errors.New("a sync run is already in progress")

// AcquireRunLock takes the single run lock for owner, or returns
// ErrRunInProgress if a live lock is held by someone else. Locks expire
// after ttl so a crashed run cannot wedge the store.
func (s *Store) AcquireRunLock(owner string, ttl time.Duration, now time.Time) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var holder, expires string
	err = tx.QueryRow(`SELECT owner, expires_at FROM run_lock WHERE id = 1`).Scan(&holder, &expires)
	if err == nil && holder != owner && parseTime(expires).After(now) {
		return ErrRunInProgress
	}

	_, err = tx.Exec(`
INSERT INTO run_lock (id, owner, acquired_at, expires_at) VALUES (1, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET owner = excluded.owner,
	acquired_at = excluded.acquired_at, expires_at = excluded.expires_at`,
		owner, formatTime(now), formatTime(now.Add(ttl)))
	if err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	return tx.Commit()
}

// ReleaseRunLock drops the lock if owner still holds it.
func (s *Store) ReleaseRunLock(owner string) error {
	_, err := s.conn.Exec(`DELETE FROM run_lock WHERE id = 1 AND owner = ?`, owner)
	if err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}
