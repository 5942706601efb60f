package store

import (
	"fmt"
	"time"

	"github.com/harrisonrobin/lmsync/pkg/model"
)

// Ledger returns the full sync ledger keyed by local assignment id.
func (s *Store) Ledger() (map[string]model.LedgerEntry, error) {
	rows, err := s.conn.Query(`SELECT id, remote_task_id, synced_at FROM sync_ledger`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync ledger: %w", err)
	}
	defer rows.Close()

	ledger := make(map[string]model.LedgerEntry)
	for rows.Next() {
		var entry model.LedgerEntry
		var syncedAt string
		if err := rows.Scan(&entry.ID, &entry.RemoteTaskID, &syncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entry.SyncedAt = parseTime(syncedAt)
		ledger[entry.ID] = entry
	}
	return ledger, rows.Err()
}

// RecordSynced upserts a ledger entry after a successful remote write.
func (s *Store) RecordSynced(id, remoteTaskID string, syncedAt time.Time) error {
	_, err := s.conn.Exec(`
INSERT INTO sync_ledger (id, remote_task_id, synced_at) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET remote_task_id = excluded.remote_task_id, synced_at = excluded.synced_at`,
		id, remoteTaskID, formatTime(syncedAt))
	if err != nil {
		return fmt.Errorf("failed to record sync for %s: %w", id, err)
	}
	return nil
}
