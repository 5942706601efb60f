package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harrisonrobin/lmsync/pkg/model"
)

// ErrNotArchived is returned when an id is not present in the archive.
var ErrNotArchived = errors.New("assignment not in archive")

// Archive moves one active record into the archive. The move is a single
// transaction so an id is never simultaneously active and archived.
func (s *Store) Archive(id string, reason model.ArchiveReason, now time.Time) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+recordColumns+` FROM assignments WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if err := insertArchiveTx(tx, rec, reason, now); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM assignments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove assignment %s: %w", id, err)
	}
	return tx.Commit()
}

// ArchiveCompletedBefore archives every Completed record whose last update
// is older than cutoff. Returns the remaining active count and the number
// archived, and stamps the archive's lastCleanupAt.
func (s *Store) ArchiveCompletedBefore(cutoff, now time.Time) (active, archived int, err error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT `+recordColumns+` FROM assignments WHERE status = ?`,
		string(model.StatusCompleted))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query completed assignments: %w", err)
	}
	var aged []model.AssignmentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return 0, 0, err
		}
		if rec.LastUpdatedAt.Before(cutoff) {
			aged = append(aged, rec)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, 0, err
	}
	rows.Close()

	for _, rec := range aged {
		if err := insertArchiveTx(tx, rec, model.ArchiveCompletedAged, now); err != nil {
			return 0, 0, err
		}
		if _, err := tx.Exec(`DELETE FROM assignments WHERE id = ?`, rec.ID); err != nil {
			return 0, 0, fmt.Errorf("failed to remove assignment %s: %w", rec.ID, err)
		}
	}

	if err := setMetaTx(tx, metaArchiveLastCleanupAt, formatTime(now)); err != nil {
		return 0, 0, err
	}
	if err := tx.QueryRow(`SELECT COUNT(*) FROM assignments`).Scan(&active); err != nil {
		return 0, 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return active, len(aged), tx.Commit()
}

// ListArchive returns archive entries, newest first.
func (s *Store) ListArchive() ([]model.ArchiveEntry, error) {
	rows, err := s.conn.Query(
		`SELECT record, archived_at, reason, completion_date FROM archive ORDER BY archived_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer rows.Close()

	var entries []model.ArchiveEntry
	for rows.Next() {
		var blob, archivedAt, reason, completion string
		if err := rows.Scan(&blob, &archivedAt, &reason, &completion); err != nil {
			return nil, fmt.Errorf("failed to scan archive entry: %w", err)
		}
		var entry model.ArchiveEntry
		if err := json.Unmarshal([]byte(blob), &entry.Record); err != nil {
			return nil, fmt.Errorf("failed to decode archived record: %w", err)
		}
		entry.ArchivedAt = parseTime(archivedAt)
		entry.Reason = model.ArchiveReason(reason)
		entry.CompletionDate = parseTime(completion)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Restore moves an archived record back to the active store.
func (s *Store) Restore(id string) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var blob string
	err = tx.QueryRow(`SELECT record FROM archive WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotArchived
	}
	if err != nil {
		return fmt.Errorf("failed to read archive entry %s: %w", id, err)
	}
	var rec model.AssignmentRecord
	if err := json.Unmarshal([]byte(blob), &rec); err != nil {
		return fmt.Errorf("failed to decode archived record %s: %w", id, err)
	}

	if _, err := tx.Exec(upsertRecordSQL, upsertRecordArgs(rec)...); err != nil {
		return fmt.Errorf("failed to restore assignment %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM archive WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove archive entry %s: %w", id, err)
	}
	return tx.Commit()
}

// DeleteArchived removes an archive entry permanently. This is the only
// hard delete the store exposes, kept as an explicit maintenance operation.
func (s *Store) DeleteArchived(id string) error {
	res, err := s.conn.Exec(`DELETE FROM archive WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete archive entry %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotArchived
	}
	return nil
}

func insertArchiveTx(tx *sql.Tx, rec model.AssignmentRecord, reason model.ArchiveReason, now time.Time) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", rec.ID, err)
	}
	completion := ""
	if rec.Status == model.StatusCompleted {
		completion = formatTime(rec.LastUpdatedAt)
	}
	_, err = tx.Exec(
		`INSERT INTO archive (id, record, archived_at, reason, completion_date) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, string(blob), formatTime(now), string(reason), completion)
	if err != nil {
		return fmt.Errorf("failed to archive assignment %s: %w", rec.ID, err)
	}
	return nil
}
