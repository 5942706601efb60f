package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/harrisonrobin/lmsync/pkg/model"
)

const recordColumns = `id, title, raw_title, course, course_code, activity_type,
	due_date, opening_date, status, origin_url, source,
	added_at, last_updated_at, remote_task_id, last_synced_at`

// ListActive returns every record in the active store, ordered by id for
// stable output.
func (s *Store) ListActive() ([]model.AssignmentRecord, error) {
	rows, err := s.conn.Query(`SELECT ` + recordColumns + ` FROM assignments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var records []model.AssignmentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ActiveByID returns the active records keyed by id, the shape the merge
// engine consumes.
func (s *Store) ActiveByID() (map[string]model.AssignmentRecord, error) {
	records, err := s.ListActive()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.AssignmentRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}
	return byID, nil
}

// Get returns one active record, or ErrNotFound.
func (s *Store) Get(id string) (*model.AssignmentRecord, error) {
	row := s.conn.QueryRow(`SELECT `+recordColumns+` FROM assignments WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put upserts one record.
func (s *Store) Put(rec model.AssignmentRecord) error {
	_, err := s.conn.Exec(upsertRecordSQL, upsertRecordArgs(rec)...)
	if err != nil {
		return fmt.Errorf("failed to upsert assignment %s: %w", rec.ID, err)
	}
	return nil
}

// ApplyMerge writes the full merged record set back and stamps lastMergeAt,
// in one transaction.
func (s *Store) ApplyMerge(records []model.AssignmentRecord, mergedAt time.Time) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		if _, err := tx.Exec(upsertRecordSQL, upsertRecordArgs(rec)...); err != nil {
			return fmt.Errorf("failed to upsert assignment %s: %w", rec.ID, err)
		}
	}
	if err := setMetaTx(tx, metaLastMergeAt, formatTime(mergedAt)); err != nil {
		return err
	}
	return tx.Commit()
}

// SetSyncState records the outcome of a remote write for one record:
// the linked remote task and when it was last synced.
func (s *Store) SetSyncState(id, remoteTaskID string, syncedAt time.Time) error {
	res, err := s.conn.Exec(
		`UPDATE assignments SET remote_task_id = ?, last_synced_at = ? WHERE id = ?`,
		remoteTaskID, formatTime(syncedAt), id)
	if err != nil {
		return fmt.Errorf("failed to update sync state for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const upsertRecordSQL = `
INSERT INTO assignments (` + recordColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	raw_title = excluded.raw_title,
	course = excluded.course,
	course_code = excluded.course_code,
	activity_type = excluded.activity_type,
	due_date = excluded.due_date,
	opening_date = excluded.opening_date,
	status = excluded.status,
	origin_url = excluded.origin_url,
	source = excluded.source,
	last_updated_at = excluded.last_updated_at,
	remote_task_id = excluded.remote_task_id,
	last_synced_at = excluded.last_synced_at`

func upsertRecordArgs(rec model.AssignmentRecord) []any {
	return []any{
		rec.ID, rec.Title, rec.RawTitle, rec.Course, rec.CourseCode,
		string(rec.ActivityType), rec.DueDate, rec.OpeningDate,
		string(rec.Status), rec.OriginURL, rec.Source,
		formatTime(rec.AddedAt), formatTime(rec.LastUpdatedAt),
		rec.RemoteTaskID, formatTime(rec.LastSyncedAt),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (model.AssignmentRecord, error) {
	var rec model.AssignmentRecord
	var activityType, status, addedAt, lastUpdatedAt, lastSyncedAt string
	err := row.Scan(
		&rec.ID, &rec.Title, &rec.RawTitle, &rec.Course, &rec.CourseCode,
		&activityType, &rec.DueDate, &rec.OpeningDate, &status,
		&rec.OriginURL, &rec.Source, &addedAt, &lastUpdatedAt,
		&rec.RemoteTaskID, &lastSyncedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("failed to scan assignment: %w", err)
	}
	rec.ActivityType = model.ActivityType(activityType)
	rec.Status = model.Status(status)
	rec.AddedAt = parseTime(addedAt)
	rec.LastUpdatedAt = parseTime(lastUpdatedAt)
	rec.LastSyncedAt = parseTime(lastSyncedAt)
	return rec, nil
}
