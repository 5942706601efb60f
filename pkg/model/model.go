package model

import (
	"context"
	"time"
)

// Clock supplies the current time. Injected where timestamps matter so the
// merge and reconciliation logic stays deterministic under test.
type Clock func() time.Time

// Sentinel values for dates that were looked for but not found on the page.
// These are distinct from "" which means the scrape did not provide the field.
const (
	NoDueDate     = "No due date"
	NoOpeningDate = "No opening date"
)

// Status is the submission lifecycle of an assignment.
// Completed is terminal for sync purposes.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusSubmitted Status = "Submitted"
	StatusGraded    Status = "Graded"
	StatusDraft     Status = "Draft"
	StatusFeedback  Status = "Feedback"
	StatusCompleted Status = "Completed"
)

// ActivityType classifies the kind of course module an assignment came from.
type ActivityType string

const (
	ActivityAssignment ActivityType = "assignment"
	ActivityQuiz       ActivityType = "quiz"
	ActivityQuizLink   ActivityType = "quiz_link"
	ActivityLessonLink ActivityType = "lesson_link"
	ActivityForum      ActivityType = "forum"
	ActivityUnknown    ActivityType = "unknown"
)

// RawAssignment is the tuple the scraping collaborator hands over for one
// observed course module. Status may not be known at scrape time: some
// activity types need a secondary fetch of the submission page, in which
// case StatusFn resolves it later and Status is left empty.
type RawAssignment struct {
	Title           string `json:"title"`
	RawTitle        string `json:"raw_title"`
	Course          string `json:"course"`
	URL             string `json:"url"`
	DueDateText     string `json:"due_date"`
	OpeningDateText string `json:"opening_date"`
	ActivityType    string `json:"activity_type"`
	Status          Status `json:"status"`

	// StatusFn, when set, supersedes Status once it resolves.
	StatusFn func(ctx context.Context) (Status, error) `json:"-"`
}

// Observation is a normalized fragment of an AssignmentRecord produced from
// a RawAssignment. An empty string field means the observation did not
// provide that field; the merge must then keep whatever the store already
// has. The date sentinels count as provided.
type Observation struct {
	ID           string
	Title        string
	RawTitle     string
	Course       string
	CourseCode   string
	ActivityType ActivityType
	DueDate      string
	OpeningDate  string
	Status       Status
	OriginURL    string
	Source       string
}

// AssignmentRecord is the durable local record of one logical assignment.
// ID is immutable once assigned and unique across the store.
type AssignmentRecord struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	RawTitle     string       `json:"raw_title"`
	Course       string       `json:"course"`
	CourseCode   string       `json:"course_code"`
	ActivityType ActivityType `json:"activity_type"`
	DueDate      string       `json:"due_date"`
	OpeningDate  string       `json:"opening_date"`
	Status       Status       `json:"status"`
	OriginURL    string       `json:"origin_url"`
	Source       string       `json:"source"`

	AddedAt       time.Time `json:"added_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`

	// RemoteTaskID is set once a corresponding remote task exists.
	RemoteTaskID string    `json:"remote_task_id,omitempty"`
	LastSyncedAt time.Time `json:"last_synced_at,omitzero"`
}

// ArchiveReason records why an assignment was moved out of the active store.
type ArchiveReason string

const (
	ArchiveCompletedAged ArchiveReason = "completed-aged"
	ArchiveManual        ArchiveReason = "manual"
)

// ArchiveEntry wraps a removed AssignmentRecord.
type ArchiveEntry struct {
	Record         AssignmentRecord `json:"record"`
	ArchivedAt     time.Time        `json:"archived_at"`
	Reason         ArchiveReason    `json:"reason"`
	CompletionDate time.Time        `json:"completion_date,omitzero"`
}

// LedgerEntry is one row of the sync ledger: a local id that has been
// pushed to the remote provider at some point.
type LedgerEntry struct {
	ID           string    `json:"id"`
	RemoteTaskID string    `json:"remote_task_id"`
	SyncedAt     time.Time `json:"synced_at"`
}
