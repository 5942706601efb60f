package sync

// Classification is the ephemeral verdict for one record during a run. It
// is never persisted; the outcome lands on the record as updated status,
// remote linkage and sync timestamps.
type Classification string

const (
	ClassNew               Classification = "New"
	ClassExistingUnchanged Classification = "ExistingUnchanged"
	ClassExistingChanged   Classification = "ExistingChanged"
	ClassLocalCompleted    Classification = "SkippedLocalCompleted"
	ClassRemoteCompleted   Classification = "SkippedRemoteCompleted"
	ClassOrphaned          Classification = "SkippedOrphaned"
)

// RecordError is a per-record failure that did not stop the run.
type RecordError struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Skipped buckets records that deliberately produced no remote write.
type Skipped struct {
	Local           []string `json:"local"`
	RemoteCompleted []string `json:"todoist_completed"`
	NoChanges       []string `json:"no_changes"`
	Orphaned        []string `json:"orphaned"`
}

// Summary totals a run.
type Summary struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Result is the structured report of one reconciliation run. Lists carry
// assignment titles, which is what the UI collaborator displays.
type Result struct {
	Added   []string      `json:"added"`
	Updated []string      `json:"updated"`
	Skipped Skipped       `json:"skipped"`
	Errors  []RecordError `json:"errors"`
	Summary Summary       `json:"summary"`
}

func newResult() *Result {
	return &Result{
		Added:   []string{},
		Updated: []string{},
		Skipped: Skipped{
			Local:           []string{},
			RemoteCompleted: []string{},
			NoChanges:       []string{},
			Orphaned:        []string{},
		},
		Errors: []RecordError{},
	}
}

func (r *Result) recordError(title, reason string) {
	r.Errors = append(r.Errors, RecordError{Title: title, Reason: reason})
	r.Summary.Failed++
}
