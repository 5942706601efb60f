// Package sync is the reconciliation engine: it classifies each local
// assignment against remote and ledger state and issues the minimum set of
// remote writes to bring the two sides into agreement.
package sync

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrisonrobin/lmsync/pkg/dates"
	"github.com/harrisonrobin/lmsync/pkg/model"
	"github.com/harrisonrobin/lmsync/pkg/store"
	"github.com/harrisonrobin/lmsync/pkg/todoist"
)

// RemoteClient is what the engine needs from the remote task provider.
// *todoist.Client satisfies it; tests substitute a fake.
type RemoteClient interface {
	GetOrCreateProject(ctx context.Context, name string) (string, error)
	ListActiveTasks(ctx context.Context, projectID string) ([]todoist.Task, error)
	ListCompletedTasks(ctx context.Context, projectID string) ([]todoist.Task, error)
	GetTask(ctx context.Context, taskID string) (*todoist.Task, error)
	CreateTask(ctx context.Context, rec model.AssignmentRecord, projectID string, mode dates.Mode) (*todoist.Task, error)
	UpdateTask(ctx context.Context, taskID string, rec model.AssignmentRecord, mode dates.Mode) (*todoist.Task, error)
}

// Run lock TTL: generous, the lock exists to stop interleaved runs, not to
// time anything out.
const lockTTL = 10 * time.Minute

// Engine drives one reconciliation run at a time against a single store.
type Engine struct {
	store   *store.Store
	client  RemoteClient
	project string
	mode    dates.Mode
	logger  *log.Logger
	now     model.Clock
}

// New creates an Engine. client may be nil when no credential is
// configured; Run then short-circuits with a credential error. A nil
// logger defaults to stderr.
func New(st *store.Store, client RemoteClient, project string, mode dates.Mode, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	if mode == "" {
		mode = dates.ModeSmart
	}
	return &Engine{
		store:   st,
		client:  client,
		project: project,
		mode:    mode,
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes one reconciliation pass over every active record and always
// returns a structured result; failures are reported inside it. Run-level
// failures (credential, project, remote listings) abort with zero records
// processed; per-record failures are recorded and the run continues.
func (e *Engine) Run(ctx context.Context) *Result {
	result := newResult()

	records, err := e.store.ListActive()
	if err != nil {
		return e.abort(result, "failed to read local store: "+err.Error())
	}
	result.Summary.Total = len(records)

	if e.client == nil {
		return e.abort(result, "Todoist token not configured.")
	}

	owner := uuid.NewString()
	if err := e.store.AcquireRunLock(owner, lockTTL, e.now()); err != nil {
		return e.abort(result, err.Error())
	}
	defer func() {
		if err := e.store.ReleaseRunLock(owner); err != nil {
			e.logger.Printf("failed to release run lock: %v", err)
		}
	}()

	// 1. Records already Completed locally never touch the remote API.
	// They are skipped rather than force-closed remotely.
	var candidates []model.AssignmentRecord
	for _, rec := range records {
		if rec.Status == model.StatusCompleted {
			result.Skipped.Local = append(result.Skipped.Local, rec.Title)
			result.Summary.Processed++
			continue
		}
		candidates = append(candidates, rec)
	}

	projectID, err := e.client.GetOrCreateProject(ctx, e.project)
	if err != nil {
		result.Summary.Processed = 0
		return e.abort(result, "project "+e.project+" not found or not creatable: "+err.Error())
	}

	// 2. Fetch both remote listings once, not per record. A failed listing
	// aborts the run: classifying against a partial view would recreate
	// tasks that still exist.
	active, err := e.client.ListActiveTasks(ctx, projectID)
	if err != nil {
		result.Summary.Processed = 0
		return e.abort(result, "failed to list remote tasks: "+err.Error())
	}
	completed, err := e.client.ListCompletedTasks(ctx, projectID)
	if err != nil {
		result.Summary.Processed = 0
		return e.abort(result, "failed to list completed remote tasks: "+err.Error())
	}
	activeByID := tasksByLocalID(active)
	completedByID := tasksByLocalID(completed)

	// 3. The ledger of previously pushed ids, for orphan protection.
	ledger, err := e.store.Ledger()
	if err != nil {
		result.Summary.Processed = 0
		return e.abort(result, "failed to read sync ledger: "+err.Error())
	}

	for _, rec := range candidates {
		e.reconcileRecord(ctx, rec, projectID, activeByID, completedByID, ledger, result)
	}

	e.persistResult(result)
	e.logger.Printf("run complete: %d added, %d updated, %d errors (of %d)",
		len(result.Added), len(result.Updated), len(result.Errors), result.Summary.Total)
	return result
}

// Classify returns the verdict for one record against the remote maps and
// the ledger, in priority order.
func Classify(rec model.AssignmentRecord, activeByID, completedByID map[string]todoist.Task, ledger map[string]model.LedgerEntry) Classification {
	if rec.Status == model.StatusCompleted {
		return ClassLocalCompleted
	}
	if _, ok := activeByID[rec.ID]; ok {
		return ClassExistingChanged // candidate; unchanged is decided after comparison
	}
	if _, ok := completedByID[rec.ID]; ok {
		return ClassRemoteCompleted
	}
	if _, ok := ledger[rec.ID]; ok {
		return ClassOrphaned
	}
	return ClassNew
}

func (e *Engine) reconcileRecord(ctx context.Context, rec model.AssignmentRecord, projectID string,
	activeByID, completedByID map[string]todoist.Task, ledger map[string]model.LedgerEntry, result *Result) {

	switch Classify(rec, activeByID, completedByID, ledger) {
	case ClassExistingChanged:
		e.reconcileExisting(ctx, rec, activeByID[rec.ID].ID, result)

	case ClassRemoteCompleted:
		// Done on the remote side; do not resurrect. Completion flows back
		// into the local record so the next run skips it locally too.
		rec.Status = model.StatusCompleted
		rec.LastUpdatedAt = e.now()
		if err := e.store.Put(rec); err != nil {
			result.recordError(rec.Title, "failed to record remote completion: "+err.Error())
			return
		}
		result.Skipped.RemoteCompleted = append(result.Skipped.RemoteCompleted, rec.Title)
		result.Summary.Processed++

	case ClassOrphaned:
		// Previously synced but gone from both remote listings: the task
		// was deleted remotely. Recreating here would turn every transient
		// remote deletion into a duplicate-creation storm.
		result.Skipped.Orphaned = append(result.Skipped.Orphaned, rec.Title)
		result.Summary.Processed++

	case ClassNew:
		task, err := e.client.CreateTask(ctx, rec, projectID, e.mode)
		if err != nil {
			result.recordError(rec.Title, err.Error())
			return
		}
		if err := e.linkRecord(rec.ID, task.ID); err != nil {
			result.recordError(rec.Title, err.Error())
			return
		}
		result.Added = append(result.Added, rec.Title)
		result.Summary.Processed++
	}
}

// reconcileExisting fetches the live remote task, compares it with what we
// would write, and updates only on a real difference. This comparison is
// what makes repeated runs idempotent.
func (e *Engine) reconcileExisting(ctx context.Context, rec model.AssignmentRecord, taskID string, result *Result) {
	task, err := e.client.GetTask(ctx, taskID)
	if err != nil {
		result.recordError(rec.Title, err.Error())
		return
	}

	if !e.needsUpdate(rec, task) {
		result.Skipped.NoChanges = append(result.Skipped.NoChanges, rec.Title)
		result.Summary.Processed++
		// Self-heal the linkage if the store lost it (e.g. after a reset).
		if rec.RemoteTaskID != taskID {
			if err := e.linkRecord(rec.ID, taskID); err != nil {
				e.logger.Printf("failed to relink %s: %v", rec.ID, err)
			}
		}
		return
	}

	if _, err := e.client.UpdateTask(ctx, taskID, rec, e.mode); err != nil {
		result.recordError(rec.Title, err.Error())
		return
	}
	if err := e.linkRecord(rec.ID, taskID); err != nil {
		result.recordError(rec.Title, err.Error())
		return
	}
	result.Updated = append(result.Updated, rec.Title)
	result.Summary.Processed++
}

// needsUpdate compares the remote task's content and due date against what
// the record and date policy would produce now.
func (e *Engine) needsUpdate(rec model.AssignmentRecord, task *todoist.Task) bool {
	wantContent := strings.ToLower(strings.TrimSpace(todoist.FormatContent(rec)))
	haveContent := strings.ToLower(strings.TrimSpace(task.Content))
	if wantContent != haveContent {
		return true
	}
	target := dates.ComputeTargetDate(rec.DueDate, rec.OpeningDate, e.mode, e.now())
	if !target.IsZero() && dates.FormatISO(target) != task.DueDate() {
		return true
	}
	return false
}

// linkRecord persists the local-to-remote linkage in both the record and
// the sync ledger.
func (e *Engine) linkRecord(id, taskID string) error {
	now := e.now()
	if err := e.store.SetSyncState(id, taskID, now); err != nil {
		return err
	}
	return e.store.RecordSynced(id, taskID, now)
}

// abort short-circuits the whole run with a single top-level error.
func (e *Engine) abort(result *Result, reason string) *Result {
	result.Errors = append(result.Errors, RecordError{Title: "Sync Error", Reason: reason})
	result.Summary.Failed = result.Summary.Total - result.Summary.Processed
	result.Summary.Processed = 0
	e.persistResult(result)
	e.logger.Printf("run aborted: %s", reason)
	return result
}

func (e *Engine) persistResult(result *Result) {
	blob, err := json.Marshal(result)
	if err != nil {
		e.logger.Printf("failed to encode sync result: %v", err)
		return
	}
	if err := e.store.SetLastSync(e.now(), string(blob)); err != nil {
		e.logger.Printf("failed to persist sync result: %v", err)
	}
}

// tasksByLocalID indexes remote tasks by the local id embedded in their
// descriptions. Tasks without a decodable linkage are ignored.
func tasksByLocalID(tasks []todoist.Task) map[string]todoist.Task {
	byID := make(map[string]todoist.Task, len(tasks))
	for _, t := range tasks {
		if id := todoist.DecodeLinkage(t.Description); id != "" {
			byID[id] = t
		}
	}
	return byID
}
