package sync

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/lmsync/pkg/dates"
	"github.com/harrisonrobin/lmsync/pkg/model"
	"github.com/harrisonrobin/lmsync/pkg/store"
	"github.com/harrisonrobin/lmsync/pkg/todoist"
)

// fakeRemote is an in-memory RemoteClient. Tasks carry linkage in their
// descriptions exactly as the real provider would return them.
type fakeRemote struct {
	projectID string
	active    map[string]todoist.Task // keyed by task id
	completed map[string]todoist.Task

	createErr  error
	listErr    error
	nextTaskID int
	creates    int
	updates    int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		projectID: "p-1",
		active:    map[string]todoist.Task{},
		completed: map[string]todoist.Task{},
	}
}

func (f *fakeRemote) GetOrCreateProject(ctx context.Context, name string) (string, error) {
	return f.projectID, nil
}

func (f *fakeRemote) ListActiveTasks(ctx context.Context, projectID string) ([]todoist.Task, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var tasks []todoist.Task
	for _, t := range f.active {
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (f *fakeRemote) ListCompletedTasks(ctx context.Context, projectID string) ([]todoist.Task, error) {
	var tasks []todoist.Task
	for _, t := range f.completed {
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (f *fakeRemote) GetTask(ctx context.Context, taskID string) (*todoist.Task, error) {
	if t, ok := f.active[taskID]; ok {
		return &t, nil
	}
	return nil, &todoist.APIError{StatusCode: 404, Body: "not found"}
}

func (f *fakeRemote) CreateTask(ctx context.Context, rec model.AssignmentRecord, projectID string, mode dates.Mode) (*todoist.Task, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.creates++
	f.nextTaskID++
	t := todoist.Task{
		ID:          fmt.Sprintf("t-%d", f.nextTaskID),
		ProjectID:   projectID,
		Content:     todoist.FormatContent(rec),
		Description: todoist.FormatDescription(rec),
	}
	if target := dates.ComputeTargetDate(rec.DueDate, rec.OpeningDate, mode, time.Now()); !target.IsZero() {
		t.Due = &todoist.Due{Date: dates.FormatISO(target)}
	}
	f.active[t.ID] = t
	return &t, nil
}

func (f *fakeRemote) UpdateTask(ctx context.Context, taskID string, rec model.AssignmentRecord, mode dates.Mode) (*todoist.Task, error) {
	t, ok := f.active[taskID]
	if !ok {
		return nil, &todoist.APIError{StatusCode: 404, Body: "not found"}
	}
	f.updates++
	t.Content = todoist.FormatContent(rec)
	t.Description = todoist.FormatDescription(rec)
	if target := dates.ComputeTargetDate(rec.DueDate, rec.OpeningDate, mode, time.Now()); !target.IsZero() {
		t.Due = &todoist.Due{Date: dates.FormatISO(target)}
	}
	f.active[taskID] = t
	return &t, nil
}

// complete moves a remote task to the completed listing.
func (f *fakeRemote) complete(taskID string) {
	t := f.active[taskID]
	t.IsCompleted = true
	delete(f.active, taskID)
	f.completed[taskID] = t
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "lmsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func putRecord(t *testing.T, s *store.Store, id, title string, status model.Status) model.AssignmentRecord {
	t.Helper()
	now := time.Now()
	rec := model.AssignmentRecord{
		ID:            id,
		Title:         title,
		CourseCode:    "CS101",
		ActivityType:  model.ActivityAssignment,
		DueDate:       dates.FormatISO(now.AddDate(0, 0, 10)),
		OpeningDate:   model.NoOpeningDate,
		Status:        status,
		Source:        "scrape",
		AddedAt:       now,
		LastUpdatedAt: now,
	}
	require.NoError(t, s.Put(rec))
	return rec
}

func TestRunCreatesNewTasks(t *testing.T) {
	s := testStore(t)
	remote := newFakeRemote()
	putRecord(t, s, "42", "Recursion Lab", model.StatusPending)
	putRecord(t, s, "43", "Sorting Quiz", model.StatusPending)

	result := New(s, remote, "School", dates.ModeSmart, nil).Run(context.Background())

	assert.ElementsMatch(t, []string{"Recursion Lab", "Sorting Quiz"}, result.Added)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 2, result.Summary.Total)
	assert.Equal(t, 2, result.Summary.Processed)
	assert.Equal(t, 2, remote.creates)

	// Linkage landed on the records and in the ledger.
	rec, err := s.Get("42")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.RemoteTaskID)
	ledger, err := s.Ledger()
	require.NoError(t, err)
	assert.Contains(t, ledger, "42")
	assert.Contains(t, ledger, "43")
}

func TestRunConvergesToNoChanges(t *testing.T) {
	s := testStore(t)
	remote := newFakeRemote()
	putRecord(t, s, "42", "Recursion Lab", model.StatusPending)

	engine := New(s, remote, "School", dates.ModeSmart, nil)
	first := engine.Run(context.Background())
	require.Empty(t, first.Errors)

	second := engine.Run(context.Background())
	assert.Empty(t, second.Added)
	assert.Empty(t, second.Updated)
	assert.Equal(t, []string{"Recursion Lab"}, second.Skipped.NoChanges)
	assert.Equal(t, 1, remote.creates, "second run must not create again")
	assert.Zero(t, remote.updates, "second run must not rewrite an unchanged task")
}

func TestRunUpdatesChangedRecord(t *testing.T) {
	s := testStore(t)
	remote := newFakeRemote()
	rec := putRecord(t, s, "42", "Recursion Lab", model.StatusPending)

	engine := New(s, remote, "School", dates.ModeSmart, nil)
	require.Empty(t, engine.Run(context.Background()).Errors)

	rec.Title = "Recursion Lab v2"
	require.NoError(t, s.Put(rec))

	result := engine.Run(context.Background())
	assert.Equal(t, []string{"Recursion Lab v2"}, result.Updated)
	assert.Equal(t, 1, remote.updates)
}

func TestRunSkipsLocalCompleted(t *testing.T) {
	s := testStore(t)
	remote := newFakeRemote()
	putRecord(t, s, "42", "Recursion Lab", model.StatusCompleted)

	result := New(s, remote, "School", dates.ModeSmart, nil).Run(context.Background())

	assert.Equal(t, []string{"Recursion Lab"}, result.Skipped.Local)
	assert.Zero(t, remote.creates, "completed records never touch the remote API")
	assert.Equal(t, 1, result.Summary.Processed)
}

func TestRunRemoteCompletedFlowsBack(t *testing.T) {
	s := testStore(t)
	remote := newFakeRemote()
	putRecord(t, s, "42", "Recursion Lab", model.StatusPending)

	engine := New(s, remote, "School", dates.ModeSmart, nil)
	require.Empty(t, engine.Run(context.Background()).Errors)

	// The user ticks the task off remotely.
	rec, err := s.Get("42")
	require.NoError(t, err)
	remote.complete(rec.RemoteTaskID)

	result := engine.Run(context.Background())
	assert.Equal(t, []string{"Recursion Lab"}, result.Skipped.RemoteCompleted)
	assert.Equal(t, 1, remote.creates, "completion must not resurrect the task")

	// Completion flowed back so the next run skips locally.
	rec, err = s.Get("42")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, rec.Status)

	third := engine.Run(context.Background())
	assert.Equal(t, []string{"Recursion Lab"}, third.Skipped.Local)
}

func TestRunOrphanProtection(t *testing.T) {
	s := testStore(t)
	remote := newFakeRemote()
	rec := putRecord(t, s, "42", "Recursion Lab", model.StatusPending)

	engine := New(s, remote, "School", dates.ModeSmart, nil)
	require.Empty(t, engine.Run(context.Background()).Errors)

	// The task disappears remotely (deleted by the user).
	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	delete(remote.active, got.RemoteTaskID)

	result := engine.Run(context.Background())
	assert.Equal(t, []string{"Recursion Lab"}, result.Skipped.Orphaned)
	assert.Equal(t, 1, remote.creates, "orphan must not be recreated")
}

func TestRunAbortsWithoutClient(t *testing.T) {
	s := testStore(t)
	putRecord(t, s, "42", "Recursion Lab", model.StatusPending)

	result := New(s, nil, "School", dates.ModeSmart, nil).Run(context.Background())

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Reason, "token not configured")
	assert.Equal(t, 1, result.Summary.Total)
	assert.Zero(t, result.Summary.Processed)
	assert.Equal(t, 1, result.Summary.Failed)
}

func TestRunAbortsOnListingFailure(t *testing.T) {
	s := testStore(t)
	remote := newFakeRemote()
	remote.listErr = errors.New("remote listing unavailable")
	putRecord(t, s, "42", "Recursion Lab", model.StatusPending)

	result := New(s, remote, "School", dates.ModeSmart, nil).Run(context.Background())

	require.Len(t, result.Errors, 1)
	assert.Zero(t, result.Summary.Processed, "a partial remote view must abort the run")
	assert.Zero(t, remote.creates)
}

func TestRunContinuesPastRecordError(t *testing.T) {
	s := testStore(t)
	remote := newFakeRemote()
	putRecord(t, s, "42", "Recursion Lab", model.StatusPending)
	putRecord(t, s, "43", "Sorting Quiz", model.StatusPending)

	remote.createErr = errors.New("rate limited")
	engine := New(s, remote, "School", dates.ModeSmart, nil)
	result := engine.Run(context.Background())

	assert.Len(t, result.Errors, 2)
	assert.Equal(t, 2, result.Summary.Failed)

	// Next run with a healthy remote recovers both.
	remote.createErr = nil
	result = engine.Run(context.Background())
	assert.Len(t, result.Added, 2)
	assert.Empty(t, result.Errors)
}

func TestRunPersistsResult(t *testing.T) {
	s := testStore(t)
	remote := newFakeRemote()
	putRecord(t, s, "42", "Recursion Lab", model.StatusPending)

	New(s, remote, "School", dates.ModeSmart, nil).Run(context.Background())

	blob, err := s.LastSyncResult()
	require.NoError(t, err)
	assert.Contains(t, blob, "Recursion Lab")
	at, err := s.LastSyncAt()
	require.NoError(t, err)
	assert.False(t, at.IsZero())
}

func TestClassify(t *testing.T) {
	task := todoist.Task{ID: "t-1"}
	ledgered := map[string]model.LedgerEntry{"42": {ID: "42", RemoteTaskID: "t-1"}}

	tests := []struct {
		name      string
		rec       model.AssignmentRecord
		active    map[string]todoist.Task
		completed map[string]todoist.Task
		ledger    map[string]model.LedgerEntry
		want      Classification
	}{
		{"local completed wins", model.AssignmentRecord{ID: "42", Status: model.StatusCompleted},
			map[string]todoist.Task{"42": task}, nil, ledgered, ClassLocalCompleted},
		{"active remote", model.AssignmentRecord{ID: "42", Status: model.StatusPending},
			map[string]todoist.Task{"42": task}, nil, nil, ClassExistingChanged},
		{"completed remote", model.AssignmentRecord{ID: "42", Status: model.StatusPending},
			nil, map[string]todoist.Task{"42": task}, nil, ClassRemoteCompleted},
		{"ledgered but gone", model.AssignmentRecord{ID: "42", Status: model.StatusPending},
			nil, nil, ledgered, ClassOrphaned},
		{"never seen", model.AssignmentRecord{ID: "42", Status: model.StatusPending},
			nil, nil, nil, ClassNew},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.rec, tt.active, tt.completed, tt.ledger)
			assert.Equal(t, tt.want, got)
		})
	}
}
