// Package app is the façade the scheduling and UI collaborators call:
// batch intake, reconciliation, credential checks, archive maintenance and
// the hard reset.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/harrisonrobin/lmsync/pkg/config"
	"github.com/harrisonrobin/lmsync/pkg/dates"
	"github.com/harrisonrobin/lmsync/pkg/identity"
	"github.com/harrisonrobin/lmsync/pkg/merge"
	"github.com/harrisonrobin/lmsync/pkg/model"
	"github.com/harrisonrobin/lmsync/pkg/store"
	"github.com/harrisonrobin/lmsync/pkg/sync"
	"github.com/harrisonrobin/lmsync/pkg/todoist"
)

// How long a deferred status resolution may hold up intake of one record.
const statusResolveTimeout = 10 * time.Second

// App wires the store, the merge engine and the reconciliation engine
// behind the operations the outside world sees.
type App struct {
	cfg    *config.Config
	store  *store.Store
	logger *log.Logger
	now    model.Clock

	// newClient builds the remote client for a token. Tests swap these.
	newClient func(token string) sync.RemoteClient
	testConn  func(ctx context.Context, token string) bool
}

// New creates the App. A nil logger defaults to stderr.
func New(cfg *config.Config, st *store.Store, logger *log.Logger) *App {
	if logger == nil {
		logger = log.New(os.Stderr, "[lmsync] ", log.LstdFlags)
	}
	return &App{
		cfg:    cfg,
		store:  st,
		logger: logger,
		now:    time.Now,
		newClient: func(token string) sync.RemoteClient {
			return todoist.NewClient(token)
		},
		testConn: func(ctx context.Context, token string) bool {
			return todoist.NewClient(token).TestConnection(ctx)
		},
	}
}

// ScrapeAndMerge folds a batch of raw observations into the store and
// returns the size of the merged set. Records whose status is still being
// resolved by the scraper are waited on briefly; an unresolved status just
// leaves the stored status untouched.
func (a *App) ScrapeAndMerge(ctx context.Context, batch []model.RawAssignment) (int, error) {
	observations := make([]model.Observation, 0, len(batch))
	for _, raw := range batch {
		a.resolveStatus(ctx, &raw)
		observations = append(observations, identity.Normalize(raw))
	}

	existing, err := a.store.ActiveByID()
	if err != nil {
		return 0, fmt.Errorf("failed to read store: %w", err)
	}

	res := merge.Merge(existing, observations, a.now)
	if err := a.store.ApplyMerge(res.Records, a.now()); err != nil {
		return 0, fmt.Errorf("failed to apply merge: %w", err)
	}

	a.logger.Printf("merged batch: %d new, %d updated, %d dropped (store now %d)",
		res.Created, res.Updated, res.Dropped, len(res.Records))
	return len(res.Records), nil
}

// resolveStatus waits (bounded) for a deferred status fetch. Failures
// degrade to "status not provided".
func (a *App) resolveStatus(ctx context.Context, raw *model.RawAssignment) {
	if raw.StatusFn == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, statusResolveTimeout)
	defer cancel()
	status, err := raw.StatusFn(ctx)
	if err != nil {
		a.logger.Printf("status resolution failed for %q: %v", raw.Title, err)
		return
	}
	raw.Status = status
}

// Reconcile runs one reconciliation pass and returns its structured result.
func (a *App) Reconcile(ctx context.Context) *sync.Result {
	var client sync.RemoteClient
	if a.cfg.Token != "" {
		client = a.newClient(a.cfg.Token)
	}
	engine := sync.New(a.store, client, a.projectName(), dates.Mode(a.cfg.DateMode), a.logger)
	return engine.Run(ctx)
}

// TestCredential checks a token against the provider; an empty token falls
// back to the configured one.
func (a *App) TestCredential(ctx context.Context, token string) bool {
	if token == "" {
		token = a.cfg.Token
	}
	if token == "" {
		return false
	}
	return a.testConn(ctx, token)
}

// ArchiveStats reports an archive sweep.
type ArchiveStats struct {
	ActiveCount   int `json:"active_count"`
	ArchivedCount int `json:"archived_count"`
}

// ArchiveCompleted moves records that have stayed Completed beyond the
// retention window into the archive.
func (a *App) ArchiveCompleted(retentionDays int) (ArchiveStats, error) {
	if retentionDays <= 0 {
		retentionDays = a.cfg.RetentionDays
	}
	now := a.now()
	cutoff := now.AddDate(0, 0, -retentionDays)
	active, archived, err := a.store.ArchiveCompletedBefore(cutoff, now)
	if err != nil {
		return ArchiveStats{}, fmt.Errorf("failed to archive completed assignments: %w", err)
	}
	a.logger.Printf("archive sweep: %d archived, %d still active", archived, active)
	return ArchiveStats{ActiveCount: active, ArchivedCount: archived}, nil
}

// Archive moves one assignment to the archive by explicit user action.
func (a *App) Archive(id string) error {
	return a.store.Archive(id, model.ArchiveManual, a.now())
}

// Restore moves an archived assignment back to the active store.
func (a *App) Restore(id string) error {
	return a.store.Restore(id)
}

// DeleteArchived removes an archive entry permanently (maintenance only).
func (a *App) DeleteArchived(id string) error {
	return a.store.DeleteArchived(id)
}

// ListAssignments returns the active records.
func (a *App) ListAssignments() ([]model.AssignmentRecord, error) {
	return a.store.ListActive()
}

// ListArchive returns archive entries, newest first.
func (a *App) ListArchive() ([]model.ArchiveEntry, error) {
	return a.store.ListArchive()
}

// ClearAll wipes the active store, the archive and the sync ledger.
func (a *App) ClearAll() error {
	if err := a.store.ClearAll(); err != nil {
		return err
	}
	a.logger.Printf("store cleared")
	return nil
}

// Status is the snapshot the UI collaborator polls.
type Status struct {
	ActiveCount    int             `json:"active_count"`
	ArchivedCount  int             `json:"archived_count"`
	LastMergeAt    time.Time       `json:"last_merge_at,omitzero"`
	LastSyncAt     time.Time       `json:"last_sync_at,omitzero"`
	LastSyncResult json.RawMessage `json:"last_sync_result,omitempty"`
}

// Status reports store counts and the last merge/sync bookkeeping.
func (a *App) Status() (*Status, error) {
	records, err := a.store.ListActive()
	if err != nil {
		return nil, err
	}
	entries, err := a.store.ListArchive()
	if err != nil {
		return nil, err
	}
	st := &Status{ActiveCount: len(records), ArchivedCount: len(entries)}
	if st.LastMergeAt, err = a.store.LastMergeAt(); err != nil {
		return nil, err
	}
	if st.LastSyncAt, err = a.store.LastSyncAt(); err != nil {
		return nil, err
	}
	if raw, err := a.store.LastSyncResult(); err == nil && raw != "" {
		st.LastSyncResult = json.RawMessage(raw)
	}
	return st, nil
}

func (a *App) projectName() string {
	if a.cfg.ProjectName != "" {
		return a.cfg.ProjectName
	}
	return config.DefaultProjectName
}
