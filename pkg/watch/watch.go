// Package watch runs the unattended mode: it watches a spool directory for
// batch files dropped by the scraping collaborator and reconciles on a
// timer.
//
// The scraper writes one JSON array of raw assignments per file. Processed
// files are renamed *.done so a crash never re-ingests half a spool;
// undecodable files are renamed *.err and left for inspection.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/harrisonrobin/lmsync/pkg/app"
	"github.com/harrisonrobin/lmsync/pkg/model"
)

// debounce batches rapid writes to the same spool file (editors and
// renames produce several events per file).
const debounce = 250 * time.Millisecond

// Watcher ingests spool files and triggers periodic reconciliation.
type Watcher struct {
	app      *app.App
	spoolDir string
	interval time.Duration
	logger   *log.Logger

	pending   map[string]time.Time
	pendingMu sync.Mutex
}

// New creates a Watcher. interval is how often a reconciliation run fires;
// zero disables the timer (spool ingestion still runs).
func New(a *app.App, spoolDir string, interval time.Duration, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.New(os.Stderr, "[watch] ", log.LstdFlags)
	}
	return &Watcher{
		app:      a,
		spoolDir: spoolDir,
		interval: interval,
		logger:   logger,
		pending:  map[string]time.Time{},
	}
}

// Run watches until ctx is cancelled. Files already sitting in the spool
// are ingested on startup.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.spoolDir, 0700); err != nil {
		return fmt.Errorf("failed to create spool directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.spoolDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.spoolDir, err)
	}

	w.ingestExisting(ctx)

	var reconcileC <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		reconcileC = ticker.C
	}

	flush := time.NewTicker(debounce)
	defer flush.Stop()

	w.logger.Printf("watching %s (reconcile every %s)", w.spoolDir, w.interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isSpoolFile(event.Name) {
				continue
			}
			w.pendingMu.Lock()
			w.pending[event.Name] = time.Now()
			w.pendingMu.Unlock()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Printf("watch error: %v", err)

		case <-flush.C:
			for _, path := range w.takeQuiesced() {
				w.ingestFile(ctx, path)
			}

		case <-reconcileC:
			result := w.app.Reconcile(ctx)
			w.logger.Printf("scheduled sync: %d added, %d updated, %d errors",
				len(result.Added), len(result.Updated), len(result.Errors))
		}
	}
}

// takeQuiesced returns pending paths whose last event is older than the
// debounce window and removes them from the queue.
func (w *Watcher) takeQuiesced() []string {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	var ready []string
	cutoff := time.Now().Add(-debounce)
	for path, last := range w.pending {
		if last.Before(cutoff) {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	return ready
}

func (w *Watcher) ingestExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.spoolDir)
	if err != nil {
		w.logger.Printf("failed to read spool directory: %v", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.spoolDir, entry.Name())
		if isSpoolFile(path) {
			w.ingestFile(ctx, path)
		}
	}
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Printf("failed to read %s: %v", path, err)
		}
		return
	}

	var batch []model.RawAssignment
	if err := json.Unmarshal(data, &batch); err != nil {
		w.logger.Printf("undecodable batch %s: %v", path, err)
		w.rename(path, ".err")
		return
	}

	merged, err := w.app.ScrapeAndMerge(ctx, batch)
	if err != nil {
		w.logger.Printf("failed to merge %s: %v", path, err)
		return
	}
	w.logger.Printf("ingested %s: %d records in batch, store now %d", filepath.Base(path), len(batch), merged)
	w.rename(path, ".done")
}

func (w *Watcher) rename(path, suffix string) {
	if err := os.Rename(path, path+suffix); err != nil {
		w.logger.Printf("failed to rename %s: %v", path, err)
	}
}

func isSpoolFile(path string) bool {
	return strings.HasSuffix(path, ".json")
}
