// Package watch ingests record files dropped into a directory.
//
// Files already present are ingested when the watcher starts. Files created
// or written later are ingested after a quiet period so that a writer
// producing a file in several chunks triggers a single ingest. Files are
// treated as append-only: a file that grows only contributes its new
// records, and a file that shrinks is ingested again from the start.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/fintweet/internal/adapters/driven/records"
	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/ports/driving"
	"github.com/custodia-labs/fintweet/internal/logger"
)

// DefaultDebounce is the quiet period after the last event for a path.
const DefaultDebounce = 500 * time.Millisecond

// RecordReader reads every record from a file.
type RecordReader func(path string) ([]domain.Record, error)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithReader replaces the record reader.
func WithReader(read RecordReader) Option {
	return func(w *Watcher) {
		if read != nil {
			w.read = read
		}
	}
}

// OnIngest registers a callback invoked after each successful file ingest.
func OnIngest(fn func(path string, report *domain.IngestReport)) Option {
	return func(w *Watcher) {
		w.onIngest = fn
	}
}

// Watcher ingests supported record files found in a directory.
type Watcher struct {
	dir      string
	ingest   driving.IngestService
	read     RecordReader
	debounce time.Duration
	onIngest func(path string, report *domain.IngestReport)

	mu     sync.Mutex
	timers map[string]*time.Timer
	// consumed is the number of records already ingested per path.
	consumed map[string]int
}

// New creates a watcher for dir.
func New(dir string, ingest driving.IngestService, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		ingest:   ingest,
		read:     records.ReadFile,
		debounce: DefaultDebounce,
		timers:   make(map[string]*time.Timer),
		consumed: make(map[string]int),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run ingests existing files and then watches the directory until ctx is
// cancelled. Per-file failures are logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, w.dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Subscribe before the initial scan so nothing written in between is missed.
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	if _, err := w.IngestExisting(ctx); err != nil {
		return err
	}

	logger.Info("watching %s for record files", w.dir)

	ready := make(chan string, 16)
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if path, ok := w.relevant(event); ok {
				w.schedule(ctx, path, ready)
			}

		case path := <-ready:
			w.ingestPath(ctx, path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch %s: %v", w.dir, err)
		}
	}
}

// IngestExisting ingests every supported file currently in the directory,
// in name order, and returns how many were ingested successfully.
func (w *Watcher) IngestExisting(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", w.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !eligible(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	ok := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return ok, err
		}
		if w.ingestPath(ctx, filepath.Join(w.dir, name)) {
			ok++
		}
	}
	return ok, nil
}

// relevant reports whether an event should trigger an ingest of its path.
func (w *Watcher) relevant(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if !eligible(filepath.Base(event.Name)) {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return "", false
	}
	return event.Name, true
}

// schedule (re)starts the debounce timer for path.
func (w *Watcher) schedule(ctx context.Context, path string, ready chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

// ingestPath reads path and ingests the records not yet consumed from it.
func (w *Watcher) ingestPath(ctx context.Context, path string) bool {
	recs, err := w.read(path)
	if err != nil {
		logger.Warn("watch: skip %s: %v", filepath.Base(path), err)
		return false
	}

	w.mu.Lock()
	offset := w.consumed[path]
	w.mu.Unlock()

	if len(recs) < offset {
		logger.Debug("watch: %s shrank from %d to %d records, re-ingesting", filepath.Base(path), offset, len(recs))
		offset = 0
	}
	fresh := recs[offset:]
	if len(fresh) == 0 {
		return true
	}

	report, err := w.ingest.Ingest(ctx, fresh)
	if err != nil {
		logger.Warn("watch: ingest %s: %v", filepath.Base(path), err)
		return false
	}

	w.mu.Lock()
	w.consumed[path] = len(recs)
	w.mu.Unlock()

	logger.Info("watch: %s: %d new records, %d indexed", filepath.Base(path), len(fresh), report.Inserted)
	if w.onIngest != nil {
		w.onIngest(path, report)
	}
	return true
}

// eligible reports whether name is a visible, supported record file.
func eligible(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return records.Supported(name)
}
