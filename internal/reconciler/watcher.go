package reconciler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"knowledgecore/pkg/logging"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is how long the watcher waits for further changes before
// emitting an event.
const DefaultDebounceInterval = 500 * time.Millisecond

// ManifestWatcher emits a ChangeEvent when a manifest file changes. It watches the
// parent directory so editors that replace the file on save are still seen.
type ManifestWatcher struct {
	mu sync.Mutex

	path     string
	dir      string
	debounce time.Duration

	watcher *fsnotify.Watcher
	pending *debounceEntry
	stopCh  chan struct{}
	done    chan struct{}
	running bool
}

// debounceEntry is a change waiting for its debounce timer.
type debounceEntry struct {
	event ChangeEvent
	timer *time.Timer
}

// NewManifestWatcher creates a watcher for the manifest at path. A zero interval
// uses DefaultDebounceInterval.
func NewManifestWatcher(path string, debounce time.Duration) (*ManifestWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest path %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounceInterval
	}
	return &ManifestWatcher{
		path:     filepath.Clean(abs),
		dir:      filepath.Dir(abs),
		debounce: debounce,
	}, nil
}

// Path returns the absolute path being watched.
func (w *ManifestWatcher) Path() string {
	return w.path
}

// Start begins watching. Events are sent to changes without blocking; when changes is
// full the event is dropped, since the next one triggers the same run.
func (w *ManifestWatcher) Start(ctx context.Context, changes chan<- ChangeEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.watcher = watcher
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	w.running = true

	go w.processEvents(ctx, watcher, w.stopCh, w.done, changes)

	logging.Info("ManifestWatcher", "Watching %s for changes", w.path)
	return nil
}

func (w *ManifestWatcher) processEvents(ctx context.Context, watcher *fsnotify.Watcher, stopCh, done chan struct{}, changes chan<- ChangeEvent) {
	defer close(done)
	defer w.cancelPending()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event, changes)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error("ManifestWatcher", err, "File watcher error")
		}
	}
}

// handleFsEvent turns an event on the manifest file into a debounced change.
func (w *ManifestWatcher) handleFsEvent(event fsnotify.Event, changes chan<- ChangeEvent) {
	if filepath.Clean(event.Name) != w.path {
		return
	}

	var operation ChangeOperation
	switch {
	case event.Has(fsnotify.Create):
		operation = OperationCreate
	case event.Has(fsnotify.Write):
		operation = OperationUpdate
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		operation = OperationDelete
	default:
		return
	}

	w.debounceEvent(ChangeEvent{
		FilePath:  w.path,
		Operation: operation,
		Timestamp: time.Now(),
	}, changes)
}

// debounceEvent restarts the debounce timer, merging with a pending change.
func (w *ManifestWatcher) debounceEvent(event ChangeEvent, changes chan<- ChangeEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.timer.Stop()
		event.Operation = mergeOperations(w.pending.event.Operation, event.Operation)
	}

	entry := &debounceEntry{event: event}
	entry.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.pending != entry {
			w.mu.Unlock()
			return
		}
		w.pending = nil
		w.mu.Unlock()

		select {
		case changes <- entry.event:
			logging.Debug("ManifestWatcher", "Emitted %s for %s", entry.event.Operation, entry.event.FilePath)
		default:
			logging.Warn("ManifestWatcher", "Change channel full, dropping %s for %s", entry.event.Operation, entry.event.FilePath)
		}
	})
	w.pending = entry
}

// mergeOperations folds two successive operations into one. A removal followed by a
// create, the usual atomic save, counts as an update.
func mergeOperations(prev, next ChangeOperation) ChangeOperation {
	switch {
	case prev == OperationCreate && next != OperationDelete:
		return OperationCreate
	case prev == OperationDelete && next == OperationCreate:
		return OperationUpdate
	case prev == OperationDelete && next == OperationUpdate:
		return OperationUpdate
	default:
		return next
	}
}

func (w *ManifestWatcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.timer.Stop()
		w.pending = nil
	}
}

// Stop stops watching and waits for the event loop to exit.
func (w *ManifestWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	watcher, done := w.watcher, w.done
	w.watcher = nil
	w.mu.Unlock()

	<-done
	if err := watcher.Close(); err != nil {
		return fmt.Errorf("failed to close file watcher: %w", err)
	}
	logging.Info("ManifestWatcher", "Stopped watching %s", w.path)
	return nil
}
