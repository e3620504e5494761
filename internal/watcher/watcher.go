// Package watcher monitors the drop directory for incoming batch files.
// Writes are debounced so a file still being uploaded is not picked up
// half-written; settled files are handed to the batch handler one at a
// time, preserving the single-batch-at-a-time processing model.
package watcher

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long a batch file must be quiet before it is
// considered fully written.
const settleDelay = 2 * time.Second

// Handler processes one settled batch file.
type Handler func(path string)

// Watcher watches a directory for *.yaml / *.yml batch files.
type Watcher struct {
	dir     string
	handler Handler

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending map[string]time.Time
}

// New creates a Watcher for dir. The handler is invoked from the watcher's
// own goroutine, one file at a time.
func New(dir string, handler Handler) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	return &Watcher{
		dir:     dir,
		handler: handler,
		stopCh:  make(chan struct{}),
		pending: make(map[string]time.Time),
	}, nil
}

// Start begins watching the drop directory.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.fsw = fsw
	w.wg.Add(2)
	go w.collectEvents()
	go w.flushSettled()

	return nil
}

// Stop halts the watcher. Files still pending are abandoned; they will be
// picked up again on the next start via their next write event.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

// collectEvents records create/write events for batch files.
func (w *Watcher) collectEvents() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isBatchFile(event.Name) {
				continue
			}
			w.mu.Lock()
			w.pending[event.Name] = time.Now()
			w.mu.Unlock()
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		case <-w.stopCh:
			return
		}
	}
}

// flushSettled periodically hands off files that have been quiet for the
// settle delay.
func (w *Watcher) flushSettled() {
	defer w.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, path := range w.takeSettled() {
				w.handler(path)
			}
		case <-w.stopCh:
			return
		}
	}
}

// takeSettled removes and returns the paths whose last write is older than
// the settle delay.
func (w *Watcher) takeSettled() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var settled []string
	cutoff := time.Now().Add(-settleDelay)
	for path, last := range w.pending {
		if last.Before(cutoff) {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}

	return settled
}

// isBatchFile matches the batch file naming convention.
func isBatchFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
