// Package watch provides file system watching for kpsync's daemon mode.
//
// The watcher monitors the configured database files and emits one
// debounced trigger per burst of changes, so an external editor saving a
// database kicks off exactly one re-sync. Saves performed by kpsync
// itself are ignored through a suppression window armed around the
// executor's save phase.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last event
// before emitting a trigger.
const DefaultDebounce = 2 * time.Second

// Trigger describes one debounced change burst.
type Trigger struct {
	// Paths are the database files that changed, deduplicated.
	Paths []string
}

// Watcher watches a fixed set of database files for changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration

	triggers chan Trigger
	errors   chan error
	done     chan struct{}
	wg       sync.WaitGroup

	mu            sync.Mutex
	running       bool
	suppressUntil time.Time

	// watched maps cleaned absolute file paths to true.
	watched map[string]bool
}

// New creates a Watcher for the given database files. A non-positive
// debounce uses DefaultDebounce. The watcher must be started with
// Start() before it emits triggers.
func New(paths []string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	watched := make(map[string]bool, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		watched[abs] = true
	}

	return &Watcher{
		watcher:  fsw,
		debounce: debounce,
		triggers: make(chan Trigger, 1),
		errors:   make(chan error, 10),
		done:     make(chan struct{}),
		watched:  watched,
	}, nil
}

// Start begins watching. The parent directory of each database file is
// watched (editors typically replace files via rename, which drops the
// watch on the file itself).
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	dirs := make(map[string]bool)
	for path := range w.watched {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	w.running = true
	w.wg.Add(1)
	go w.processEvents()

	return nil
}

// Stop stops watching and cleans up. Blocks until the event loop exits.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.wg.Wait()

	close(w.triggers)
	close(w.errors)

	return nil
}

// Triggers returns the channel emitting debounced change triggers.
// Closed when the watcher stops.
func (w *Watcher) Triggers() <-chan Trigger {
	return w.triggers
}

// Errors returns the channel emitting watch errors.
// Closed when the watcher stops.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Suppress ignores events for the given duration. Called around kpsync's
// own saves so they don't re-trigger a sync.
func (w *Watcher) Suppress(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	until := time.Now().Add(d)
	if until.After(w.suppressUntil) {
		w.suppressUntil = until
	}
}

func (w *Watcher) suppressed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return time.Now().Before(w.suppressUntil)
}

// processEvents converts raw fsnotify events into debounced triggers.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time
	pending := make(map[string]bool)

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			path, relevant := w.relevant(event)
			if !relevant {
				continue
			}
			pending[path] = true

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil

			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			pending = make(map[string]bool)

			select {
			case w.triggers <- Trigger{Paths: paths}:
			case <-w.done:
				return
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			case <-w.done:
				return
			}
		}
	}
}

// relevant filters events down to writes/creates/renames of the watched
// database files, outside any suppression window.
func (w *Watcher) relevant(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return "", false
	}

	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return "", false
	}
	if !w.watched[abs] {
		return "", false
	}
	if w.suppressed() {
		return "", false
	}
	return abs, true
}
