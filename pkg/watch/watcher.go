// Package watch reruns a callback whenever watched input files change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses bursts of writes (editors, exports) into one run.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors files for changes and triggers updates. Callbacks run
// one at a time on the goroutine that called Run.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]*fileState
	mu       sync.RWMutex
	debounce time.Duration
	pending  chan string

	OnChange func(path string) error
	OnError  func(path string, err error)
}

type fileState struct {
	lastModified time.Time
	size         int64
}

// NewWatcher creates a new file watcher.
func NewWatcher(debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		watcher:  fsWatcher,
		files:    make(map[string]*fileState),
		debounce: debounce,
		pending:  make(chan string, 16),
	}, nil
}

// Watch starts watching a file for changes.
func (w *Watcher) Watch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	w.mu.Lock()
	w.files[absPath] = &fileState{
		lastModified: stat.ModTime(),
		size:         stat.Size(),
	}
	w.mu.Unlock()

	// Watch the directory so files replaced by rename are still seen.
	if err := w.watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	return nil
}

// Run starts the watch loop. Blocks until context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.watcher.Close()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			absPath, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}

			w.mu.RLock()
			_, isWatched := w.files[absPath]
			w.mu.RUnlock()
			if !isWatched {
				continue
			}

			// Debounce rapid changes
			if t, exists := timers[absPath]; exists {
				t.Stop()
			}
			timers[absPath] = time.AfterFunc(w.debounce, func() {
				select {
				case w.pending <- absPath:
				case <-ctx.Done():
				}
			})

		case path := <-w.pending:
			w.handleChange(path)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if w.OnError != nil {
				w.OnError("", err)
			}
		}
	}
}

func (w *Watcher) handleChange(path string) {
	stat, err := os.Stat(path)
	if err != nil {
		// Mid-replace; the following Create event brings it back.
		if os.IsNotExist(err) {
			return
		}
		if w.OnError != nil {
			w.OnError(path, err)
		}
		return
	}

	w.mu.Lock()
	state := w.files[path]
	if stat.ModTime().Equal(state.lastModified) && stat.Size() == state.size {
		w.mu.Unlock()
		return
	}
	state.lastModified = stat.ModTime()
	state.size = stat.Size()
	w.mu.Unlock()

	if w.OnChange != nil {
		if err := w.OnChange(path); err != nil && w.OnError != nil {
			w.OnError(path, err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
