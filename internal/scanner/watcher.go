package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports newly-written recording files under a set of directories,
// debounced so a file mid-write (still accumulating Write events) is only
// reported once activity on it has quieted down for the configured
// interval — the same stability-window idea
// `internal/proxy/watcher.go`'s `ReadStableFile` in the reference pack
// applies to HLS playlists, adapted here to a per-path timer instead of a
// poll loop since fsnotify already delivers edge-triggered events.
type Watcher struct {
	fsw       *fsnotify.Watcher
	debounce  time.Duration
	onSettled func(path string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher creates a Watcher over roots (and, recursively, every
// subdirectory present at the time of the call). onSettled is invoked
// (from an internal goroutine) once a recording-extension file has had no
// new Create/Write event for debounce.
func NewWatcher(roots []string, debounce time.Duration, onSettled func(path string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("scanner: creating fsnotify watcher: %w", err)
	}

	w := &Watcher{fsw: fsw, debounce: debounce, onSettled: onSettled, timers: make(map[string]*time.Timer)}

	for _, root := range roots {
		if err := w.addDirRecursive(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addDirRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

// Close stops watching and releases the underlying fsnotify handle.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run drains fsnotify events until ctx is canceled or the watcher is
// closed. Errors reported by fsnotify are discarded; a single bad event
// never stops the watch loop.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !hasRecordingExtension(event.Name) {
		// a newly-created directory (e.g. a per-day recording folder) is
		// watched too, so future files inside it are picked up.
		if event.Op&fsnotify.Create != 0 {
			_ = w.fsw.Add(event.Name)
		}
		return
	}

	path := event.Name
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, exists := w.timers[path]; exists {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.onSettled(path)
	})
}
