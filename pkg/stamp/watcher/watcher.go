// Package watcher reports filesystem changes under a package tree,
// coalesced into batches separated by a quiet period.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jamesainslie/stamp/pkg/stamp/component"
	"github.com/jamesainslie/stamp/pkg/stamp/ignore"
	"github.com/jamesainslie/stamp/pkg/stamp/logging"
)

var logger = logging.Get("watcher")

// DefaultDebounce is the quiet period used when none is given.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a tree recursively and batches changed paths.
type Watcher struct {
	root     string
	rules    *ignore.RuleSet
	debounce time.Duration

	watcher *fsnotify.Watcher
	paths   map[string]bool
	mu      sync.RWMutex
	closed  bool

	pendingMu sync.Mutex
	pending   map[string]struct{}
}

// New creates a Watcher for root. Paths excluded by rules are not
// reported; directories excluded by the fixed set are not watched.
func New(root string, rules *ignore.RuleSet, debounce time.Duration) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "watch", Path: absRoot, Err: os.ErrInvalid}
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if rules == nil {
		rules = ignore.Empty()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     absRoot,
		rules:    rules,
		debounce: debounce,
		watcher:  fsw,
		paths:    make(map[string]bool),
		pending:  make(map[string]struct{}),
	}

	if err := w.addTree(absRoot); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Root returns the absolute watched root.
func (w *Watcher) Root() string {
	return w.root
}

// addTree watches dir and every non-excluded subdirectory.
// Symlinks are not followed.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // entries that vanish or are unreadable are skipped
		}
		if d.Type()&fs.ModeSymlink != 0 || !d.IsDir() {
			return nil
		}
		if rel, ok := w.rel(path); ok && w.rules.FixedExcluded(rel) {
			return filepath.SkipDir
		}
		return w.addWatch(path)
	})
}

func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}

	if err := w.watcher.Add(path); err != nil {
		logger.Warn("failed to add watch", "path", path, "error", err)
		return err
	}
	w.paths[path] = true
	return nil
}

// Run delivers batches of changed root-relative paths to onChange until
// ctx is cancelled. A batch is sent once no event arrived for the
// debounce period. onChange runs on the Run goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				logger.Warn("event queue overflow, changes may be missed")
				continue
			}
			logger.Error("watcher error", "error", err)

		case <-timer.C:
			if batch := w.drain(); len(batch) > 0 && onChange != nil {
				onChange(batch)
			}
		}
	}
}

// handleEvent records a relevant event and reports whether it was kept.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	rel, ok := w.rel(event.Name)
	if !ok {
		return false
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		w.handleCreate(event.Name)
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.handleRemove(event.Name)
	case event.Op&(fsnotify.Write) == 0:
		// chmod only
		return false
	}

	if w.rules.Excluded(rel) {
		return false
	}

	w.pendingMu.Lock()
	w.pending[rel] = struct{}{}
	w.pendingMu.Unlock()
	return true
}

// handleCreate adds watches for a created directory and its children.
func (w *Watcher) handleCreate(path string) {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&fs.ModeSymlink != 0 || !info.IsDir() {
		return
	}
	_ = w.addTree(path)
}

// handleRemove drops the watches of a removed directory and its children.
func (w *Watcher) handleRemove(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for watched := range w.paths {
		if watched == path || isSubPath(watched, path) {
			_ = w.watcher.Remove(watched)
			delete(w.paths, watched)
		}
	}
}

// drain returns the sorted pending paths and resets the batch.
func (w *Watcher) drain() []string {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	batch := make([]string, 0, len(w.pending))
	for rel := range w.pending {
		batch = append(batch, rel)
	}
	w.pending = make(map[string]struct{})
	sort.Strings(batch)
	return batch
}

// WatchCount returns the number of watched directories.
func (w *Watcher) WatchCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.paths)
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}

func (w *Watcher) rel(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return "", false
	}
	return component.Normalize(filepath.ToSlash(rel)), true
}

// isSubPath checks if path is under parent directory.
func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
