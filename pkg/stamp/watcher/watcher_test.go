package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jamesainslie/stamp/pkg/stamp/ignore"
)

func newTestWatcher(t *testing.T, root string, rules *ignore.RuleSet) *Watcher {
	t.Helper()
	w, err := New(root, rules, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

// batches collects onChange calls from Run.
type batches struct {
	mu  sync.Mutex
	got [][]string
	ch  chan struct{}
}

func newBatches() *batches {
	return &batches{ch: make(chan struct{}, 16)}
}

func (b *batches) add(paths []string) {
	b.mu.Lock()
	b.got = append(b.got, paths)
	b.mu.Unlock()
	b.ch <- struct{}{}
}

func (b *batches) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-b.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change batch")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.got[len(b.got)-1]
}

func contains(paths []string, want string) bool {
	for _, p := range paths {
		if p == want {
			return true
		}
	}
	return false
}

func TestNew(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"core/lib", ".git/objects", "docs"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	rules, err := ignore.NewBuilder().Fixed(".git").Build()
	if err != nil {
		t.Fatal(err)
	}
	w := newTestWatcher(t, root, rules)

	// root, core, core/lib, docs
	if got := w.WatchCount(); got != 4 {
		t.Errorf("WatchCount() = %d, want 4", got)
	}

	w.mu.RLock()
	_, gitWatched := w.paths[filepath.Join(root, ".git")]
	w.mu.RUnlock()
	if gitWatched {
		t.Error("fixed-excluded directory is watched")
	}
}

func TestNew_InvalidRoot(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "f")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(filepath.Join(root, "missing"), nil, 0); err == nil {
		t.Error("New() on missing root error = nil")
	}
	if _, err := New(file, nil, 0); err == nil {
		t.Error("New() on file error = nil")
	}
}

func TestRun_BatchesChanges(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "core"), 0o755); err != nil {
		t.Fatal(err)
	}

	rules, err := ignore.NewBuilder().Patterns("*.tmp").Build()
	if err != nil {
		t.Fatal(err)
	}
	w := newTestWatcher(t, root, rules)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := newBatches()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, b.add) }()

	if err := os.WriteFile(filepath.Join(root, "core", "a.lua"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "core", "scratch.tmp"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	batch := b.wait(t)
	if !contains(batch, "core/a.lua") {
		t.Errorf("batch = %v, want core/a.lua", batch)
	}
	if contains(batch, "core/scratch.tmp") {
		t.Errorf("batch = %v, excluded file reported", batch)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := newBatches()
	go func() { _ = w.Run(ctx, b.add) }()

	if err := os.MkdirAll(filepath.Join(root, "plugins"), 0o755); err != nil {
		t.Fatal(err)
	}
	b.wait(t)

	if err := os.WriteFile(filepath.Join(root, "plugins", "x.lua"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	batch := b.wait(t)
	if !contains(batch, "plugins/x.lua") {
		t.Errorf("batch = %v, want plugins/x.lua", batch)
	}
}

func TestHandleEvent(t *testing.T) {
	root := t.TempDir()
	rules, err := ignore.NewBuilder().Patterns("manifest.json").Build()
	if err != nil {
		t.Fatal(err)
	}
	w := newTestWatcher(t, root, rules)

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{name: "write", event: fsnotify.Event{Name: filepath.Join(root, "a.txt"), Op: fsnotify.Write}, want: true},
		{name: "chmod only", event: fsnotify.Event{Name: filepath.Join(root, "b.txt"), Op: fsnotify.Chmod}},
		{name: "excluded", event: fsnotify.Event{Name: filepath.Join(root, "manifest.json"), Op: fsnotify.Write}},
		{name: "root itself", event: fsnotify.Event{Name: root, Op: fsnotify.Write}},
		{name: "outside root", event: fsnotify.Event{Name: filepath.Dir(root), Op: fsnotify.Write}},
		{name: "remove", event: fsnotify.Event{Name: filepath.Join(root, "gone", "c.txt"), Op: fsnotify.Remove}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.handleEvent(tt.event); got != tt.want {
				t.Errorf("handleEvent() = %v, want %v", got, tt.want)
			}
		})
	}

	batch := w.drain()
	if len(batch) != 2 || batch[0] != "a.txt" || batch[1] != "gone/c.txt" {
		t.Errorf("drain() = %v", batch)
	}
	if len(w.drain()) != 0 {
		t.Error("drain() did not reset pending")
	}
}

func TestHandleRemove_DropsChildWatches(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "core", "lib", "deep"), 0o755); err != nil {
		t.Fatal(err)
	}
	w := newTestWatcher(t, root, nil)

	before := w.WatchCount()
	w.handleRemove(filepath.Join(root, "core"))
	if got := w.WatchCount(); got != before-3 {
		t.Errorf("WatchCount() = %d, want %d", got, before-3)
	}
}

func TestIsSubPath(t *testing.T) {
	sep := string(filepath.Separator)
	tests := []struct {
		path, parent string
		want         bool
	}{
		{path: sep + "a" + sep + "b", parent: sep + "a", want: true},
		{path: sep + "ab", parent: sep + "a", want: false},
		{path: sep + "a", parent: sep + "a", want: false},
	}
	for _, tt := range tests {
		if got := isSubPath(tt.path, tt.parent); got != tt.want {
			t.Errorf("isSubPath(%q, %q) = %v, want %v", tt.path, tt.parent, got, tt.want)
		}
	}
}

func TestClose_Idempotent(t *testing.T) {
	w, err := New(t.TempDir(), nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
