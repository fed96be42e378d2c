package history

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jamesainslie/stamp/pkg/stamp/engine"
	"github.com/jamesainslie/stamp/pkg/stamp/manifest"
)

func setupTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := New(filepath.Join(t.TempDir(), "history"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return h
}

func testRecord(mode string) Record {
	doc := manifest.NewDocument()
	doc.Files["core"] = []string{"core/a.lua", "core/b.lua"}
	doc.Sizes["core"] = 25
	doc.Files["docs"] = []string{"docs/x.md"}
	doc.Sizes["docs"] = 5

	return Record{
		Root:     "/srv/pkg",
		Manifest: "/srv/pkg/manifest.json",
		Mode:     mode,
		Result: &engine.Result{
			Document:   doc,
			Changes:    []engine.Change{{Component: "core", From: "1.0.0", To: "1.1.0"}},
			Components: 2,
			Files:      3,
		},
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Fatal("New(\"\") error = nil, want error")
	}
	h, err := New("/tmp/x")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if h.Dir() != "/tmp/x" {
		t.Errorf("Dir() = %q", h.Dir())
	}
}

func TestHistory_Log(t *testing.T) {
	t.Parallel()

	h := setupTestHistory(t)
	entry, err := h.Log(testRecord("minor"))
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	if !strings.HasPrefix(entry.ID, "minor-") {
		t.Errorf("ID = %v, want prefix 'minor-'", entry.ID)
	}
	if entry.Summary.Components != 2 || entry.Summary.Files != 3 {
		t.Errorf("Summary = %+v", entry.Summary)
	}
	if entry.Summary.Bytes != 30 {
		t.Errorf("Summary.Bytes = %d, want 30", entry.Summary.Bytes)
	}
	if entry.Summary.Changed != 1 {
		t.Errorf("Summary.Changed = %d, want 1", entry.Summary.Changed)
	}

	if _, err := os.Stat(filepath.Join(h.Dir(), entry.ID+".json")); err != nil {
		t.Errorf("entry file not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(h.Dir(), entry.ID+".json.tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestHistory_LogRequiresResult(t *testing.T) {
	t.Parallel()

	h := setupTestHistory(t)
	if _, err := h.Log(Record{Mode: "minor"}); err == nil {
		t.Fatal("Log() error = nil, want error")
	}
}

func TestHistory_Get(t *testing.T) {
	t.Parallel()

	h := setupTestHistory(t)
	entry, err := h.Log(testRecord("revision"))
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	got, err := h.Get(entry.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != entry.ID || got.Root != "/srv/pkg" {
		t.Errorf("Get() = %+v", got)
	}
	if len(got.Changes) != 1 || got.Changes[0].To != "1.1.0" {
		t.Errorf("Changes = %+v", got.Changes)
	}

	tests := []struct {
		name string
		id   string
	}{
		{name: "unknown", id: "major-2020-01-01T00-00-00-deadbeef"},
		{name: "path traversal", id: "../etc/passwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Get(tt.id)
			if !errors.Is(err, ErrEntryNotFound) {
				t.Errorf("Get(%q) error = %v, want ErrEntryNotFound", tt.id, err)
			}
		})
	}

	if _, err := h.Get(""); err == nil {
		t.Error("Get(\"\") error = nil, want error")
	}
}

func TestHistory_List(t *testing.T) {
	t.Parallel()

	h := setupTestHistory(t)

	var ids []string
	for _, mode := range []string{"major", "minor", "revision"} {
		entry, err := h.Log(testRecord(mode))
		if err != nil {
			t.Fatalf("Log() error = %v", err)
		}
		ids = append(ids, entry.ID)
		time.Sleep(5 * time.Millisecond)
	}

	// a corrupt file is skipped
	if err := os.WriteFile(filepath.Join(h.Dir(), "broken.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := h.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(List()) = %d, want 3", len(entries))
	}
	if entries[0].ID != ids[2] || entries[2].ID != ids[0] {
		t.Errorf("List() not newest first: %v, %v, %v", entries[0].ID, entries[1].ID, entries[2].ID)
	}

	limited, err := h.List(2)
	if err != nil {
		t.Fatalf("List(2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("len(List(2)) = %d, want 2", len(limited))
	}
}

func TestHistory_ListMissingDir(t *testing.T) {
	t.Parallel()

	h := setupTestHistory(t)
	entries, err := h.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("List() = %v, want empty non-nil slice", entries)
	}
}

func TestHistory_Cleanup(t *testing.T) {
	t.Parallel()

	h := setupTestHistory(t)
	old, err := h.Log(testRecord("minor"))
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	recent, err := h.Log(testRecord("minor"))
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	oldPath := filepath.Join(h.Dir(), old.ID+".json")
	past := time.Now().AddDate(0, 0, -10)
	if err := os.Chtimes(oldPath, past, past); err != nil {
		t.Fatal(err)
	}

	removed, err := h.Cleanup(7)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Cleanup() removed = %d, want 1", removed)
	}
	if _, err := h.Get(recent.ID); err != nil {
		t.Errorf("recent entry removed: %v", err)
	}
	if _, err := h.Get(old.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("old entry still present: %v", err)
	}

	if n, _ := h.Cleanup(0); n != 0 {
		t.Errorf("Cleanup(0) removed %d, want 0", n)
	}
}
