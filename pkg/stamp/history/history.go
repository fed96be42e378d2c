package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrEntryNotFound is returned by Get for an unknown ID.
var ErrEntryNotFound = errors.New("history entry not found")

// History manages the update journal on the filesystem.
type History struct {
	dir string
	mu  sync.Mutex
}

// New creates a History rooted at dir.
// The directory is not created until the first Log.
func New(dir string) (*History, error) {
	if dir == "" {
		return nil, errors.New("history directory cannot be empty")
	}
	return &History{dir: dir}, nil
}

// Dir returns the journal directory.
func (h *History) Dir() string {
	return h.dir
}

// Log journals one update run and returns the created entry.
func (h *History) Log(rec Record) (*Entry, error) {
	if rec.Result == nil {
		return nil, errors.New("history record has no result")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	doc := rec.Result.Document
	entry := &Entry{
		ID:        generateID(rec.Mode),
		Timestamp: time.Now().UTC(),
		Root:      rec.Root,
		Manifest:  rec.Manifest,
		Mode:      rec.Mode,
		Changes:   rec.Result.Changes,
		Summary: Summary{
			Components: rec.Result.Components,
			Files:      rec.Result.Files,
			Bytes:      doc.TotalSize(),
			Changed:    len(rec.Result.Changes),
		},
	}

	if err := h.writeEntry(entry); err != nil {
		return nil, fmt.Errorf("writing history entry: %w", err)
	}

	return entry, nil
}

func (h *History) writeEntry(entry *Entry) error {
	filePath := filepath.Join(h.dir, entry.ID+".json")

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// List returns entries newest first. A limit of 0 or less returns all.
func (h *History) List(limit int) ([]Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	names, err := h.entryFiles()
	if err != nil {
		return nil, err
	}

	entries := []Entry{}
	for _, name := range names {
		entry, err := h.readEntryFile(name)
		if err != nil {
			// unreadable entries are skipped
			continue
		}
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get returns the entry with the given ID.
func (h *History) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	entry, err := h.readEntryFile(id + ".json")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		return nil, err
	}
	return entry, nil
}

// Cleanup removes entries older than retentionDays and returns how many
// were removed. A retention of 0 or less removes nothing.
func (h *History) Cleanup(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	names, err := h.entryFiles()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, name := range names {
		path := filepath.Join(h.dir, name)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// entryFiles lists the *.json files in the journal directory.
// A missing directory is an empty journal.
func (h *History) entryFiles() ([]string, error) {
	files, err := os.ReadDir(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading history directory: %w", err)
	}

	var names []string
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		names = append(names, f.Name())
	}
	return names, nil
}

func (h *History) readEntryFile(filename string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(h.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("read entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal entry: %w", err)
	}
	return &entry, nil
}

// generateID creates an ID like "minor-2026-06-15T10-30-00-1b9d6bcd".
func generateID(mode string) string {
	if mode == "" {
		mode = "update"
	}
	ts := time.Now().UTC().Format("2006-01-02T15-04-05")
	return fmt.Sprintf("%s-%s-%s", mode, ts, uuid.New().String()[:8])
}
