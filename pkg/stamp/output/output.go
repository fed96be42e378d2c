// Package output renders stamp reports in various formats (pretty, plain,
// json, yaml, markdown, csv, tsv, template).
//
// The package uses a registry pattern so formatters can be selected by
// name at runtime:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, report); err != nil {
//	    return err
//	}
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/stamp/pkg/stamp/engine"
	"github.com/jamesainslie/stamp/pkg/stamp/manifest"
	"github.com/jamesainslie/stamp/pkg/stamp/scanner"
	"github.com/jamesainslie/stamp/pkg/stamp/types"
)

// Kind says which command produced a report.
type Kind string

const (
	// KindUpdate is a manifest update (possibly a dry run).
	KindUpdate Kind = "update"
	// KindStatus lists pending changes without writing.
	KindStatus Kind = "status"
	// KindShow lists the stored manifest.
	KindShow Kind = "show"
)

// ComponentRow is one component line of a report.
type ComponentRow struct {
	Name      string `json:"name" yaml:"name"`
	Files     int    `json:"files" yaml:"files"`
	Size      int64  `json:"size" yaml:"size"`
	SizeHuman string `json:"size_human" yaml:"size_human"`

	// Touched is the number of files the stat cache saw change.
	Touched int `json:"touched,omitempty" yaml:"touched,omitempty"`

	// From is the stored version, To the version after the run. They are
	// equal for unchanged components. Empty means never versioned.
	From string `json:"from,omitempty" yaml:"from,omitempty"`
	To   string `json:"to,omitempty" yaml:"to,omitempty"`

	Changed bool `json:"changed" yaml:"changed"`
	New     bool `json:"new,omitempty" yaml:"new,omitempty"`
}

// Stats contains scan statistics.
type Stats struct {
	FilesScanned int64         `json:"files_scanned" yaml:"files_scanned"`
	BytesScanned int64         `json:"bytes_scanned" yaml:"bytes_scanned"`
	Excluded     int64         `json:"excluded" yaml:"excluded"`
	Skipped      int64         `json:"skipped" yaml:"skipped"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
}

// Report is the data handed to formatters.
type Report struct {
	Kind     Kind   `json:"kind" yaml:"kind"`
	Root     string `json:"root" yaml:"root"`
	Manifest string `json:"manifest" yaml:"manifest"`
	Mode     string `json:"mode,omitempty" yaml:"mode,omitempty"`

	// DryRun is set when an update computed versions but did not save.
	DryRun bool `json:"dry_run" yaml:"dry_run"`

	// Components is sorted by name.
	Components []ComponentRow `json:"components" yaml:"components"`

	// Removed lists components the manifest has but the tree no longer does.
	Removed []string `json:"removed,omitempty" yaml:"removed,omitempty"`

	Stats     Stats    `json:"stats" yaml:"stats"`
	HistoryID string   `json:"history_id,omitempty" yaml:"history_id,omitempty"`
	Warnings  []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Changes returns the rows of changed components.
func (r *Report) Changes() []ComponentRow {
	var out []ComponentRow
	for _, c := range r.Components {
		if c.Changed {
			out = append(out, c)
		}
	}
	return out
}

// ChangedCount returns the number of changed components.
func (r *Report) ChangedCount() int {
	return len(r.Changes())
}

// TotalFiles returns the number of files across all components.
func (r *Report) TotalFiles() int {
	n := 0
	for _, c := range r.Components {
		n += c.Files
	}
	return n
}

// TotalSize returns the sum of all component sizes.
func (r *Report) TotalSize() int64 {
	var total int64
	for _, c := range r.Components {
		total += c.Size
	}
	return total
}

// Summary is the one-line outcome, e.g. "2 components changed".
func (r *Report) Summary() string {
	n := r.ChangedCount()
	if n == 0 {
		return "No changes detected"
	}
	return fmt.Sprintf("%d %s changed", n, types.Plural(n, "component"))
}

// FromUpdate builds a report from a scan and the engine result.
func FromUpdate(kind Kind, root, manifestPath, mode string, scan *scanner.Result, res *engine.Result) *Report {
	changes := res.ChangedSet()

	rows := make([]ComponentRow, 0, len(res.Document.Files))
	for _, name := range res.Document.Components() {
		row := ComponentRow{
			Name:      name,
			Files:     len(res.Document.Files[name]),
			Size:      res.Document.Sizes[name],
			SizeHuman: types.FormatSize(res.Document.Sizes[name]),
			To:        res.Document.Versions[name],
		}
		row.From = row.To
		if c, ok := changes[name]; ok {
			row.From, row.To = c.From, c.To
			row.Changed = true
			row.New = c.New
		}
		if scan != nil {
			row.Touched = len(scan.Touched[name])
		}
		rows = append(rows, row)
	}

	r := &Report{
		Kind:       kind,
		Root:       root,
		Manifest:   manifestPath,
		Mode:       mode,
		Components: rows,
		Removed:    res.Removed,
	}
	if scan != nil {
		r.Stats = Stats{
			FilesScanned: scan.FilesScanned,
			BytesScanned: scan.BytesScanned,
			Excluded:     scan.Excluded,
			Skipped:      scan.Skipped,
			Duration:     scan.Elapsed,
		}
		for _, e := range scan.Errors {
			r.Warnings = append(r.Warnings, fmt.Sprintf("%s: %s", e.Path, e.Error))
		}
	}
	return r
}

// FromDocument builds a report listing a stored manifest. Components that
// only have a version (no files) are listed too.
func FromDocument(root, manifestPath string, doc *manifest.Document) *Report {
	names := map[string]struct{}{}
	for name := range doc.Files {
		names[name] = struct{}{}
	}
	for name := range doc.Versions {
		names[name] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	rows := make([]ComponentRow, 0, len(sorted))
	for _, name := range sorted {
		v := doc.Versions[name]
		rows = append(rows, ComponentRow{
			Name:      name,
			Files:     len(doc.Files[name]),
			Size:      doc.Sizes[name],
			SizeHuman: types.FormatSize(doc.Sizes[name]),
			From:      v,
			To:        v,
		})
	}

	return &Report{
		Kind:       KindShow,
		Root:       root,
		Manifest:   manifestPath,
		Components: rows,
	}
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
