// Package engine compares a fresh scan with the stored manifest and
// advances the version of every component whose contents changed.
//
// A component is changed when its sorted file list differs from the
// stored one (element by element, order included) or when its total size
// differs. Every changed component is bumped with the same mode; the
// resulting document carries the scanned files and sizes wholesale and
// the prior versions overlaid with the bumps.
package engine

import (
	"fmt"
	"slices"
	"sort"

	"github.com/jamesainslie/stamp/pkg/stamp/logging"
	"github.com/jamesainslie/stamp/pkg/stamp/manifest"
	"github.com/jamesainslie/stamp/pkg/stamp/version"
)

var logger = logging.Get("engine")

// DefaultSize is the prior size assumed for a component the manifest
// does not list.
const DefaultSize int64 = 0

// Change records one component's version transition.
type Change struct {
	Component string `json:"component" yaml:"component"`
	From      string `json:"from" yaml:"from"`
	To        string `json:"to" yaml:"to"`

	// New is set when the component had no prior file list.
	New bool `json:"new,omitempty" yaml:"new,omitempty"`
}

// Result is the outcome of Update.
type Result struct {
	// Document is the merged manifest, ready to save.
	Document *manifest.Document

	// Changes lists bumped components sorted by name.
	Changes []Change

	// Components is the number of components examined.
	Components int

	// Files is the number of files across all examined components.
	Files int

	// Removed lists components in the prior manifest that the scan no
	// longer produced, sorted. Their versions are kept.
	Removed []string
}

// Changed reports whether any component was bumped.
func (r *Result) Changed() bool {
	return len(r.Changes) > 0
}

// ChangedSet returns the bumped component names as a set.
func (r *Result) ChangedSet() map[string]Change {
	set := make(map[string]Change, len(r.Changes))
	for _, c := range r.Changes {
		set[c.Component] = c
	}
	return set
}

// state is what the prior manifest says about one component, with the
// defaults applied.
type state struct {
	files   []string
	size    int64
	version string
	listed  bool
}

// priorState is the single place where absent manifest entries are
// defaulted: no files, DefaultSize bytes, version.Default.
func priorState(prior *manifest.Document, comp string) state {
	st := state{size: DefaultSize, version: version.Default}
	if prior == nil {
		return st
	}
	if files, ok := prior.Files[comp]; ok {
		st.files = files
		st.listed = true
	}
	if size, ok := prior.Sizes[comp]; ok {
		st.size = size
	}
	if v, ok := prior.Versions[comp]; ok {
		st.version = v
	}
	return st
}

// Detect returns the sorted names of components in newFiles whose file
// list or size differs from prior. It does not touch versions.
func Detect(newFiles map[string][]string, newSizes map[string]int64, prior *manifest.Document) []string {
	var changed []string
	for comp, files := range newFiles {
		st := priorState(prior, comp)
		if !slices.Equal(files, st.files) || sizeOf(newSizes, comp) != st.size {
			changed = append(changed, comp)
		}
	}
	sort.Strings(changed)
	return changed
}

// Update diffs the scan against prior and bumps every changed component
// by mode. prior may be nil, meaning an empty manifest.
//
// Versions are only parsed for components that need a bump; a malformed
// one fails the whole update with version.ErrMalformedVersion and no
// document is produced.
func Update(newFiles map[string][]string, newSizes map[string]int64, prior *manifest.Document, mode version.Mode) (*Result, error) {
	changed := Detect(newFiles, newSizes, prior)

	versions := make(map[string]string)
	if prior != nil {
		for comp, v := range prior.Versions {
			versions[comp] = v
		}
	}

	changes := make([]Change, 0, len(changed))
	for _, comp := range changed {
		st := priorState(prior, comp)

		current, err := version.Parse(st.version)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", comp, err)
		}
		next := current.Bump(mode).String()

		versions[comp] = next
		changes = append(changes, Change{
			Component: comp,
			From:      st.version,
			To:        next,
			New:       !st.listed,
		})
		logger.Debug("component changed", "component", comp, "from", st.version, "to", next, "mode", mode)
	}

	doc := manifest.NewDocument()
	doc.CopyExtras(prior)
	files := 0
	for comp, list := range newFiles {
		doc.Files[comp] = slices.Clone(list)
		if doc.Files[comp] == nil {
			doc.Files[comp] = []string{}
		}
		doc.Sizes[comp] = sizeOf(newSizes, comp)
		files += len(list)
	}
	doc.Versions = versions

	result := &Result{
		Document:   doc,
		Changes:    changes,
		Components: len(newFiles),
		Files:      files,
		Removed:    removed(newFiles, prior),
	}

	if result.Changed() {
		logger.Info("components bumped", "count", len(changes), "mode", mode)
	} else {
		logger.Info("no changes detected", "components", result.Components)
	}

	return result, nil
}

func sizeOf(sizes map[string]int64, comp string) int64 {
	if size, ok := sizes[comp]; ok {
		return size
	}
	return DefaultSize
}

func removed(newFiles map[string][]string, prior *manifest.Document) []string {
	if prior == nil {
		return nil
	}
	var gone []string
	for comp := range prior.Files {
		if _, ok := newFiles[comp]; !ok {
			gone = append(gone, comp)
		}
	}
	sort.Strings(gone)
	return gone
}
