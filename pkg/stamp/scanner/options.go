// Package scanner walks a package tree and groups every kept file into
// its component, totalling bytes per component. Walking is parallel via
// fastwalk; results are sorted so they do not depend on walk order.
package scanner

import (
	"github.com/jamesainslie/stamp/pkg/stamp/cache"
	"github.com/jamesainslie/stamp/pkg/stamp/ignore"
)

// DefaultRoot is scanned when Options.Root is empty.
const DefaultRoot = "."

// Options configures the scanner behavior.
type Options struct {
	// Root is the directory to scan. Manifest paths are relative to it.
	Root string

	// Rules decides which paths are excluded. Nil excludes nothing.
	Rules *ignore.RuleSet

	// Cache is an optional stat cache used to report touched files.
	// It is only read; see Result.RefreshCache. If nil, Result.Touched
	// stays empty.
	Cache *cache.Cache

	// Workers is the number of parallel walk workers. 0 means auto.
	Workers int
}

// Validate fills defaults for unset fields.
func (o *Options) Validate() error {
	if o.Root == "" {
		o.Root = DefaultRoot
	}
	if o.Rules == nil {
		o.Rules = ignore.Empty()
	}
	o.Workers = Workers(o.Workers)
	return nil
}
