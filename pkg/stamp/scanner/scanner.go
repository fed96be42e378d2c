package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/jamesainslie/stamp/pkg/stamp/cache"
	"github.com/jamesainslie/stamp/pkg/stamp/component"
	"github.com/jamesainslie/stamp/pkg/stamp/logging"
	"github.com/jamesainslie/stamp/pkg/stamp/types"
)

var logger = logging.Get("scanner")

// Result is the outcome of a scan.
type Result struct {
	// Root is the absolute path that was scanned.
	Root string

	// Files maps each component to its sorted file paths.
	Files map[string][]string

	// Sizes maps each component to its total size in bytes.
	// It always has the same keys as Files.
	Sizes map[string]int64

	// Touched maps components to files that are new or whose stat changed
	// since the cached scan. Empty without a cache.
	Touched map[string][]string

	// Stats holds the size and mtime of every kept file, keyed by
	// relative path. RefreshCache stores it.
	Stats map[string]cache.Entry

	FilesScanned int64
	BytesScanned int64

	// Excluded counts files and directories dropped by ignore rules.
	Excluded int64

	// Skipped counts files that vanished between listing and stat.
	Skipped int64

	Errors  []types.ScanError
	Elapsed time.Duration
}

// Scanner produces the per-component file listing of a tree.
type Scanner struct {
	opts Options
	root string

	filesScanned atomic.Int64
	bytesScanned atomic.Int64
	excluded     atomic.Int64
	skipped      atomic.Int64

	mu     sync.Mutex
	files  map[string][]string
	sizes  map[string]int64
	stats  map[string]cache.Entry
	errors []types.ScanError
}

// New creates a Scanner. Options are validated and defaults applied.
// A Scanner is single-use: create a new one per scan.
func New(opts Options) *Scanner {
	_ = opts.Validate()

	return &Scanner{
		opts:  opts,
		files: make(map[string][]string),
		sizes: make(map[string]int64),
		stats: make(map[string]cache.Entry),
	}
}

// Scan walks the tree and returns the grouped result.
// It blocks until complete or ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	start := time.Now()

	root, err := validateRoot(s.opts.Root)
	if err != nil {
		return nil, err
	}
	s.root = root

	logger.Debug("scan started", "root", root, "rules", s.opts.Rules.Len(), "workers", s.opts.Workers)

	conf := fastwalk.Config{Follow: false, NumWorkers: s.opts.Workers}
	if err := fastwalk.Walk(&conf, root, s.walkCallback(ctx)); err != nil {
		return nil, err
	}

	for comp := range s.files {
		sort.Strings(s.files[comp])
	}

	result := &Result{
		Root:         root,
		Files:        s.files,
		Sizes:        s.sizes,
		Touched:      map[string][]string{},
		Stats:        s.stats,
		FilesScanned: s.filesScanned.Load(),
		BytesScanned: s.bytesScanned.Load(),
		Excluded:     s.excluded.Load(),
		Skipped:      s.skipped.Load(),
		Errors:       s.errors,
	}

	if s.opts.Cache != nil {
		s.applyCache(result)
	}

	result.Elapsed = time.Since(start)
	logger.Debug("scan finished",
		"root", root,
		"components", len(result.Files),
		"files", result.FilesScanned,
		"excluded", result.Excluded,
		"skipped", result.Skipped,
		"elapsed", result.Elapsed)

	return result, nil
}

// walkCallback returns the callback function for fastwalk.Walk.
// fastwalk calls it from several goroutines.
func (s *Scanner) walkCallback(ctx context.Context) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				s.skipped.Add(1)
				return nil
			}
			s.addError(path, err)
			return nil
		}

		rel, ok := s.relPath(path)
		if !ok {
			return nil // root itself
		}

		if d.IsDir() {
			if s.opts.Rules.FixedExcluded(rel) {
				s.excluded.Add(1)
				return fastwalk.SkipDir
			}
			return nil
		}

		// Symlinks are listed like files and sized by their target.
		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}

		if s.opts.Rules.Excluded(rel) {
			s.excluded.Add(1)
			return nil
		}

		s.processFile(path, rel, d)
		return nil
	}
}

// processFile records a kept file. A symlink counts only when it
// resolves to a regular file; a dangling one is skipped like a file that
// vanished mid-scan.
func (s *Scanner) processFile(path, rel string, d fs.DirEntry) {
	info, err := fileInfo(path, d)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.skipped.Add(1)
			logger.Debug("file vanished during scan", "path", rel)
			return
		}
		s.addError(path, err)
		return
	}
	if !info.Mode().IsRegular() {
		return
	}

	size := info.Size()
	comp := component.Classify(rel)

	s.filesScanned.Add(1)
	s.bytesScanned.Add(size)

	s.mu.Lock()
	s.files[comp] = append(s.files[comp], rel)
	s.sizes[comp] += size
	s.stats[rel] = cache.Entry{Size: size, Mtime: info.ModTime().UnixNano()}
	s.mu.Unlock()
}

// fileInfo stats a walked entry, following it when it is a symlink.
func fileInfo(path string, d fs.DirEntry) (fs.FileInfo, error) {
	if d.Type()&fs.ModeSymlink != 0 {
		return os.Stat(path)
	}
	return d.Info()
}

// applyCache fills Result.Touched. Cache failures are recorded as scan
// errors and never fail the scan.
func (s *Scanner) applyCache(result *Result) {
	touched, err := s.opts.Cache.Touched(s.root, s.stats)
	if err != nil {
		s.addError("cache", err)
		result.Errors = s.errors
		return
	}

	for _, rel := range touched {
		comp := component.Classify(rel)
		result.Touched[comp] = append(result.Touched[comp], rel)
	}
}

// RefreshCache stores the scanned stats in c so the next scan reports
// only what changed after this one.
func (r *Result) RefreshCache(c *cache.Cache) error {
	return c.Replace(r.Root, r.Stats)
}

// relPath converts a walked path to a normalized root-relative path.
func (s *Scanner) relPath(path string) (string, bool) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == "." {
		return "", false
	}
	return component.Normalize(filepath.ToSlash(rel)), true
}

// addError adds an error to the error list thread-safely.
func (s *Scanner) addError(path string, err error) {
	logger.Warn("scan error", "path", path, "err", err)

	s.mu.Lock()
	s.errors = append(s.errors, types.ScanError{Path: path, Error: err.Error()})
	s.mu.Unlock()
}

// validateRoot resolves the root path to absolute and verifies it is a directory.
func validateRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", &fs.PathError{Op: "scan", Path: abs, Err: os.ErrInvalid}
	}
	return abs, nil
}
