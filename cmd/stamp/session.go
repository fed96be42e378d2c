package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/jamesainslie/stamp/pkg/stamp/cache"
	"github.com/jamesainslie/stamp/pkg/stamp/config"
	"github.com/jamesainslie/stamp/pkg/stamp/ignore"
	"github.com/jamesainslie/stamp/pkg/stamp/manifest"
	"github.com/jamesainslie/stamp/pkg/stamp/output"
	"github.com/jamesainslie/stamp/pkg/stamp/scanner"
	stampversion "github.com/jamesainslie/stamp/pkg/stamp/version"
	"github.com/spf13/viper"
)

// session bundles what every tree command needs: resolved paths, the
// rule set and the manifest store.
type session struct {
	cfg          *config.Config
	root         string
	manifestPath string
	rules        *ignore.RuleSet
	store        *manifest.Store
}

// openSession loads config and resolves the root, manifest and rules.
func openSession(extraExclude []string) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newSession(cfg, extraExclude)
}

func newSession(cfg *config.Config, extraExclude []string) (*session, error) {
	root, err := cfg.RootPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("root does not exist: %s", root)
		}
		return nil, fmt.Errorf("cannot access root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	manifestPath, err := cfg.ManifestPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest path: %w", err)
	}
	store, err := manifest.NewStore(manifestPath)
	if err != nil {
		return nil, err
	}

	rules, err := buildRules(cfg, extraExclude)
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:          cfg,
		root:         root,
		manifestPath: manifestPath,
		rules:        rules,
		store:        store,
	}, nil
}

// buildRules combines the fixed exclusion set, --exclude, the ignore
// file and stamp's own files into one rule set.
func buildRules(cfg *config.Config, extraExclude []string) (*ignore.RuleSet, error) {
	ignorePath, err := cfg.IgnorePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ignore file: %w", err)
	}

	var patterns []string
	if ignorePath != "" {
		patterns, err = ignore.LoadFile(ignorePath)
		if err != nil {
			return nil, err
		}
		printVerbose("Loaded %d ignore patterns from %s", len(patterns), ignorePath)
	}

	self, err := cfg.SelfPatterns()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve stamp paths: %w", err)
	}

	rules, err := ignore.NewBuilder().
		Fixed(cfg.Exclude...).
		Fixed(extraExclude...).
		Patterns(self...).
		Patterns(patterns...).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build ignore rules: %w", err)
	}
	return rules, nil
}

// mode parses the configured bump mode.
func (s *session) mode() (stampversion.Mode, error) {
	m, err := stampversion.ParseMode(s.cfg.Mode)
	if err != nil {
		return stampversion.Revision, fmt.Errorf("%w (want one of %v)", err, stampversion.Modes())
	}
	return m, nil
}

// loadManifest loads the prior document, pointing at 'stamp init' when
// the manifest does not exist yet.
func (s *session) loadManifest() (*manifest.Document, error) {
	doc, err := s.store.Load()
	if errors.Is(err, manifest.ErrManifestMissing) {
		return nil, fmt.Errorf("%w; run 'stamp init' to create it", err)
	}
	return doc, err
}

// openCache opens the stat cache. Failures disable the cache; they never
// fail the command.
func (s *session) openCache() *cache.Cache {
	if !s.cfg.CacheEnabled() {
		return nil
	}
	dir, err := s.cfg.CacheDir()
	if err != nil {
		printVerbose("Cache disabled: %v", err)
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		printVerbose("Cache disabled: %v", err)
		return nil
	}
	c, err := cache.Open(dir)
	if err != nil {
		printVerbose("Cache disabled: %v", err)
		return nil
	}
	return c
}

// scan walks the tree. The cache, when given, reports touched files; it
// is never written here.
func (s *session) scan(ctx context.Context, c *cache.Cache) (*scanner.Result, error) {
	opts := scanner.Options{
		Root:    s.root,
		Rules:   s.rules,
		Cache:   c,
		Workers: s.cfg.Workers,
	}

	result, err := scanner.New(opts).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	printVerbose("Scanned %d files in %d components (%d excluded) in %v",
		result.FilesScanned, len(result.Files), result.Excluded, result.Elapsed)
	return result, nil
}

// newFormatter resolves the configured output format.
func newFormatter(format, tmpl string) (output.Formatter, error) {
	if format == "" {
		format = config.DefaultOutput
	}

	if format == "template" && tmpl != "" {
		return output.NewTemplateFormatter(tmpl), nil
	}

	formatter, err := output.Get(format)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", format, output.Available())
	}
	return formatter, nil
}

// render writes the report in the configured format. Quiet mode keeps
// machine formats but drops the human ones.
func render(w io.Writer, cfg *config.Config, r *output.Report) error {
	format := cfg.Output
	if cfg.Quiet && (format == "" || format == "pretty") {
		return nil
	}

	formatter, err := newFormatter(format, cfg.Template)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, r); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// excludeFlag returns the --exclude values without the configured ones.
func excludeFlag() []string {
	flag := rootCmd.PersistentFlags().Lookup("exclude")
	if flag == nil || !flag.Changed {
		return nil
	}
	values, err := rootCmd.PersistentFlags().GetStringSlice("exclude")
	if err != nil {
		return nil
	}
	return slices.Clone(values)
}

// isMachineFormat reports whether the output is meant for tools.
func isMachineFormat() bool {
	switch viper.GetString("output") {
	case "json", "yaml", "csv", "tsv", "template":
		return true
	default:
		return false
	}
}
