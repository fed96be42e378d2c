package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jamesainslie/stamp/pkg/stamp/cache"
	"github.com/jamesainslie/stamp/pkg/stamp/engine"
	"github.com/jamesainslie/stamp/pkg/stamp/output"
	"github.com/jamesainslie/stamp/pkg/stamp/watcher"
	"github.com/spf13/cobra"
)

// errPendingChanges makes status --exit-code fail when an update would
// bump something.
var errPendingChanges = errors.New("manifest is out of date")

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending changes without writing",
	Long: `Scan the tree and report which components would be bumped by
'stamp update'. The manifest is never written.

With --watch, stamp keeps running and re-checks after the tree changes.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var (
	statusWatch    bool
	statusExitCode bool
)

func init() {
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "re-check whenever files under the root change")
	statusCmd.Flags().BoolVar(&statusExitCode, "exit-code", false, "exit non-zero when the manifest is out of date")

	rootCmd.AddCommand(statusCmd)
}

// runStatus is the status command handler.
func runStatus(cmd *cobra.Command, _ []string) error {
	s, err := openSession(excludeFlag())
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	if statusWatch {
		return watchStatus(ctx, cmd.OutOrStdout(), s)
	}

	c := s.openCache()
	if c != nil {
		defer func() { _ = c.Close() }()
	}

	report, err := performStatus(ctx, s, c)
	if err != nil {
		return err
	}
	if err := render(cmd.OutOrStdout(), s.cfg, report); err != nil {
		return err
	}

	if statusExitCode && report.ChangedCount() > 0 {
		return errPendingChanges
	}
	return nil
}

// performStatus computes what an update would do. The cache is read but
// not refreshed.
func performStatus(ctx context.Context, s *session, c *cache.Cache) (*output.Report, error) {
	mode, err := s.mode()
	if err != nil {
		return nil, err
	}

	prior, err := s.loadManifest()
	if err != nil {
		return nil, err
	}

	scan, err := s.scan(ctx, c)
	if err != nil {
		return nil, err
	}

	res, err := engine.Update(scan.Files, scan.Sizes, prior, mode)
	if err != nil {
		return nil, fmt.Errorf("version check failed: %w", err)
	}

	return output.FromUpdate(output.KindStatus, s.root, s.manifestPath, mode.String(), scan, res), nil
}

// watchStatus prints a status report now and after every settled batch
// of changes until ctx is cancelled.
func watchStatus(ctx context.Context, w io.Writer, s *session) error {
	fw, err := watcher.New(s.root, s.rules, s.cfg.Watch.Debounce)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	c := s.openCache()
	if c != nil {
		defer func() { _ = c.Close() }()
	}

	check := func() {
		report, err := performStatus(ctx, s, c)
		if err != nil {
			if ctx.Err() == nil {
				printError("%v", err)
			}
			return
		}
		if err := render(w, s.cfg, report); err != nil {
			printError("%v", err)
		}
	}

	check()
	if !isMachineFormat() {
		printInfo("Watching %s (%d directories). Press Ctrl+C to stop.", s.root, fw.WatchCount())
	}

	err = fw.Run(ctx, func(paths []string) {
		printVerbose("%d paths changed", len(paths))
		check()
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
