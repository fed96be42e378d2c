package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jamesainslie/stamp/pkg/stamp/engine"
	"github.com/jamesainslie/stamp/pkg/stamp/history"
	"github.com/jamesainslie/stamp/pkg/stamp/output"
	stampversion "github.com/jamesainslie/stamp/pkg/stamp/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Scan the tree and update the manifest",
	Long: `Scan the package tree, compare each component's file list and total
size with the manifest, bump the version of every component that changed,
and save the manifest.

The manifest is rewritten on every run, even when nothing changed,
unless --dry-run is given. Components that were never versioned start
from 0.0.0.`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

// runUpdate is the update command handler.
func runUpdate(cmd *cobra.Command, _ []string) error {
	s, err := openSession(excludeFlag())
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	report, err := performUpdate(ctx, s, viper.GetBool("dry_run"))
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), s.cfg, report)
}

// performUpdate runs load, scan, compute and save in that order. Nothing
// is written, the stat cache included, unless every earlier step
// succeeded.
func performUpdate(ctx context.Context, s *session, dryRun bool) (*output.Report, error) {
	mode, err := s.mode()
	if err != nil {
		return nil, err
	}

	prior, err := s.loadManifest()
	if err != nil {
		return nil, err
	}

	c := s.openCache()
	if c != nil {
		defer func() { _ = c.Close() }()
	}

	scan, err := s.scan(ctx, c)
	if err != nil {
		return nil, err
	}

	res, err := engine.Update(scan.Files, scan.Sizes, prior, mode)
	if err != nil {
		return nil, fmt.Errorf("version update failed: %w", err)
	}

	report := output.FromUpdate(output.KindUpdate, s.root, s.manifestPath, mode.String(), scan, res)
	report.DryRun = dryRun
	if dryRun {
		return report, nil
	}

	if err := s.store.Save(res.Document); err != nil {
		return nil, fmt.Errorf("failed to save manifest: %w", err)
	}
	printVerbose("Saved %s (%d components, %d changed)", s.manifestPath, res.Components, len(res.Changes))

	if c != nil {
		if err := scan.RefreshCache(c); err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("cache: %v", err))
		}
	}

	if s.cfg.History.Enabled {
		id, err := s.journal(mode, res)
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("history: %v", err))
		} else {
			report.HistoryID = id
		}
	}

	return report, nil
}

// journal records a saved update in the history directory.
func (s *session) journal(mode stampversion.Mode, res *engine.Result) (string, error) {
	dir, err := s.cfg.HistoryDir()
	if err != nil {
		return "", err
	}
	h, err := history.New(dir)
	if err != nil {
		return "", err
	}

	entry, err := h.Log(history.Record{
		Root:     s.root,
		Manifest: s.manifestPath,
		Mode:     mode.String(),
		Result:   res,
	})
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

// signalContext returns the command context cancelled on SIGINT/SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := context.Background()
	if cmd != nil && cmd.Context() != nil {
		parent = cmd.Context()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
