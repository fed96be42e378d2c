package main

import (
	"fmt"
	"strings"

	"github.com/jamesainslie/stamp/pkg/stamp/config"
	"github.com/jamesainslie/stamp/pkg/stamp/history"
	"github.com/jamesainslie/stamp/pkg/stamp/types"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View manifest update history",
	Long: `View the journal of manifest updates.

Every saved update is recorded with its bump mode and the components
whose versions changed.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific update",
	Long:  `Display the version changes recorded by a specific update.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than the retention period.`,
	Args:  cobra.NoArgs,
	RunE:  runHistoryClean,
}

var (
	historyLimit int
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getHistory returns the journal for the configured directory.
func getHistory() (*history.History, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	dir, err := cfg.HistoryDir()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get history directory: %w", err)
	}
	h, err := history.New(dir)
	if err != nil {
		return nil, nil, err
	}
	return h, cfg, nil
}

// runHistory lists recent updates.
func runHistory(cmd *cobra.Command, _ []string) error {
	h, _, err := getHistory()
	if err != nil {
		return err
	}

	entries, err := h.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No history entries found.")
		fmt.Fprintln(out, "Run 'stamp update' to record one.")
		return nil
	}

	fmt.Fprintf(out, "\n%-44s  %-19s  %-8s  %-8s  %s\n", "ID", "TIME", "MODE", "CHANGED", "ROOT")
	fmt.Fprintln(out, strings.Repeat("-", 100))

	for _, entry := range entries {
		fmt.Fprintf(out, "%-44s  %-19s  %-8s  %-8d  %s\n",
			truncateString(entry.ID, 44),
			entry.Timestamp.Local().Format("2006-01-02 15:04:05"),
			entry.Mode,
			entry.Summary.Changed,
			entry.Root,
		)
	}

	fmt.Fprintln(out, strings.Repeat("-", 100))
	fmt.Fprintf(out, "\nShowing %d of at most %d entries. Use --limit to see more.\n", len(entries), historyLimit)
	fmt.Fprintln(out, "Use 'stamp history show <id>' for details on a specific entry.")

	return nil
}

// runHistoryShow displays details of a specific update.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	h, _, err := getHistory()
	if err != nil {
		return err
	}

	entry, err := h.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nUpdate Details")
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "ID:         %s\n", entry.ID)
	fmt.Fprintf(out, "Timestamp:  %s\n", entry.Timestamp.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Root:       %s\n", entry.Root)
	fmt.Fprintf(out, "Manifest:   %s\n", entry.Manifest)
	fmt.Fprintf(out, "Mode:       %s\n", entry.Mode)
	fmt.Fprintf(out, "Components: %d\n", entry.Summary.Components)
	fmt.Fprintf(out, "Files:      %d\n", entry.Summary.Files)
	fmt.Fprintf(out, "Total Size: %s\n", types.FormatSize(entry.Summary.Bytes))

	if len(entry.Changes) == 0 {
		fmt.Fprintln(out, "\nNo components changed.")
		return nil
	}

	fmt.Fprintln(out, "\nChanges:")
	fmt.Fprintln(out, strings.Repeat("-", 60))
	for _, c := range entry.Changes {
		from := c.From
		if c.New {
			from = "(new)"
		}
		fmt.Fprintf(out, "  %s: %s -> %s\n", c.Component, from, c.To)
	}

	return nil
}

// runHistoryClean removes old history entries.
func runHistoryClean(_ *cobra.Command, _ []string) error {
	h, cfg, err := getHistory()
	if err != nil {
		return err
	}

	retentionDays := cfg.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)

	removed, err := h.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("History cleanup complete (%d removed).", removed)
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
