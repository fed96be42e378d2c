package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jamesainslie/stamp/pkg/stamp/cache"
	"github.com/jamesainslie/stamp/pkg/stamp/types"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the stamp stat cache",
	Long: `Commands for managing the stat cache.

The cache remembers each file's size and modification time so that
updates can report which files were touched. It never affects which
components are bumped. Cache data is stored in the XDG cache directory
(typically ~/.cache/stamp/stat).`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached stats",
	Long:  `Removes cached stats for the current root, or for every root with --all.`,
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Long:  `Displays the cache location, its size on disk, and the number of entries for the current root.`,
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearAll bool

func init() {
	cacheClearCmd.Flags().BoolVar(&cacheClearAll, "all", false, "clear entries for every root")

	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}

// runCacheClear drops cached stats.
func runCacheClear(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir, err := cfg.CacheDir()
	if err != nil {
		return fmt.Errorf("failed to get cache directory: %w", err)
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		printInfo("Cache is already empty.")
		return nil
	}

	c, err := cache.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer func() { _ = c.Close() }()

	if cacheClearAll {
		if err := c.ClearAll(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		printInfo("Cache cleared.")
		return nil
	}

	root, err := cfg.RootPath()
	if err != nil {
		return fmt.Errorf("failed to resolve root: %w", err)
	}
	if err := c.Clear(root); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	printInfo("Cache cleared for %s.", root)
	return nil
}

// runCacheStats prints the cache location, size and entry count.
func runCacheStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir, err := cfg.CacheDir()
	if err != nil {
		return fmt.Errorf("failed to get cache directory: %w", err)
	}

	out := cmd.OutOrStdout()
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		fmt.Fprintln(out, "Cache: empty (no cache directory)")
		fmt.Fprintf(out, "Cache location: %s\n", dir)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat cache: %w", err)
	}

	size, fileCount, err := dirSize(dir)
	if err != nil {
		return fmt.Errorf("failed to calculate cache size: %w", err)
	}

	fmt.Fprintf(out, "Cache location: %s\n", dir)
	fmt.Fprintf(out, "Cache size: %s\n", types.FormatSize(size))
	fmt.Fprintf(out, "Cache files: %d\n", fileCount)
	fmt.Fprintf(out, "Last modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))

	root, err := cfg.RootPath()
	if err != nil {
		return fmt.Errorf("failed to resolve root: %w", err)
	}

	// A running 'status --watch' holds the cache lock.
	c, err := cache.Open(dir)
	if err != nil {
		fmt.Fprintf(out, "Entries for %s: unavailable (%v)\n", root, err)
		return nil
	}
	defer func() { _ = c.Close() }()

	count, err := c.Count(root)
	if err != nil {
		return fmt.Errorf("failed to count cache entries: %w", err)
	}
	fmt.Fprintf(out, "Entries for %s: %d\n", root, count)
	return nil
}

// dirSize totals the regular files under dir.
func dirSize(dir string) (int64, int, error) {
	var size int64
	var count int
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		size += info.Size()
		count++
		return nil
	})
	return size, count, err
}
