package main

import (
	"errors"
	"fmt"

	"github.com/jamesainslie/stamp/pkg/stamp/manifest"
	"github.com/jamesainslie/stamp/pkg/stamp/output"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty manifest",
	Long: `Create an empty manifest file so that 'stamp update' has a document to
compare against. An existing manifest is left untouched.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored manifest",
	Long:  `List every component in the manifest with its file count, size and version.`,
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(showCmd)
}

// runInit creates an empty manifest.
func runInit(_ *cobra.Command, _ []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}

	if err := s.store.Init(); err != nil {
		if errors.Is(err, manifest.ErrManifestExists) {
			printInfo("Manifest already exists: %s", s.manifestPath)
			return nil
		}
		return fmt.Errorf("failed to create manifest: %w", err)
	}

	printInfo("Created empty manifest: %s", s.manifestPath)
	printInfo("Run 'stamp update' to record the tree's components.")
	return nil
}

// runShow renders the stored manifest without scanning.
func runShow(cmd *cobra.Command, _ []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}

	doc, err := s.loadManifest()
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), s.cfg, output.FromDocument(s.root, s.manifestPath, doc))
}
