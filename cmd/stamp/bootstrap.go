package main

import (
	"fmt"
	"os"

	"github.com/jamesainslie/stamp/pkg/stamp/config"
	"github.com/jamesainslie/stamp/pkg/stamp/logging"
	"github.com/spf13/cobra"
)

// initializeLogging is the PersistentPreRunE hook. It sets up the log
// file from config; --verbose also mirrors debug logs to stderr.
// Commands that only print static information skip it.
func initializeLogging(cmd *cobra.Command, _ []string) error {
	if cmd != nil && cmd.Annotations["logging"] == "off" {
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts, err := loggingOptions(cfg, getVerbose(), getQuiet())
	if err != nil {
		return err
	}

	if err := logging.Init(opts); err != nil {
		// Logging failures are not fatal.
		printVerbose("logging disabled: %v", err)
	}
	return nil
}

// loggingOptions converts config into logging options.
func loggingOptions(cfg *config.Config, verbose, quiet bool) (logging.Config, error) {
	opts, err := cfg.LoggingOptions()
	if err != nil {
		return logging.Config{}, fmt.Errorf("invalid logging configuration: %w", err)
	}

	if verbose && !quiet {
		opts.Level = "debug"
		opts.ConsoleLevel = "debug"
		opts.Console = os.Stderr
	}
	return opts, nil
}
