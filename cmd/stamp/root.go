package main

import (
	"fmt"
	"os"

	"github.com/jamesainslie/stamp/pkg/stamp/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	// configErr holds a config read failure until a command can report it.
	configErr error

	rootCmd = &cobra.Command{
		Use:   "stamp",
		Short: "Maintain a per-component install manifest",
		Long: `Stamp scans a package tree, groups its files into components by their
top-level directory, and keeps a manifest of each component's files,
total size and version. Components whose file list or size changed
since the last run get their version bumped.

Running stamp without a subcommand is the same as 'stamp update'.

Examples:
  stamp init                  # Create an empty install_manifest.json
  stamp                       # Update the manifest, bumping revisions
  stamp update --mode minor   # Bump changed components' minor version
  stamp status                # Show pending changes without writing
  stamp status --watch        # Re-check whenever the tree changes
  stamp show -o json          # Print the stored manifest as JSON
  stamp history               # View past updates`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		PersistentPreRunE: initializeLogging,
	}
)

func init() {
	// Set here rather than in the literal to avoid an initialization cycle
	// (runUpdate reads rootCmd's flags).
	rootCmd.RunE = runUpdate

	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/stamp/config.yaml or <root>/.stamp.yaml)")
	rootCmd.PersistentFlags().StringP("root", "r", "", "package tree to scan (default: current directory)")
	rootCmd.PersistentFlags().StringP("manifest", "m", "", "manifest file, relative to root (default: install_manifest.json)")
	rootCmd.PersistentFlags().String("ignore-file", "", "ignore-pattern file, relative to root (default: .gitignore)")
	rootCmd.PersistentFlags().StringSliceP("exclude", "e", nil, "extra top-level names to exclude (can be specified multiple times)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format: pretty, plain, json, yaml, markdown, csv, tsv, template")
	rootCmd.PersistentFlags().String("template", "", "Go template for -o template")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().Bool("no-cache", false, "do not consult or refresh the stat cache")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "override walk worker count (0=auto)")
	rootCmd.PersistentFlags().String("mode", "", "bump mode for changed components: major, minor, revision (default: revision)")
	rootCmd.PersistentFlags().BoolP("dry-run", "d", false, "compute new versions without saving the manifest")

	// Bind flags to viper. --exclude is added to the configured set, not
	// bound, so it never drops the defaults.
	_ = viper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))
	_ = viper.BindPFlag("manifest", rootCmd.PersistentFlags().Lookup("manifest"))
	_ = viper.BindPFlag("ignore_file", rootCmd.PersistentFlags().Lookup("ignore-file"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("template", rootCmd.PersistentFlags().Lookup("template"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("no_cache", rootCmd.PersistentFlags().Lookup("no-cache"))
	_ = viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode"))
	_ = viper.BindPFlag("dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	v := viper.GetViper()
	config.Setup(v, cfgFile, v.GetString("root"))
	configErr = config.Read(v)
}

// loadConfig decodes the merged flags, environment, file and defaults.
func loadConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	return config.Decode(viper.GetViper())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
