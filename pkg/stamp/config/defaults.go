// Package config provides configuration management for stamp.
package config

import "time"

// Default configuration values for stamp.
const (
	// DefaultRoot is the package tree scanned when none is given.
	DefaultRoot = "."

	// DefaultManifest is the manifest file, relative to the root.
	DefaultManifest = "install_manifest.json"

	// DefaultIgnoreFile is the ignore-pattern file, relative to the root.
	DefaultIgnoreFile = ".gitignore"

	// DefaultMode is the bump mode used when none is given.
	DefaultMode = "revision"

	// DefaultOutput is the report format.
	DefaultOutput = "pretty"

	// DefaultRetentionDays is how long history entries are kept.
	DefaultRetentionDays = 90

	// DefaultDebounce is the quiet period for status --watch.
	DefaultDebounce = 500 * time.Millisecond

	// ProjectConfigFile is a per-tree config file looked up in the root.
	ProjectConfigFile = ".stamp.yaml"

	// EnvPrefix prefixes environment overrides (e.g. STAMP_MODE).
	EnvPrefix = "STAMP"
)

// DefaultExclusions are first path segments never scanned. They match
// what the package installer expects to be left out of a release.
var DefaultExclusions = []string{
	".git",
	".hg",
	".svn",
	".vscode",
	".settings",
	".install-cache",
	".generate_package.py",
	"spec",
	"tests",
	"logs",
}
