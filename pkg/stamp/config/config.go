package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/stamp/pkg/stamp/component"
	"github.com/jamesainslie/stamp/pkg/stamp/logging"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// CacheConfig configures the stat cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// HistoryConfig configures the update journal.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// WatchConfig configures status --watch.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Config represents the application configuration.
type Config struct {
	Root       string        `mapstructure:"root"`
	Manifest   string        `mapstructure:"manifest"`
	IgnoreFile string        `mapstructure:"ignore_file"`
	Exclude    []string      `mapstructure:"exclude"`
	Mode       string        `mapstructure:"mode"`
	Output     string        `mapstructure:"output"`
	Template   string        `mapstructure:"template"`
	Quiet      bool          `mapstructure:"quiet"`
	Verbose    bool          `mapstructure:"verbose"`
	NoCache    bool          `mapstructure:"no_cache"`
	Workers    int           `mapstructure:"workers"`
	Cache      CacheConfig   `mapstructure:"cache"`
	History    HistoryConfig `mapstructure:"history"`
	Watch      WatchConfig   `mapstructure:"watch"`
	Logging    LoggingConfig `mapstructure:"logging"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("root", DefaultRoot)
	v.SetDefault("manifest", DefaultManifest)
	v.SetDefault("ignore_file", DefaultIgnoreFile)
	v.SetDefault("exclude", DefaultExclusions)
	v.SetDefault("mode", DefaultMode)
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("template", "")
	v.SetDefault("quiet", false)
	v.SetDefault("verbose", false)
	v.SetDefault("no_cache", false)
	v.SetDefault("workers", 0) // 0 means auto

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", "") // empty means CacheDir()

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "") // empty means HistoryDir()
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("watch.debounce", DefaultDebounce)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // empty means logging.DefaultLogPath()
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"scanner": "info",
		"engine":  "info",
		"watcher": "warn",
	})
}

// Setup prepares v to read configuration. An explicit configFile wins;
// otherwise .stamp.yaml in root is used when present, else config.yaml
// from $XDG_CONFIG_HOME/stamp or ~/.config/stamp.
// Environment variables are prefixed with STAMP_ (e.g. STAMP_MODE).
func Setup(v *viper.Viper, configFile, root string) {
	switch {
	case configFile != "":
		v.SetConfigFile(configFile)
	case root != "" && fileExists(filepath.Join(root, ProjectConfigFile)):
		v.SetConfigFile(filepath.Join(root, ProjectConfigFile))
	default:
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, "stamp"))
		}
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "stamp"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
}

// Read reads the config file. A missing file found by search is not an
// error; a missing explicit file is.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Decode unmarshals v into a Config and expands ~ in paths.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.Root, &cfg.Manifest, &cfg.IgnoreFile, &cfg.Cache.Path, &cfg.History.Path, &cfg.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	return &cfg, nil
}

// Load reads configuration from file and environment with a fresh viper.
func Load(configFile, root string) (*Config, error) {
	v := viper.New()
	Setup(v, configFile, root)
	if err := Read(v); err != nil {
		return nil, err
	}
	return Decode(v)
}

// RootPath returns the absolute scan root.
func (c *Config) RootPath() (string, error) {
	root := c.Root
	if root == "" {
		root = DefaultRoot
	}
	return filepath.Abs(root)
}

// resolve makes p absolute, relative to the scan root.
func (c *Config) resolve(p string) (string, error) {
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	root, err := c.RootPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, p), nil
}

// ManifestPath returns the absolute manifest path.
func (c *Config) ManifestPath() (string, error) {
	p := c.Manifest
	if p == "" {
		p = DefaultManifest
	}
	return c.resolve(p)
}

// IgnorePath returns the absolute ignore-file path, or "" when disabled.
func (c *Config) IgnorePath() (string, error) {
	if c.IgnoreFile == "" {
		return "", nil
	}
	return c.resolve(c.IgnoreFile)
}

// HistoryDir returns the absolute history directory.
func (c *Config) HistoryDir() (string, error) {
	if c.History.Path == "" {
		return filepath.Join(DataDir(), "history"), nil
	}
	return c.resolve(c.History.Path)
}

// CacheDir returns the stat cache directory.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Path == "" {
		return filepath.Join(CacheDir(), "stat"), nil
	}
	return c.resolve(c.Cache.Path)
}

// CacheEnabled reports whether the stat cache should be used.
func (c *Config) CacheEnabled() bool {
	return c.Cache.Enabled && !c.NoCache
}

// SelfPatterns returns ignore patterns for stamp's own files when they
// live under the root: the manifest, its temp file, the ignore file and
// the history directory. Without them every save would change the
// component holding the manifest.
func (c *Config) SelfPatterns() ([]string, error) {
	root, err := c.RootPath()
	if err != nil {
		return nil, err
	}

	var patterns []string
	add := func(path string, dir bool) {
		if path == "" {
			return
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return
		}
		rel = component.Normalize(filepath.ToSlash(rel))
		if dir {
			rel += "/"
		}
		patterns = append(patterns, rel)
	}

	manifest, err := c.ManifestPath()
	if err != nil {
		return nil, err
	}
	add(manifest, false)
	add(manifest+".tmp", false)

	ignorePath, err := c.IgnorePath()
	if err != nil {
		return nil, err
	}
	add(ignorePath, false)

	if c.History.Enabled {
		historyDir, err := c.HistoryDir()
		if err != nil {
			return nil, err
		}
		add(historyDir, true)
	}

	return patterns, nil
}

// LoggingOptions converts the logging section for logging.Init.
func (c *Config) LoggingOptions() (logging.Config, error) {
	rotation := logging.DefaultRotationConfig()
	if c.Logging.Rotation.MaxSize != "" {
		size, err := humanize.ParseBytes(c.Logging.Rotation.MaxSize)
		if err != nil {
			return logging.Config{}, fmt.Errorf("invalid logging.rotation.max_size %q: %w", c.Logging.Rotation.MaxSize, err)
		}
		rotation.MaxSize = int64(size)
	}
	rotation.MaxAge = c.Logging.Rotation.MaxAge
	rotation.MaxBackups = c.Logging.Rotation.MaxBackups
	rotation.Daily = c.Logging.Rotation.Daily

	return logging.Config{
		Level:      c.Logging.Level,
		Path:       c.Logging.Path,
		Rotation:   rotation,
		Components: c.Logging.Components,
	}, nil
}

// ConfigDir returns the user configuration directory.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "stamp"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "stamp"), nil
}

// DefaultConfigPath returns the user config file path.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DataDir returns $XDG_DATA_HOME/stamp/ for the history journal.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "stamp")
}

// CacheDir returns $XDG_CACHE_HOME/stamp/ for the stat cache.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, "stamp")
}

// WriteDefault writes a commented default config file to path, creating
// parent directories. It returns false without writing if the file exists.
func WriteDefault(path string) (bool, error) {
	if fileExists(path) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(`# stamp configuration

# Package tree to scan
root: %s

# Manifest file, relative to root unless absolute
manifest: %s

# Ignore-pattern file, relative to root (missing file is fine)
ignore_file: %s

# First path segments that are never scanned
exclude:
%s
# Default bump mode: major, minor or revision
mode: %s

# Report format: pretty, plain, json, yaml, markdown, csv, tsv, template
output: %s

# Parallel walk workers (0 = based on CPU count)
workers: 0

# Stat cache (reports touched files, never affects versioning)
cache:
  enabled: true
  path: ""   # default: $XDG_CACHE_HOME/stamp/stat

# Journal of manifest updates
history:
  enabled: true
  path: ""   # default: $XDG_DATA_HOME/stamp/history
  retention_days: %d

# status --watch
watch:
  debounce: %s

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means $XDG_STATE_HOME/stamp/stamp.log)
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    scanner: info
    engine: info
    watcher: warn
`, DefaultRoot, DefaultManifest, DefaultIgnoreFile, excludeYAML(), DefaultMode, DefaultOutput, DefaultRetentionDays, DefaultDebounce)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("failed to write default config: %w", err)
	}
	return true, nil
}

// excludeYAML renders DefaultExclusions as a YAML list body.
func excludeYAML() string {
	var b strings.Builder
	for _, name := range DefaultExclusions {
		fmt.Fprintf(&b, "  - %s\n", name)
	}
	return b.String()
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
