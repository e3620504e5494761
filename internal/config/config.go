package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultRetentionHours is the fallback rollback retention window applied
// when rollback_retention_hours is unset or non-positive.
const DefaultRetentionHours = 24

// Config holds all wpbatch settings. It is loaded once at startup and passed
// explicitly to the components that need it; there is no ambient global state.
type Config struct {
	// PluginDir is the WordPress plugins directory (wp-content/plugins).
	PluginDir string `yaml:"plugin_dir"`
	// BackupDir is the root directory for pre-update backups.
	BackupDir string `yaml:"backup_dir"`
	// DropDir is watched by `wpbatch watch` for incoming batch files.
	DropDir string `yaml:"drop_dir"`

	// WPCLIPath is the wp-cli binary. Defaults to "wp" on PATH.
	WPCLIPath string `yaml:"wp_cli_path"`
	// SitePath is passed to wp-cli as --path when non-empty.
	SitePath string `yaml:"site_path"`

	// AutoActivate activates plugins after install/update unless the batch
	// item overrides it.
	AutoActivate bool `yaml:"auto_activate"`
	// AutoRollback restores the pre-update backup when an update fails.
	AutoRollback bool `yaml:"auto_rollback"`
	// RollbackRetentionHours is how long a completed batch stays eligible
	// for whole-batch rollback.
	RollbackRetentionHours int `yaml:"rollback_retention_hours"`

	// WPVersion and PHPVersion describe the target site, used for
	// compatibility checks against requires_wp / requires_php metadata.
	WPVersion  string `yaml:"wp_version"`
	PHPVersion string `yaml:"php_version"`

	// NotifyURL, when set, receives a JSON summary after each batch and
	// rollback. Delivery is fire-and-forget.
	NotifyURL string `yaml:"notify_url"`
}

// Default returns a Config with working defaults rooted under ~/.wpbatch.
func Default() *Config {
	base := "."
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, ".wpbatch")
	}

	return &Config{
		PluginDir:              filepath.Join(base, "plugins"),
		BackupDir:              filepath.Join(base, "backups"),
		DropDir:                filepath.Join(base, "drop"),
		WPCLIPath:              "wp",
		AutoActivate:           false,
		AutoRollback:           true,
		RollbackRetentionHours: DefaultRetentionHours,
	}
}

// Load reads a YAML config file and overlays it on the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// RetentionHours returns the effective rollback retention window.
// Non-positive configured values fall back to DefaultRetentionHours.
func (c *Config) RetentionHours() int {
	if c.RollbackRetentionHours <= 0 {
		return DefaultRetentionHours
	}
	return c.RollbackRetentionHours
}
