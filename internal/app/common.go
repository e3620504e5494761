package app

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/wpbatch/internal/backup"
	"github.com/blackwell-systems/wpbatch/internal/batch"
	"github.com/blackwell-systems/wpbatch/internal/compat"
	"github.com/blackwell-systems/wpbatch/internal/config"
	"github.com/blackwell-systems/wpbatch/internal/manifest"
	"github.com/blackwell-systems/wpbatch/internal/notify"
	"github.com/blackwell-systems/wpbatch/internal/store"
	"github.com/blackwell-systems/wpbatch/internal/wp"
)

// loadConfig resolves the config file: the --config flag when given, the
// default location when present, built-in defaults otherwise.
func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.Load(flagConfig)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return config.Default(), nil
	}

	path := filepath.Join(home, ".wpbatch", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return config.Default(), nil
	}

	return config.Load(path)
}

// openStore opens the database and ensures the schema exists.
func openStore() (*store.Store, error) {
	dbPath, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get database path: %w", err)
	}

	st, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := st.CreateSchema(); err != nil {
		st.Close()
		return nil, err
	}

	return st, nil
}

// newProcessor wires the production batch processor: wp-cli as installer
// and activator, filesystem backups, the store as log sink.
func newProcessor(cfg *config.Config, st *store.Store) *batch.Processor {
	cli := wp.NewCLI(cfg.WPCLIPath, cfg.SitePath)
	items := batch.NewItemProcessor(cli, cli, backup.New(cfg.BackupDir), cfg)
	return batch.NewProcessor(items, st)
}

// newManifestManager wires the manifest manager.
func newManifestManager(cfg *config.Config, st *store.Store) *manifest.Manager {
	return manifest.New(st, backup.New(cfg.BackupDir), cfg)
}

// newNotifier returns the configured webhook notifier, or a no-op.
func newNotifier(cfg *config.Config) notify.Notifier {
	if cfg.NotifyURL == "" {
		return notify.Nop{}
	}
	return notify.NewWebhook(cfg.NotifyURL)
}

// annotateCompatibility fills each item's issue list from its requires_*
// metadata and the configured site versions.
func annotateCompatibility(items []batch.PackageItem, cfg *config.Config) {
	platform := compat.Platform{WPVersion: cfg.WPVersion, PHPVersion: cfg.PHPVersion}
	for i := range items {
		if len(items[i].CompatibilityIssues) == 0 {
			items[i].CompatibilityIssues = compat.Issues(items[i].RequiresWP, items[i].RequiresPHP, platform)
		}
	}
}

// summaryLine formats a batch summary for terminal display.
func summaryLine(s batch.BatchSummary) string {
	line := fmt.Sprintf("%d processed: %d installed, %d updated, %d failed, %d incompatible",
		s.Total, s.Installed, s.Updated, s.Failed, s.Incompatible)
	if s.RolledBack > 0 {
		line += fmt.Sprintf(" (%d rolled back)", s.RolledBack)
	}
	return line
}

// confirm prompts for a yes/no answer, defaulting to no.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
