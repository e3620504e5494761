package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	flagConfig string
	flagDB     string

	// RootCmd is the root command for wpbatch
	RootCmd = &cobra.Command{
		Use:   "wpbatch",
		Short: "Bulk WordPress plugin install/update with rollback",
		Long: `wpbatch applies batches of WordPress plugin installs and updates from
staged archives, with per-item status tracking, automatic rollback of
failed updates, and time-limited whole-batch undo.

Updates are protected by a filesystem backup taken immediately before the
plugin directory is touched; a failed update is restored in place. Every
completed batch is recorded in a manifest that stays rollback-eligible for
a configurable retention window (default 24 hours).

Quick Start:
  1. Stage plugin archives and write a batch file (YAML)
  2. wpbatch apply batch.yaml --dry-run
  3. wpbatch apply batch.yaml
  4. wpbatch rollback latest        # if it went wrong

Examples:
  # Preview a batch without touching the site
  wpbatch apply batch.yaml --dry-run

  # Apply a batch
  wpbatch apply batch.yaml

  # List batches still eligible for undo
  wpbatch batches

  # Undo the most recent batch
  wpbatch rollback latest

  # Sweep expired manifests and their backups
  wpbatch cleanup`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ~/.wpbatch/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: ~/.wpbatch/wpbatch.db)")

	RootCmd.SuggestionsMinimumDistance = 2
}

// exitError carries a non-zero process exit code out of a command without
// treating partial failure as an error to print. Returning it (instead of
// calling os.Exit inside RunE) lets deferred cleanup such as store Close run.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return exitCode(RootCmd.Execute())
}

// exitCode maps a command result to the process exit code. Plain errors
// print to stderr and exit 1; an exitError carries its code silently.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

// getDBPath returns the database path, using the flag value or default
func getDBPath() (string, error) {
	if flagDB != "" {
		return flagDB, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	wpbatchDir := filepath.Join(home, ".wpbatch")
	if err := os.MkdirAll(wpbatchDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create wpbatch directory: %w", err)
	}

	return filepath.Join(wpbatchDir, "wpbatch.db"), nil
}
