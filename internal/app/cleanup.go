package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Sweep expired batch manifests and their backups",
	Long: `Remove batches whose retention window has passed: their recorded backups
are deleted from the backup directory and their ids are dropped from the
rollback registry. Batches still within their window are untouched.`,
	RunE: runCleanup,
}

func init() {
	RootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	removed, err := newManifestManager(cfg, st).CleanupExpired()
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	if len(removed) == 0 {
		fmt.Println("No expired batches.")
		return nil
	}

	fmt.Printf("Cleaned up %d expired batches:\n", len(removed))
	for _, id := range removed {
		fmt.Printf("  - %s\n", id)
	}

	return nil
}
