package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/wpbatch/internal/manifest"
	"github.com/blackwell-systems/wpbatch/internal/output"
)

var (
	rollbackFlagList bool
	rollbackFlagYes  bool
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback [batch-id | latest]",
	Short: "Undo a completed batch",
	Long: `Undo a previously applied batch while it is still within its retention
window.

Updated plugins are restored from the backups taken before the update;
newly installed plugins are removed. Rows that failed or were incompatible
are skipped — there is nothing to undo for them. A failure on one row does
not stop the remaining rows.

Arguments:
  batch-id  The id printed when the batch was applied
  latest    Roll back the most recently recorded batch`,
	Example: `  wpbatch rollback --list       # List batches eligible for undo
  wpbatch rollback latest       # Undo the most recent batch
  wpbatch rollback 4f7c…        # Undo a specific batch
  wpbatch rollback 4f7c… --yes  # Undo without confirmation`,
	RunE: runRollback,
}

func init() {
	rollbackCmd.Flags().BoolVar(&rollbackFlagList, "list", false, "List batches eligible for rollback")
	rollbackCmd.Flags().BoolVar(&rollbackFlagYes, "yes", false, "Skip confirmation prompt")

	RootCmd.AddCommand(rollbackCmd)
}

func runRollback(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	mgr := newManifestManager(cfg, st)

	if rollbackFlagList {
		manifests, err := mgr.GetActiveBatches()
		if err != nil {
			return fmt.Errorf("failed to list active batches: %w", err)
		}
		fmt.Print(output.RenderBatchTable(manifests))
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("batch id or 'latest' required\n\nUsage: wpbatch rollback [batch-id | latest]\n\nUse 'wpbatch rollback --list' to see eligible batches")
	}

	batchID := args[0]
	if strings.ToLower(batchID) == "latest" {
		id, err := latestBatchID(mgr)
		if err != nil {
			return err
		}
		batchID = id
		fmt.Printf("Using latest batch: %s\n", batchID)
	}

	m, err := mgr.GetBatchManifest(batchID)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("batch %s not found or expired\n\nRun 'wpbatch rollback --list' to see eligible batches", batchID)
	}

	// Display batch details
	fmt.Printf("\nBatch Details:\n")
	fmt.Printf("  ID: %s\n", m.BatchID)
	fmt.Printf("  User: %s\n", m.UserID)
	fmt.Printf("  Applied: %s\n", m.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Plugins: %d (%d installed, %d updated)\n",
		m.Summary.Total, m.Summary.Installed, m.Summary.Updated)
	fmt.Println()

	if !rollbackFlagYes {
		if !confirm(fmt.Sprintf("Roll back %d plugins?", m.Summary.Total)) {
			fmt.Println("Rollback cancelled.")
			return nil
		}
	}

	spinner := output.NewSpinner("Rolling back batch...")
	spinner.Start()
	out, err := mgr.RollbackBatch(batchID)
	spinner.Stop()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Print(output.RenderRollbackTable(out.Results))

	newNotifier(cfg).Notify("batch_rollback", map[string]any{
		"batch_id": batchID,
		"success":  out.Success,
		"failures": out.Failures,
	})

	if !out.Success {
		fmt.Printf("\n⚠️  Rollback completed with %d failures:\n", len(out.Failures))
		for _, failure := range out.Failures {
			fmt.Printf("  - %s\n", failure)
		}
		return &exitError{code: 1}
	}

	fmt.Printf("\n✓ Rolled back batch %s\n", batchID)
	return nil
}

// latestBatchID returns the most recently recorded active batch.
func latestBatchID(mgr *manifest.Manager) (string, error) {
	manifests, err := mgr.GetActiveBatches()
	if err != nil {
		return "", fmt.Errorf("failed to list active batches: %w", err)
	}

	if len(manifests) == 0 {
		return "", fmt.Errorf("no batches eligible for rollback\n\nBatches stay eligible for the configured retention window after apply.\nRun 'wpbatch rollback --list' to check again")
	}

	latest := manifests[0]
	for _, m := range manifests[1:] {
		if m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}

	return latest.BatchID, nil
}
