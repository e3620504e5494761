package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/wpbatch/internal/output"
)

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "List batches eligible for rollback",
	Long: `List completed batches that are still within their retention window and
can be undone with 'wpbatch rollback'. Expired batches are dropped from
the listing; run 'wpbatch cleanup' to reclaim their backups.`,
	RunE: runBatches,
}

func init() {
	RootCmd.AddCommand(batchesCmd)
}

func runBatches(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	manifests, err := newManifestManager(cfg, st).GetActiveBatches()
	if err != nil {
		return fmt.Errorf("failed to list active batches: %w", err)
	}

	fmt.Print(output.RenderBatchTable(manifests))

	if len(manifests) > 0 {
		fmt.Printf("\nUndo with: wpbatch rollback <batch-id>\n")
	}

	return nil
}
