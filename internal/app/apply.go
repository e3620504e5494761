package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/wpbatch/internal/batch"
	"github.com/blackwell-systems/wpbatch/internal/output"
)

var (
	applyFlagDryRun bool
	applyFlagYes    bool
	applyFlagUser   string
)

var applyCmd = &cobra.Command{
	Use:   "apply <batch-file>",
	Short: "Apply a batch of plugin installs and updates",
	Long: `Apply a batch file: install new plugins and update existing ones from
their staged archives, one at a time, in the order listed.

Each update is protected by a filesystem backup of the plugin directory;
when an update fails the backup is restored automatically (unless
auto_rollback is disabled). Failed installs get their partial files
removed. A failure in one plugin never stops the rest of the batch.

Unless --dry-run is given, the completed batch is recorded in a manifest
and stays eligible for 'wpbatch rollback' until it expires.`,
	Example: `  wpbatch apply batch.yaml --dry-run   # Preview only
  wpbatch apply batch.yaml             # Apply with confirmation
  wpbatch apply batch.yaml --yes       # Apply without confirmation`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&applyFlagDryRun, "dry-run", false, "Show what would happen without touching the site")
	applyCmd.Flags().BoolVar(&applyFlagYes, "yes", false, "Skip confirmation prompt")
	applyCmd.Flags().StringVar(&applyFlagUser, "user", "", "Acting user recorded in the log and manifest")

	RootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	file, err := batch.LoadFile(args[0])
	if err != nil {
		return err
	}

	items := file.Items()
	annotateCompatibility(items, cfg)

	batchID := file.BatchID
	if batchID == "" {
		batchID = uuid.New().String()
	}

	user := applyFlagUser
	if user == "" {
		user = file.User
	}
	if user == "" {
		user = "cli"
	}

	// Display the plan
	fmt.Printf("\nBatch %s (%d plugins):\n", batchID, len(items))
	for _, item := range items {
		if item.Action == batch.ActionUpdate {
			fmt.Printf("  - update %s %s → %s\n", item.Slug, item.InstalledVersion, item.TargetVersion)
		} else {
			fmt.Printf("  - install %s %s\n", item.Slug, item.TargetVersion)
		}
		for _, issue := range item.CompatibilityIssues {
			fmt.Printf("      ⚠ %s\n", issue)
		}
	}
	fmt.Println()

	if applyFlagDryRun {
		fmt.Println("Dry-run mode: no plugins will be modified.")
	} else if !applyFlagYes {
		if !confirm(fmt.Sprintf("Apply %d plugin operations?", len(items))) {
			fmt.Println("Batch cancelled.")
			return nil
		}
	}

	proc := newProcessor(cfg, st)

	progress := output.NewProgress(len(items), "Applying batch")
	proc.OnItem = func(batch.ProcessResult) { progress.Increment() }
	results, summary := proc.ProcessBatch(batchID, items, applyFlagDryRun, user)
	progress.Finish()

	fmt.Println()
	fmt.Print(output.RenderResultTable(results))
	fmt.Printf("\n%s\n", summaryLine(summary))

	if !applyFlagDryRun {
		mgr := newManifestManager(cfg, st)
		if _, err := mgr.RecordBatch(batchID, results, user); err != nil {
			fmt.Fprintf(os.Stderr, "warning: batch applied but manifest not recorded: %v\n", err)
		} else {
			fmt.Printf("\nBatch recorded: %s\n", batchID)
			fmt.Printf("Undo with: wpbatch rollback %s (within %dh)\n", batchID, cfg.RetentionHours())
		}

		newNotifier(cfg).Notify("batch_processed", map[string]any{
			"batch_id": batchID,
			"user":     user,
			"summary":  summary,
		})
	}

	if code := batch.ExitCode(results); code != 0 {
		return &exitError{code: code}
	}

	return nil
}
