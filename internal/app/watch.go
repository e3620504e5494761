package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/wpbatch/internal/batch"
	"github.com/blackwell-systems/wpbatch/internal/output"
	"github.com/blackwell-systems/wpbatch/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the drop directory for incoming batch files",
	Long: `Watch the configured drop directory and apply each batch file dropped
into it. Files are picked up once writes have settled, processed exactly
as 'wpbatch apply --yes', and renamed with a .done (or .failed) suffix so
they are not picked up again.

Runs in the foreground until interrupted.`,
	RunE: runWatch,
}

func init() {
	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := os.MkdirAll(cfg.DropDir, 0755); err != nil {
		return fmt.Errorf("failed to create drop directory: %w", err)
	}

	proc := newProcessor(cfg, st)
	mgr := newManifestManager(cfg, st)
	notifier := newNotifier(cfg)

	handler := func(path string) {
		fmt.Printf("Processing %s\n", path)

		file, err := batch.LoadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "watch: %v\n", err)
			markProcessed(path, false)
			return
		}

		items := file.Items()
		annotateCompatibility(items, cfg)

		batchID := file.BatchID
		if batchID == "" {
			batchID = uuid.New().String()
		}
		user := file.User
		if user == "" {
			user = "watch"
		}

		results, summary := proc.ProcessBatch(batchID, items, false, user)
		fmt.Print(output.RenderResultTable(results))
		fmt.Println(summaryLine(summary))

		if _, err := mgr.RecordBatch(batchID, results, user); err != nil {
			fmt.Fprintf(os.Stderr, "watch: batch applied but manifest not recorded: %v\n", err)
		}

		notifier.Notify("batch_processed", map[string]any{
			"batch_id": batchID,
			"user":     user,
			"summary":  summary,
		})

		markProcessed(path, batch.ExitCode(results) == 0)
	}

	w, err := watcher.New(cfg.DropDir, handler)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}

	fmt.Printf("Watching %s for batch files. Press Ctrl-C to stop.\n", cfg.DropDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nStopping watcher...")
	return w.Stop()
}

// markProcessed renames a handled batch file so it is not re-triggered.
func markProcessed(path string, ok bool) {
	suffix := ".done"
	if !ok {
		suffix = ".failed"
	}
	if err := os.Rename(path, path+suffix); err != nil {
		fmt.Fprintf(os.Stderr, "watch: failed to rename %s: %v\n", path, err)
	}
}
