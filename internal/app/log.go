package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/wpbatch/internal/output"
)

var (
	logFlagLimit  int
	logFlagOffset int
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the plugin update log",
	Long: `Show update-log records, newest first. One record is written per
processed plugin plus one per batch rollback.`,
	Example: `  wpbatch log                 # Most recent 20 records
  wpbatch log --limit 50
  wpbatch log --limit 20 --offset 20`,
	RunE: runLog,
}

func init() {
	logCmd.Flags().IntVar(&logFlagLimit, "limit", 20, "Maximum records to show")
	logCmd.Flags().IntVar(&logFlagOffset, "offset", 0, "Records to skip")

	RootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.ListLogEntries(logFlagLimit, logFlagOffset)
	if err != nil {
		return fmt.Errorf("failed to read update log: %w", err)
	}

	fmt.Print(output.RenderLogTable(entries))
	return nil
}
