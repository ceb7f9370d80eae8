package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/opsbrain/internal/lock"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Maintain the SQLite index",
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Replay the canonical log into the index",
	Long: `Rebuilds the index from the canonical log. The log is the source of
truth; this is the remediation after an index insert failure or corruption.

By default the index is wiped first so the result mirrors the log exactly;
--no-wipe only adds log lines whose id is missing. --from replays a
different log file, e.g. a backup.

Examples:
  ops index rebuild
  ops index rebuild --no-wipe
  ops index rebuild --from backup/events.jsonl`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fromPath, _ := cmd.Flags().GetString("from")

		wipe, _ := cmd.Flags().GetBool("wipe")
		if noWipe, _ := cmd.Flags().GetBool("no-wipe"); noWipe {
			wipe = false
		}

		cfg := loadConfig()
		core := openCore(cfg)
		defer core.Close()

		writeLock, err := lock.AcquireWrite(rootCtx, core.Paths.WriteLock, lock.WriteTimeout())
		if err != nil {
			fail(err)
		}
		defer writeLock.Release()

		counts, err := core.JobService.RunIndexRebuild(rootCtx, fromPath, wipe, false)
		if err != nil {
			fail(err)
		}

		fmt.Println("Rebuilt index.")
		fmt.Printf("Events processed: %d\n", counts.Processed)
		fmt.Printf("Inserted: %d  Skipped(existing): %d  Parse errors: %d\n",
			counts.Inserted, counts.Skipped, counts.ParseErrors)
	},
}

func init() {
	indexRebuildCmd.Flags().String("from", "", "replay this log file instead of the workspace log")
	indexRebuildCmd.Flags().Bool("wipe", true, "wipe the index before replaying")
	indexRebuildCmd.Flags().Bool("no-wipe", false, "keep existing rows, only add missing ids")
	indexCmd.AddCommand(indexRebuildCmd)
	rootCmd.AddCommand(indexCmd)
}
