package main

import (
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ternarybob/opsbrain/internal/models"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Inspect single events",
}

var eventShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one event as stored in the canonical log",
	Long: `Prints the full canonical event for an id. With --open, the first
file ref is opened with the OS default application.

Examples:
  ops event show 01JMZX5GK8T2YV4Q6W8RX3KQXZ
  ops event show 01JMZX5GK8T2YV4Q6W8RX3KQXZ --open`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		openRef, _ := cmd.Flags().GetBool("open")
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg := loadConfig()

		var event *models.Event
		var err error
		if c := daemonFor(rootCtx, cfg); c != nil {
			event, err = c.GetEvent(rootCtx, args[0])
		} else {
			core := openCore(cfg)
			defer core.Close()
			event, err = core.QueryService.GetEvent(rootCtx, args[0])
		}
		if err != nil {
			fail(err)
		}

		if openRef {
			openFirstFileRef(event)
		}

		if asJSON {
			outputJSON(event)
		} else {
			outputJSONIndent(event)
		}
	},
}

// openFirstFileRef hands the first file: ref to the OS opener.
func openFirstFileRef(event *models.Event) {
	for _, ref := range event.Refs {
		if strings.HasPrefix(ref.URI, "file:") {
			shellOpen(strings.TrimPrefix(ref.URI, "file:"))
			return
		}
	}
}

// shellOpen hands a path to the OS default application. Failures are
// ignored, matching a double-click.
func shellOpen(path string) {
	switch runtime.GOOS {
	case "darwin":
		exec.Command("open", path).Run()
	case "windows":
		exec.Command("cmd", "/c", "start", "", path).Run()
	default:
		exec.Command("xdg-open", path).Run()
	}
}

func init() {
	eventShowCmd.Flags().Bool("open", false, "open the first file ref with the OS opener")
	eventShowCmd.Flags().Bool("json", false, "print compact JSON")
	eventCmd.AddCommand(eventShowCmd)
	rootCmd.AddCommand(eventCmd)
}
