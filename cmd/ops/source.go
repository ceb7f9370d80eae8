package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/models"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage registered ingest sources",
}

var sourceCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Register a source (requires the daemon)",
	Long: `Registers a named source the daemon can ingest on demand.

Examples:
  ops source create chat --path ~/exports/chat.json --tag memobird
  ops source create chat --path ./chat.json --no-copy`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kind, _ := cmd.Flags().GetString("kind")
		path, _ := cmd.Flags().GetString("path")
		noCopy, _ := cmd.Flags().GetBool("no-copy")
		tags, _ := cmd.Flags().GetStringArray("tag")

		cfg := loadConfig()
		c := requireDaemon(rootCtx, cfg)

		source := &models.Source{
			Name:   args[0],
			Kind:   kind,
			Config: map[string]any{"path": path, "copy": !noCopy},
			Tags:   tags,
		}
		created, err := c.CreateSource(rootCtx, source)
		if err != nil {
			fail(err)
		}
		fmt.Printf("Source created: %s\n", created.Name)
	},
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered sources",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		asJSON, _ := cmd.Flags().GetBool("json")
		cfg := loadConfig()

		var items []*models.Source
		var err error
		if c := daemonFor(rootCtx, cfg); c != nil {
			items, err = c.ListSources(rootCtx)
		} else {
			core := openCore(cfg)
			defer core.Close()
			items, err = core.SourceService.ListSources(rootCtx)
		}
		if err != nil {
			fail(err)
		}

		if asJSON {
			outputJSON(items)
			return
		}
		for _, s := range items {
			path, _ := s.Config["path"].(string)
			fmt.Printf("%s  %s  %s  tags=%v\n", s.Name, s.Kind, path, s.Tags)
		}
	},
}

var sourceShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print one source",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		asJSON, _ := cmd.Flags().GetBool("json")
		cfg := loadConfig()

		var source *models.Source
		var err error
		if c := daemonFor(rootCtx, cfg); c != nil {
			source, err = c.GetSource(rootCtx, args[0])
		} else {
			core := openCore(cfg)
			defer core.Close()
			source, err = core.SourceService.GetSource(rootCtx, args[0])
		}
		if err != nil {
			fail(err)
		}

		if asJSON {
			outputJSON(source)
		} else {
			outputJSONIndent(source)
		}
	},
}

var sourceDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a source (requires the daemon)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		c := requireDaemon(rootCtx, cfg)
		if err := c.DeleteSource(rootCtx, args[0]); err != nil {
			fail(err)
		}
		fmt.Printf("Source deleted: %s\n", args[0])
	},
}

var sourceTestCmd = &cobra.Command{
	Use:   "test <name>",
	Short: "Check that a source's file is readable",
	Long: `Checks the source's configured path: exists, is a file, is readable.
A failing check prints the reason and exits with the adapter error code.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		var details map[string]any
		var testErr error
		if c := daemonFor(rootCtx, cfg); c != nil {
			result, err := c.TestSource(rootCtx, args[0])
			if err != nil {
				fail(err)
			}
			if !result.OK {
				testErr = common.AdapterError(nil, "%s", result.Error)
			}
			details = result.Details
		} else {
			core := openCore(cfg)
			defer core.Close()
			details, testErr = core.SourceService.TestSource(rootCtx, args[0])
			if testErr != nil && common.IsNotFound(testErr) {
				fail(testErr)
			}
		}

		if testErr != nil {
			fmt.Printf("FAILED: %v\n", testErr)
			os.Exit(common.ExitAdapter)
		}
		fmt.Printf("OK: path=%v size=%v\n", details["path"], details["size"])
	},
}

func init() {
	sourceCreateCmd.Flags().String("kind", models.SourceKindChatJSONFile, "source adapter kind")
	sourceCreateCmd.Flags().String("path", "", "file the source ingests")
	sourceCreateCmd.Flags().Bool("no-copy", false, "ingest in place without archiving")
	sourceCreateCmd.Flags().StringArray("tag", nil, "tags applied to every ingested event (repeatable)")

	sourceListCmd.Flags().Bool("json", false, "print as JSON")
	sourceShowCmd.Flags().Bool("json", false, "print compact JSON")

	sourceCmd.AddCommand(sourceCreateCmd)
	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceShowCmd)
	sourceCmd.AddCommand(sourceDeleteCmd)
	sourceCmd.AddCommand(sourceTestCmd)
	rootCmd.AddCommand(sourceCmd)
}
