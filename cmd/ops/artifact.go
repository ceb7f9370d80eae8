package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/models"
)

var artifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "List, pack and open produced artifacts",
}

var artifactListCmd = &cobra.Command{
	Use:   "list",
	Short: "List artifact.created events as artifacts",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		tag, _ := cmd.Flags().GetString("tag")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")
		cfg := loadConfig()

		var items []*models.Artifact
		var err error
		if c := daemonFor(rootCtx, cfg); c != nil {
			items, err = c.ListArtifacts(rootCtx, tag, limit)
		} else {
			core := openCore(cfg)
			defer core.Close()
			filters := &models.EventFilters{Limit: limit}
			if tag != "" {
				filters.Tags = []string{tag}
			}
			items, err = core.QueryService.ListArtifacts(rootCtx, filters)
		}
		if err != nil {
			fail(err)
		}

		if asJSON {
			outputJSON(items)
			return
		}
		for _, a := range items {
			fmt.Printf("%s  %s  %s\n", a.Path, a.Kind, a.CreatedAt)
		}
	},
}

var artifactPackCmd = &cobra.Command{
	Use:   "pack",
	Short: "Bundle tagged artifacts into a pack directory (requires the daemon)",
	Long: `Collects events tagged with --tag, copies their file refs into a pack
directory and writes a README index. The pack itself is recorded as an
artifact.created event.

Examples:
  ops artifact pack --tag digest
  ops artifact pack --tag memobird --out-dir /tmp/packs`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		tag, _ := cmd.Flags().GetString("tag")
		outDir, _ := cmd.Flags().GetString("out-dir")
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg := loadConfig()
		c := requireDaemon(rootCtx, cfg)

		result, err := c.PackArtifacts(rootCtx, tag, outDir)
		if err != nil {
			fail(err)
		}

		if asJSON {
			outputJSON(result)
			return
		}
		fmt.Printf("Pack created: %s\n", result.PackPath)
		fmt.Printf("Readme: %s\n", result.ReadmePath)
		fmt.Printf("Assets: %d\n", len(result.Assets))
	},
}

var artifactOpenCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Open an artifact file with the OS default application",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := os.Stat(args[0]); err != nil {
			fail(common.GenericError(err, "cannot open %s", args[0]))
		}
		shellOpen(args[0])
	},
}

func init() {
	artifactListCmd.Flags().String("tag", "", "only artifacts carrying this tag")
	artifactListCmd.Flags().IntP("limit", "n", 0, "max artifacts to list")
	artifactListCmd.Flags().Bool("json", false, "print as JSON")

	artifactPackCmd.Flags().String("tag", "", "tag selecting the events to pack")
	artifactPackCmd.Flags().String("out-dir", "", "pack parent directory (default from job config)")
	artifactPackCmd.Flags().Bool("json", false, "print the pack result as JSON")
	artifactPackCmd.MarkFlagRequired("tag")

	artifactCmd.AddCommand(artifactListCmd)
	artifactCmd.AddCommand(artifactPackCmd)
	artifactCmd.AddCommand(artifactOpenCmd)
	rootCmd.AddCommand(artifactCmd)
}
