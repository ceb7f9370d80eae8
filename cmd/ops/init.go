package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ternarybob/opsbrain/internal/common"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the workspace and a default ops.yml",
	Long: `Writes a default ops.yml (unless one exists), creates the workspace
directory layout, an empty canonical log, and the SQLite index schema.

Safe to run repeatedly; existing files are left alone.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		configPath := configFlag
		if configPath == "" {
			configPath = common.DefaultConfigFile
		}
		if err := common.WriteDefaultConfig(configPath); err != nil {
			fail(err)
		}

		cfg := loadConfig()
		core := openCore(cfg)
		defer core.Close()

		fmt.Printf("Initialized workspace at %s\n", core.Paths.Workspace)
		fmt.Printf("%s OK\n", filepath.Join("canonical", "events.jsonl"))
		fmt.Printf("%s OK\n", filepath.Join("index", "brain.sqlite"))
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
