package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/models"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Manage jobs and job runs",
}

var jobCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Register a job (requires the daemon)",
	Long: `Registers a named job. Kinds: daily_digest, artifact_pack,
index_rebuild. A cron schedule makes the daemon run it unattended.

Examples:
  ops job create nightly-digest --kind daily_digest --schedule "0 18 * * *" --set tag=memobird
  ops job create weekly-pack --kind artifact_pack --set tag=digest --set out_dir=packs
  ops job create reindex --kind index_rebuild --set wipe=true`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kind, _ := cmd.Flags().GetString("kind")
		schedule, _ := cmd.Flags().GetString("schedule")
		sets, _ := cmd.Flags().GetStringArray("set")
		disabled, _ := cmd.Flags().GetBool("disabled")

		config, err := parseSetFlags(sets)
		if err != nil {
			fail(err)
		}
		if schedule != "" {
			config["schedule"] = schedule
		}

		cfg := loadConfig()
		c := requireDaemon(rootCtx, cfg)

		job := &models.Job{
			Name:    args[0],
			Kind:    kind,
			Config:  config,
			Enabled: !disabled,
		}
		created, err := c.CreateJob(rootCtx, job)
		if err != nil {
			fail(err)
		}
		fmt.Printf("Job created: %s\n", created.Name)
	},
}

var jobListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		asJSON, _ := cmd.Flags().GetBool("json")
		cfg := loadConfig()

		var items []*models.Job
		var err error
		if c := daemonFor(rootCtx, cfg); c != nil {
			items, err = c.ListJobs(rootCtx)
		} else {
			core := openCore(cfg)
			defer core.Close()
			items, err = core.JobService.ListJobs(rootCtx)
		}
		if err != nil {
			fail(err)
		}

		if asJSON {
			outputJSON(items)
			return
		}
		for _, j := range items {
			state := "enabled"
			if !j.Enabled {
				state = "disabled"
			}
			line := fmt.Sprintf("%s  %s  %s", j.Name, j.Kind, state)
			if s := j.Schedule(); s != "" {
				line += "  schedule=" + s
			}
			fmt.Println(line)
		}
	},
}

var jobShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print one job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		asJSON, _ := cmd.Flags().GetBool("json")
		cfg := loadConfig()

		var job *models.Job
		var err error
		if c := daemonFor(rootCtx, cfg); c != nil {
			job, err = c.GetJob(rootCtx, args[0])
		} else {
			core := openCore(cfg)
			defer core.Close()
			job, err = core.JobService.GetJob(rootCtx, args[0])
		}
		if err != nil {
			fail(err)
		}

		if asJSON {
			outputJSON(job)
		} else {
			outputJSONIndent(job)
		}
	},
}

var jobDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a job (requires the daemon)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		c := requireDaemon(rootCtx, cfg)
		if err := c.DeleteJob(rootCtx, args[0]); err != nil {
			fail(err)
		}
		fmt.Printf("Job deleted: %s\n", args[0])
	},
}

var jobRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Run a job now (requires the daemon)",
	Long: `Runs a job synchronously under the daemon's write serialization and
reports the run outcome. A failed run prints its error and exits non-zero.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		asJSON, _ := cmd.Flags().GetBool("json")
		cfg := loadConfig()
		c := requireDaemon(rootCtx, cfg)

		run, err := c.RunJob(rootCtx, args[0])
		if err != nil {
			fail(err)
		}

		if asJSON {
			outputJSON(run)
			if run.Status != models.RunStatusOK {
				os.Exit(common.ExitGeneric)
			}
			return
		}

		fmt.Printf("Run: %s\n", run.RunID)
		fmt.Printf("Status: %s\n", run.Status)
		keys := make([]string, 0, len(run.Outputs))
		for key := range run.Outputs {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Printf("  %s: %v\n", key, run.Outputs[key])
		}
		if run.Status != models.RunStatusOK {
			if run.Error != "" {
				fmt.Fprintf(os.Stderr, "Error: %s\n", run.Error)
			}
			os.Exit(common.ExitGeneric)
		}
	},
}

var jobRunsCmd = &cobra.Command{
	Use:   "runs <name>",
	Short: "List a job's run history",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")
		cfg := loadConfig()

		var runs []*models.JobRun
		var err error
		if c := daemonFor(rootCtx, cfg); c != nil {
			runs, err = c.JobRuns(rootCtx, args[0], limit)
		} else {
			core := openCore(cfg)
			defer core.Close()
			runs, err = core.JobService.ListRuns(rootCtx, args[0], limit)
		}
		if err != nil {
			fail(err)
		}

		if asJSON {
			outputJSON(runs)
			return
		}
		for _, run := range runs {
			finished := ""
			if run.FinishedAt != nil {
				finished = *run.FinishedAt
			}
			line := fmt.Sprintf("%s  %s  started=%s  finished=%s", run.ID, run.Status, run.StartedAt, finished)
			if run.Error != nil {
				line += "  error=" + *run.Error
			}
			fmt.Println(line)
		}
	},
}

func init() {
	jobCreateCmd.Flags().String("kind", "", "job kind: daily_digest, artifact_pack, index_rebuild")
	jobCreateCmd.Flags().String("schedule", "", "cron expression for unattended runs")
	jobCreateCmd.Flags().StringArray("set", nil, "job config entry key=value (repeatable)")
	jobCreateCmd.Flags().Bool("disabled", false, "register without scheduling")

	jobListCmd.Flags().Bool("json", false, "print as JSON")
	jobShowCmd.Flags().Bool("json", false, "print compact JSON")
	jobRunCmd.Flags().Bool("json", false, "print the run result as JSON")
	jobRunsCmd.Flags().IntP("limit", "n", 0, "max runs to list")
	jobRunsCmd.Flags().Bool("json", false, "print as JSON")

	jobCmd.AddCommand(jobCreateCmd)
	jobCmd.AddCommand(jobListCmd)
	jobCmd.AddCommand(jobShowCmd)
	jobCmd.AddCommand(jobDeleteCmd)
	jobCmd.AddCommand(jobRunCmd)
	jobCmd.AddCommand(jobRunsCmd)
	rootCmd.AddCommand(jobCmd)
}
