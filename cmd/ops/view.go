package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/opsbrain/internal/models"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Manage saved views",
}

var viewCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Save a named query (requires the daemon)",
	Long: `Saves a partial query under a name. Querying the view merges these
stored filters with the request's filters.

Examples:
  ops view create printer --tag memobird --description "printer chatter"
  ops view create recent-chat --type chat.message --order desc`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		description, _ := cmd.Flags().GetString("description")
		types, _ := cmd.Flags().GetStringArray("type")
		tags, _ := cmd.Flags().GetStringArray("tag")
		after, _ := cmd.Flags().GetString("after")
		before, _ := cmd.Flags().GetString("before")
		order, _ := cmd.Flags().GetString("order")

		cfg := loadConfig()
		c := requireDaemon(rootCtx, cfg)

		view := &models.View{
			Name:        args[0],
			Description: description,
			Query: models.ViewQuery{
				Kind: models.ViewQueryKindEvents,
				Filters: models.ViewFilters{
					Type:   models.StringOrList(splitCSV(types)),
					Tag:    models.StringOrList(splitCSV(tags)),
					After:  after,
					Before: before,
				},
				Order: order,
			},
		}
		created, err := c.CreateView(rootCtx, view)
		if err != nil {
			fail(err)
		}
		fmt.Printf("View created: %s\n", created.Name)
	},
}

var viewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved views",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		asJSON, _ := cmd.Flags().GetBool("json")
		cfg := loadConfig()

		var items []*models.View
		var err error
		if c := daemonFor(rootCtx, cfg); c != nil {
			items, err = c.ListViews(rootCtx)
		} else {
			core := openCore(cfg)
			defer core.Close()
			items, err = core.QueryService.ListViews(rootCtx)
		}
		if err != nil {
			fail(err)
		}

		if asJSON {
			outputJSON(items)
			return
		}
		for _, v := range items {
			fmt.Printf("%s  %s\n", v.Name, v.Description)
		}
	},
}

var viewShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print one saved view",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		asJSON, _ := cmd.Flags().GetBool("json")
		cfg := loadConfig()

		var view *models.View
		var err error
		if c := daemonFor(rootCtx, cfg); c != nil {
			view, err = c.GetView(rootCtx, args[0])
		} else {
			core := openCore(cfg)
			defer core.Close()
			view, err = core.QueryService.GetView(rootCtx, args[0])
		}
		if err != nil {
			fail(err)
		}

		if asJSON {
			outputJSON(view)
		} else {
			outputJSONIndent(view)
		}
	},
}

var viewDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved view (requires the daemon)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		c := requireDaemon(rootCtx, cfg)
		if err := c.DeleteView(rootCtx, args[0]); err != nil {
			fail(err)
		}
		fmt.Printf("View deleted: %s\n", args[0])
	},
}

var viewQueryCmd = &cobra.Command{
	Use:   "query <name>",
	Short: "Run a saved view",
	Long: `Runs a saved view, merging its stored filters with any given here.
Stored and requested tag/type filters intersect; time bounds tighten.

Examples:
  ops view query timeline
  ops view query printer --limit 10 --json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		types, _ := cmd.Flags().GetStringArray("type")
		tags, _ := cmd.Flags().GetStringArray("tag")
		after, _ := cmd.Flags().GetString("after")
		before, _ := cmd.Flags().GetString("before")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg := loadConfig()

		var items []*models.EventSummary
		var err error
		if c := daemonFor(rootCtx, cfg); c != nil {
			filters := map[string]any{}
			if len(types) > 0 {
				filters["type"] = splitCSV(types)
			}
			if len(tags) > 0 {
				filters["tag"] = splitCSV(tags)
			}
			if after != "" {
				filters["after"] = after
			}
			if before != "" {
				filters["before"] = before
			}
			items, err = c.QueryView(rootCtx, args[0], filters, limit)
		} else {
			core := openCore(cfg)
			defer core.Close()
			requested := &models.EventFilters{
				Types:  splitCSV(types),
				Tags:   splitCSV(tags),
				After:  after,
				Before: before,
				Limit:  limit,
			}
			var result any
			result, err = core.QueryService.QueryView(rootCtx, args[0], requested)
			if summaries, ok := result.([]*models.EventSummary); ok {
				items = summaries
			}
		}
		if err != nil {
			fail(err)
		}

		if asJSON {
			outputJSON(items)
			return
		}
		for _, item := range items {
			fmt.Printf("%s %s %s %s\n", item.ID, item.TS, item.Type, item.Snippet)
		}
	},
}

func init() {
	viewCreateCmd.Flags().String("description", "", "human description")
	viewCreateCmd.Flags().StringArray("type", nil, "stored type filter (repeatable or CSV)")
	viewCreateCmd.Flags().StringArray("tag", nil, "stored tag filter (repeatable or CSV)")
	viewCreateCmd.Flags().String("after", "", "stored ISO lower bound on ts")
	viewCreateCmd.Flags().String("before", "", "stored ISO upper bound on ts")
	viewCreateCmd.Flags().String("order", "", "stored sort order: asc or desc")

	viewListCmd.Flags().Bool("json", false, "print as JSON")
	viewShowCmd.Flags().Bool("json", false, "print compact JSON")

	viewQueryCmd.Flags().StringArray("type", nil, "additional type filter (intersects stored)")
	viewQueryCmd.Flags().StringArray("tag", nil, "additional tag filter (intersects stored)")
	viewQueryCmd.Flags().String("after", "", "ISO lower bound on ts")
	viewQueryCmd.Flags().String("before", "", "ISO upper bound on ts")
	viewQueryCmd.Flags().IntP("limit", "n", 0, "max results (default 50, cap 500)")
	viewQueryCmd.Flags().Bool("json", false, "print results as JSON")

	viewCmd.AddCommand(viewCreateCmd)
	viewCmd.AddCommand(viewListCmd)
	viewCmd.AddCommand(viewShowCmd)
	viewCmd.AddCommand(viewDeleteCmd)
	viewCmd.AddCommand(viewQueryCmd)
	rootCmd.AddCommand(viewCmd)
}
