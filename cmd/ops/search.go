package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ternarybob/opsbrain/internal/models"
)

var searchCmd = &cobra.Command{
	Use:     "search [query]",
	Aliases: []string{"query"},
	Short:   "Search events",
	Long: `Searches the event index. With a query string the full-text index is
used; without one, events are filtered and listed newest first.

Offline, a full-text query that matches nothing is retried as a plain
substring match.

Examples:
  ops search 打印机
  ops search printer --tag memobird --limit 10
  ops search --type chat.message --after 2026-01-01T00:00:00+09:00 --json`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		types, _ := cmd.Flags().GetStringArray("type")
		tags, _ := cmd.Flags().GetStringArray("tag")
		after, _ := cmd.Flags().GetString("after")
		before, _ := cmd.Flags().GetString("before")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		filters := &models.EventFilters{
			Types:  splitCSV(types),
			Tags:   splitCSV(tags),
			After:  after,
			Before: before,
			Limit:  limit,
		}
		if len(args) == 1 {
			filters.Q = args[0]
		}

		cfg := loadConfig()

		var items []*models.EventSummary
		var err error
		if c := daemonFor(rootCtx, cfg); c != nil {
			items, err = c.SearchEvents(rootCtx, filters)
		} else {
			core := openCore(cfg)
			defer core.Close()
			items, err = core.QueryService.SummariesWithFallback(rootCtx, filters)
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

// splitCSV also accepts comma-joined values inside repeated flags, the same
// multiplicity the HTTP surface takes.
func splitCSV(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func init() {
	searchCmd.Flags().StringArray("type", nil, "filter by event type (repeatable or CSV)")
	searchCmd.Flags().StringArray("tag", nil, "filter by tag (repeatable or CSV)")
	searchCmd.Flags().String("after", "", "ISO lower bound on ts (inclusive)")
	searchCmd.Flags().String("before", "", "ISO upper bound on ts (inclusive)")
	searchCmd.Flags().IntP("limit", "n", 0, "max results (default 50, cap 500)")
	searchCmd.Flags().Bool("json", false, "print results as JSON")
	rootCmd.AddCommand(searchCmd)
}
