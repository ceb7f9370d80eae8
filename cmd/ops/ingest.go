package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/opsbrain/internal/client"
	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/lock"
	"github.com/ternarybob/opsbrain/internal/models"
	"github.com/ternarybob/opsbrain/internal/services/pipeline"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest events from source files",
}

var ingestChatJSONCmd = &cobra.Command{
	Use:   "chat_json <path>",
	Short: "Ingest a chat-JSON export file",
	Long: `Reads a chat-JSON file (array or NDJSON of {ts?, speaker?, content,
thread_id?} records) and ingests one chat.message event per record, deduped
by content.

By default the file is archived under raw/chat_json and the copy becomes the
event locator; --no-copy ingests in place. Works against the daemon when one
is running, otherwise writes locally under the canonical write lock.

Examples:
  ops ingest chat_json export.json --tag memobird
  ops ingest chat_json export.json --no-copy --json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tags, _ := cmd.Flags().GetStringArray("tag")
		asJSON, _ := cmd.Flags().GetBool("json")

		copyEnabled, _ := cmd.Flags().GetBool("copy")
		if noCopy, _ := cmd.Flags().GetBool("no-copy"); noCopy {
			copyEnabled = false
		}

		cfg := loadConfig()
		source := &models.Source{
			Kind:   models.SourceKindChatJSONFile,
			Config: map[string]any{"path": args[0], "copy": copyEnabled},
			Tags:   tags,
		}

		var result *models.BatchResult
		var locator string

		if c := daemonFor(rootCtx, cfg); c != nil {
			result, locator = ingestViaDaemon(c, cfg, source)
		} else {
			result, locator = ingestLocally(cfg, source)
		}

		printIngestReport(result, locator, tags, asJSON)
	},
}

var ingestRunCmd = &cobra.Command{
	Use:   "run <source>",
	Short: "Run a registered source's ingest (requires the daemon)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tags, _ := cmd.Flags().GetStringArray("tag")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg := loadConfig()
		c := requireDaemon(rootCtx, cfg)

		result, err := c.RunIngest(rootCtx, args[0], tags, dryRun)
		if err != nil {
			fail(err)
		}

		if asJSON {
			outputJSON(result)
			return
		}
		fmt.Printf("Ingested: %d  Skipped(deduped): %d  Failed: %d\n", result.New, result.Skipped, result.Failed)
		fmt.Printf("Source: %s\n", args[0])
		for _, msg := range result.Errors {
			fmt.Printf("  error: %s\n", msg)
		}
	},
}

// ingestViaDaemon builds drafts locally (the file and the raw archive are
// local concerns) and posts them as one batch.
func ingestViaDaemon(c *client.Client, cfg *common.Config, source *models.Source) (*models.BatchResult, string) {
	paths, err := cfg.ResolvePaths()
	if err != nil {
		fail(err)
	}

	drafts, locator, err := pipeline.BuildSourceDrafts(cfg, paths, source, nil)
	if err != nil {
		fail(err)
	}

	result, err := c.BatchEvents(rootCtx, draftsWire(drafts), true)
	if err != nil {
		fail(err)
	}
	return result, locator
}

// ingestLocally runs the same pipeline in-process under the canonical write
// lock.
func ingestLocally(cfg *common.Config, source *models.Source) (*models.BatchResult, string) {
	core := openCore(cfg)
	defer core.Close()

	writeLock, err := lock.AcquireWrite(rootCtx, core.Paths.WriteLock, lock.WriteTimeout())
	if err != nil {
		fail(err)
	}
	defer writeLock.Release()

	drafts, locator, err := pipeline.BuildSourceDrafts(cfg, core.Paths, source, nil)
	if err != nil {
		fail(err)
	}

	return core.PipelineService.Ingest(rootCtx, drafts, pipeline.IngestOptions{Dedupe: true}), locator
}

func printIngestReport(result *models.BatchResult, locator string, tags []string, asJSON bool) {
	if asJSON {
		outputJSON(map[string]any{
			"adapter":     models.SourceKindChatJSONFile,
			"source_path": locator,
			"new":         result.New,
			"skipped":     result.Skipped,
			"failed":      result.Failed,
			"errors":      result.Errors,
		})
		return
	}
	fmt.Printf("Ingested: %d  Skipped(deduped): %d  Failed: %d\n", result.New, result.Skipped, result.Failed)
	fmt.Printf("Source: %s\n", locator)
	fmt.Printf("Adapter: %s\n", models.SourceKindChatJSONFile)
	fmt.Printf("Tags: %v\n", tags)
	for _, msg := range result.Errors {
		fmt.Printf("  error: %s\n", msg)
	}
}

// draftsWire converts typed drafts to the events:batch wire shape.
func draftsWire(drafts []*models.Draft) []map[string]any {
	out := make([]map[string]any, 0, len(drafts))
	for _, d := range drafts {
		refs := make([]map[string]any, 0, len(d.Refs))
		for _, r := range d.Refs {
			ref := map[string]any{"kind": r.Kind, "uri": r.URI}
			if r.Span != nil {
				ref["span"] = r.Span
			}
			if r.Digest != nil {
				ref["digest"] = map[string]any{"algo": r.Digest.Algo, "value": r.Digest.Value}
			}
			refs = append(refs, ref)
		}
		out = append(out, map[string]any{
			"schema_version": d.SchemaVersion,
			"ts":             d.TS,
			"type":           d.Type,
			"tags":           d.Tags,
			"text":           d.Text,
			"payload":        d.Payload,
			"source": map[string]any{
				"kind":    d.Source.Kind,
				"locator": d.Source.Locator,
				"meta":    d.Source.Meta,
			},
			"refs": refs,
		})
	}
	return out
}

func init() {
	ingestChatJSONCmd.Flags().StringArray("tag", nil, "tag every ingested event (repeatable)")
	ingestChatJSONCmd.Flags().Bool("copy", true, "archive the file under raw/chat_json")
	ingestChatJSONCmd.Flags().Bool("no-copy", false, "ingest in place without archiving")
	ingestChatJSONCmd.Flags().Bool("json", false, "print the result as JSON")

	ingestRunCmd.Flags().StringArray("tag", nil, "extra tags for this run (repeatable)")
	ingestRunCmd.Flags().Bool("dry-run", false, "validate and dedupe-check without writing")
	ingestRunCmd.Flags().Bool("json", false, "print the result as JSON")

	ingestCmd.AddCommand(ingestChatJSONCmd)
	ingestCmd.AddCommand(ingestRunCmd)
	rootCmd.AddCommand(ingestCmd)
}
