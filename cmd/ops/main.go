// ops is the command-line client for the ops brain. Every data command
// probes the daemon first and falls back to the in-process core when no
// daemon answers; --offline skips the probe. Registry CRUD, source ingest
// runs, job runs and artifact packs always need the daemon because the
// daemon owns write serialization for them.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/opsbrain/internal/app"
	"github.com/ternarybob/opsbrain/internal/client"
	"github.com/ternarybob/opsbrain/internal/common"
)

var (
	configFlag  string
	offlineFlag bool

	rootCtx = context.Background()
)

var rootCmd = &cobra.Command{
	Use:   "ops",
	Short: "Local ops brain: append-only event log with a searchable index",
	Long: `ops records events into an append-only canonical log and a SQLite
full-text index, and queries them back.

When the opsd daemon is running, commands go through its HTTP API.
When it is not (or with --offline), reads and local ingest run directly
against the workspace while holding the canonical write lock.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the parse error
		os.Exit(common.ExitUsage)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default ops.yml, env OPS_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&offlineFlag, "offline", false, "never contact the daemon")
}

// fail prints the error the way the daemonless tools do and exits with the
// kind-mapped code.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(common.ExitCode(err))
}

// cliLogger keeps command output clean: warnings and worse only, unless
// OPS_LOG_LEVEL asks for more.
func cliLogger() arbor.ILogger {
	level := os.Getenv("OPS_LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	return arbor.NewLogger().
		WithConsoleWriter(arbormodels.WriterConfiguration{
			Type:             arbormodels.LogWriterTypeConsole,
			TimeFormat:       "15:04:05",
			TextOutput:       true,
			DisableTimestamp: false,
		}).
		WithLevelFromString(level)
}

// loadConfig resolves ops.yml for this invocation.
func loadConfig() *common.Config {
	cfg, err := common.LoadConfig(configFlag)
	if err != nil {
		fail(err)
	}
	return cfg
}

// daemonFor probes the daemon once. Returns nil when --offline is set or the
// probe does not answer; callers then use the in-process core.
func daemonFor(ctx context.Context, cfg *common.Config) *client.Client {
	if offlineFlag {
		return nil
	}
	c := client.NewClient(cfg.BaseURL(), client.WithLogger(cliLogger()))
	if !c.Available(ctx) {
		return nil
	}
	return c
}

// requireDaemon is daemonFor for the commands the daemon must serve.
func requireDaemon(ctx context.Context, cfg *common.Config) *client.Client {
	c := daemonFor(ctx, cfg)
	if c == nil {
		fail(common.GenericError(nil, "this command requires the daemon; start opsd (tried %s)", cfg.BaseURL()))
	}
	return c
}

// openCore opens the workspace directly for offline commands.
func openCore(cfg *common.Config) *app.Core {
	core, err := app.NewCore(cfg, cliLogger())
	if err != nil {
		fail(err)
	}
	return core
}

// outputJSON prints one compact JSON document. HTML escaping is off so CJK
// text and file paths print as-is.
func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fail(common.GenericError(err, "cannot encode output"))
	}
}

// outputJSONIndent is outputJSON with two-space indentation.
func outputJSONIndent(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail(common.GenericError(err, "cannot encode output"))
	}
}

// parseScalar coerces a flag value the way the config loader does: bools and
// integers become typed, everything else stays a string.
func parseScalar(value string) any {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return value
}

// parseSetFlags turns repeated k=v pairs into a config map.
func parseSetFlags(pairs []string) (map[string]any, error) {
	config := map[string]any{}
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, common.ValidationError("invalid --set %q, expected key=value", pair)
		}
		config[key] = parseScalar(value)
	}
	return config, nil
}
