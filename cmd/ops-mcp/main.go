package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/services/query"
	"github.com/ternarybob/opsbrain/internal/storage/sqlite"
)

func main() {
	// OPS_CONFIG and the ops.yml default are resolved inside LoadConfig
	config, err := common.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Minimal logging to avoid cluttering MCP stdio
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn")

	paths, err := config.ResolvePaths()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve workspace: %v\n", err)
		os.Exit(1)
	}
	if err := paths.EnsureWorkspace(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to prepare workspace: %v\n", err)
		os.Exit(1)
	}

	// Read-only access to the index; the canonical log and locks are never
	// touched, so this can run alongside the daemon.
	storageManager, err := sqlite.NewManager(logger, paths.IndexDB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open index")
	}
	defer storageManager.Close()

	queryService := query.NewService(storageManager, config, logger)

	// Create MCP server
	mcpServer := server.NewMCPServer(
		"opsbrain",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	// Register read-only tools
	mcpServer.AddTool(createSearchEventsTool(), handleSearchEvents(queryService, logger))
	mcpServer.AddTool(createGetEventTool(), handleGetEvent(queryService, logger))
	mcpServer.AddTool(createListViewsTool(), handleListViews(queryService, logger))

	// Start server (blocks on stdio)
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
