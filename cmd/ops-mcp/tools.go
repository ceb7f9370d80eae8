package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createSearchEventsTool returns the search_events tool definition
func createSearchEventsTool() mcp.Tool {
	return mcp.NewTool("search_events",
		mcp.WithDescription("Search the event index using full-text search (SQLite FTS5)"),
		mcp.WithString("query",
			mcp.Description("Search query; empty lists the newest events"),
		),
		mcp.WithArray("types",
			mcp.WithStringItems(),
			mcp.Description("Filter by event types: chat.message, note, artifact.created"),
		),
		mcp.WithArray("tags",
			mcp.WithStringItems(),
			mcp.Description("Only events carrying all of these tags"),
		),
		mcp.WithString("after",
			mcp.Description("Only events at or after this RFC3339 timestamp"),
		),
		mcp.WithString("before",
			mcp.Description("Only events strictly before this RFC3339 timestamp"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results to return (default: 20, max: 100)"),
		),
	)
}

// createGetEventTool returns the get_event tool definition
func createGetEventTool() mcp.Tool {
	return mcp.NewTool("get_event",
		mcp.WithDescription("Retrieve a single event by its unique ID"),
		mcp.WithString("event_id",
			mcp.Required(),
			mcp.Description("Event ULID (26 characters, Crockford base32)"),
		),
	)
}

// createListViewsTool returns the list_views tool definition
func createListViewsTool() mcp.Tool {
	return mcp.NewTool("list_views",
		mcp.WithDescription("List saved views and their stored queries"),
	)
}
