package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/opsbrain/internal/models"
	"github.com/ternarybob/opsbrain/internal/services/query"
)

// handleSearchEvents implements the search_events tool
func handleSearchEvents(queryService *query.Service, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q := request.GetString("query", "")

		// Parse limit (default: 20, max: 100)
		limit := request.GetInt("limit", 20)
		if limit > 100 {
			limit = 100
		}

		filters := &models.EventFilters{
			Q:      q,
			Types:  request.GetStringSlice("types", nil),
			Tags:   request.GetStringSlice("tags", nil),
			After:  request.GetString("after", ""),
			Before: request.GetString("before", ""),
			Limit:  limit,
		}

		items, err := queryService.SummariesWithFallback(ctx, filters)
		if err != nil {
			logger.Error().Err(err).Msg("Search failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Search error: %v", err)),
				},
			}, nil
		}

		markdown := formatEventSummaries(q, items)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(markdown),
			},
		}, nil
	}
}

// handleGetEvent implements the get_event tool
func handleGetEvent(queryService *query.Service, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		eventID, err := request.RequireString("event_id")
		if err != nil || eventID == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: event_id parameter is required"),
				},
			}, nil
		}

		event, err := queryService.GetEvent(ctx, eventID)
		if err != nil {
			logger.Error().Err(err).Str("event_id", eventID).Msg("GetEvent failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Event not found: %v", err)),
				},
			}, nil
		}

		markdown := formatEvent(event)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(markdown),
			},
		}, nil
	}
}

// handleListViews implements the list_views tool
func handleListViews(queryService *query.Service, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		views, err := queryService.ListViews(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("ListViews failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("List error: %v", err)),
				},
			}, nil
		}

		markdown := formatViews(views)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(markdown),
			},
		}, nil
	}
}
