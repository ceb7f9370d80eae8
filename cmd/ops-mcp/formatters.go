package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/opsbrain/internal/models"
)

// formatEventSummaries formats search results as markdown
func formatEventSummaries(query string, items []*models.EventSummary) string {
	var sb strings.Builder
	if query != "" {
		sb.WriteString(fmt.Sprintf("## Search Results for \"%s\" (%d events)\n\n", query, len(items)))
	} else {
		sb.WriteString(fmt.Sprintf("## Events (%d)\n\n", len(items)))
	}

	if len(items) == 0 {
		sb.WriteString("No events found.\n")
		return sb.String()
	}

	for i, item := range items {
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, item.ID))
		sb.WriteString(fmt.Sprintf("**Type:** %s\n", item.Type))
		sb.WriteString(fmt.Sprintf("**Time:** %s\n", item.TS))
		if len(item.Tags) > 0 {
			sb.WriteString(fmt.Sprintf("**Tags:** %s\n", strings.Join(item.Tags, ", ")))
		}
		sb.WriteString("\n")
		sb.WriteString(item.Snippet)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

// formatEvent formats a single event as markdown
func formatEvent(event *models.Event) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Event %s\n\n", event.ID))
	sb.WriteString(fmt.Sprintf("**Type:** %s\n", event.Type))
	sb.WriteString(fmt.Sprintf("**Time:** %s\n", event.TS))
	if len(event.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("**Tags:** %s\n", strings.Join(event.Tags, ", ")))
	}
	sb.WriteString(fmt.Sprintf("**Source:** %s (%s)\n\n", event.Source.Kind, event.Source.Locator))

	if event.Text != "" {
		sb.WriteString("## Text\n\n")
		sb.WriteString(event.Text)
		sb.WriteString("\n\n")
	}

	if len(event.Payload) > 0 {
		payloadJSON, _ := json.MarshalIndent(event.Payload, "", "  ")
		sb.WriteString("## Payload\n\n```json\n")
		sb.WriteString(string(payloadJSON))
		sb.WriteString("\n```\n\n")
	}

	if len(event.Refs) > 0 {
		sb.WriteString("## Refs\n\n")
		for _, ref := range event.Refs {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", ref.Kind, ref.URI))
		}
	}

	return sb.String()
}

// formatViews formats the saved views list as markdown
func formatViews(views []*models.View) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Saved Views (%d)\n\n", len(views)))

	if len(views) == 0 {
		sb.WriteString("No views defined.\n")
		return sb.String()
	}

	for i, view := range views {
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, view.Name))
		if view.Description != "" {
			sb.WriteString(view.Description)
			sb.WriteString("\n")
		}
		queryJSON, _ := json.MarshalIndent(view.Query, "", "  ")
		sb.WriteString("```json\n")
		sb.WriteString(string(queryJSON))
		sb.WriteString("\n```\n\n")
	}

	return sb.String()
}
