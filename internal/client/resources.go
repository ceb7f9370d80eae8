package client

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/ternarybob/opsbrain/internal/models"
)

// BatchEvents posts drafts to /v1/events:batch. Per-draft failures come back
// inside the result, not as an error.
func (c *Client) BatchEvents(ctx context.Context, events []map[string]any, dedupe bool) (*models.BatchResult, error) {
	payload := map[string]any{
		"events":  events,
		"options": map[string]any{"dedupe": dedupe},
	}
	var result models.BatchResult
	if err := c.post(ctx, "/v1/events:batch", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SearchEvents queries /v1/events and returns summary rows.
func (c *Client) SearchEvents(ctx context.Context, filters *models.EventFilters) ([]*models.EventSummary, error) {
	params := url.Values{}
	if filters.Q != "" {
		params.Set("q", filters.Q)
	}
	if len(filters.Types) > 0 {
		params.Set("type", strings.Join(filters.Types, ","))
	}
	if len(filters.Tags) > 0 {
		params.Set("tag", strings.Join(filters.Tags, ","))
	}
	if filters.After != "" {
		params.Set("after", filters.After)
	}
	if filters.Before != "" {
		params.Set("before", filters.Before)
	}
	if filters.Limit > 0 {
		params.Set("limit", strconv.Itoa(filters.Limit))
	}
	if filters.Order != "" {
		params.Set("order", filters.Order)
	}

	var result struct {
		Items []*models.EventSummary `json:"items"`
	}
	if err := c.get(ctx, "/v1/events", params, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// GetEvent fetches one event with its full payload.
func (c *Client) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var result models.Event
	if err := c.get(ctx, "/v1/events/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateSource registers a source and returns the stored record.
func (c *Client) CreateSource(ctx context.Context, source *models.Source) (*models.Source, error) {
	var result models.Source
	if err := c.post(ctx, "/v1/sources", source, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListSources lists registered sources.
func (c *Client) ListSources(ctx context.Context) ([]*models.Source, error) {
	var result struct {
		Items []*models.Source `json:"items"`
	}
	if err := c.get(ctx, "/v1/sources", nil, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// GetSource fetches one source by name.
func (c *Client) GetSource(ctx context.Context, name string) (*models.Source, error) {
	var result models.Source
	if err := c.get(ctx, "/v1/sources/"+url.PathEscape(name), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteSource removes a source. Deleting an absent name is not an error.
func (c *Client) DeleteSource(ctx context.Context, name string) error {
	return c.del(ctx, "/v1/sources/"+url.PathEscape(name), nil)
}

// TestSource checks a source's configured path.
func (c *Client) TestSource(ctx context.Context, name string) (*SourceTestResult, error) {
	var result SourceTestResult
	if err := c.post(ctx, "/v1/sources/"+url.PathEscape(name)+":test", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RunIngest triggers an ingest for a registered source.
func (c *Client) RunIngest(ctx context.Context, name string, tags []string, dryRun bool) (*IngestRunResult, error) {
	payload := map[string]any{}
	if len(tags) > 0 {
		payload["tags"] = tags
	}
	if dryRun {
		payload["dry_run"] = true
	}

	var result IngestRunResult
	if err := c.post(ctx, "/v1/ingests/"+url.PathEscape(name)+":run", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateView saves a view and returns the stored record.
func (c *Client) CreateView(ctx context.Context, view *models.View) (*models.View, error) {
	var result models.View
	if err := c.post(ctx, "/v1/views", view, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListViews lists saved views.
func (c *Client) ListViews(ctx context.Context) ([]*models.View, error) {
	var result struct {
		Items []*models.View `json:"items"`
	}
	if err := c.get(ctx, "/v1/views", nil, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// GetView fetches one saved view by name.
func (c *Client) GetView(ctx context.Context, name string) (*models.View, error) {
	var result models.View
	if err := c.get(ctx, "/v1/views/"+url.PathEscape(name), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteView removes a saved view. Deleting an absent name is not an error.
func (c *Client) DeleteView(ctx context.Context, name string) error {
	return c.del(ctx, "/v1/views/"+url.PathEscape(name), nil)
}

// QueryView executes a saved view with request-time filters merged in.
func (c *Client) QueryView(ctx context.Context, name string, filters map[string]any, limit int) ([]*models.EventSummary, error) {
	payload := map[string]any{}
	if len(filters) > 0 {
		payload["filters"] = filters
	}
	if limit > 0 {
		payload["limit"] = limit
	}

	var result struct {
		Items []*models.EventSummary `json:"items"`
	}
	if err := c.post(ctx, "/v1/views/"+url.PathEscape(name)+":query", payload, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// CreateJob registers a job and returns the stored record.
func (c *Client) CreateJob(ctx context.Context, job *models.Job) (*models.Job, error) {
	var result models.Job
	if err := c.post(ctx, "/v1/jobs", job, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListJobs lists registered jobs.
func (c *Client) ListJobs(ctx context.Context) ([]*models.Job, error) {
	var result struct {
		Items []*models.Job `json:"items"`
	}
	if err := c.get(ctx, "/v1/jobs", nil, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// GetJob fetches one job by name.
func (c *Client) GetJob(ctx context.Context, name string) (*models.Job, error) {
	var result models.Job
	if err := c.get(ctx, "/v1/jobs/"+url.PathEscape(name), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteJob removes a job. Deleting an absent name is not an error.
func (c *Client) DeleteJob(ctx context.Context, name string) error {
	return c.del(ctx, "/v1/jobs/"+url.PathEscape(name), nil)
}

// RunJob executes a job now. A failed run still returns a result; check
// Status and Error on it.
func (c *Client) RunJob(ctx context.Context, name string) (*JobRunResult, error) {
	var result JobRunResult
	if err := c.post(ctx, "/v1/jobs/"+url.PathEscape(name)+":run", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// JobRuns lists recent runs for a job, newest first.
func (c *Client) JobRuns(ctx context.Context, name string, limit int) ([]*models.JobRun, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var result struct {
		Items []*models.JobRun `json:"items"`
	}
	if err := c.get(ctx, "/v1/jobs/"+url.PathEscape(name)+"/runs", params, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// ListArtifacts lists artifact records derived from artifact.created events.
func (c *Client) ListArtifacts(ctx context.Context, tag string, limit int) ([]*models.Artifact, error) {
	params := url.Values{}
	if tag != "" {
		params.Set("tag", tag)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var result struct {
		Items []*models.Artifact `json:"items"`
	}
	if err := c.get(ctx, "/v1/artifacts", params, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// PackArtifacts bundles tagged events and their file refs into a pack
// directory under the workspace.
func (c *Client) PackArtifacts(ctx context.Context, tag, outDir string) (*models.PackResult, error) {
	payload := map[string]any{
		"tag":     tag,
		"out_dir": outDir,
	}
	var result models.PackResult
	if err := c.post(ctx, "/v1/artifacts:pack", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
