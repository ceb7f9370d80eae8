package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/opsbrain/internal/models"
)

func TestDailyDigestWritesMarkdownAndEmitsArtifact(t *testing.T) {
	f := setupJobs(t)
	ctx := context.Background()
	require.NoError(t, f.query.EnsureBuiltinViews(ctx))

	ingestChat(t, f, 0, "我想做 memobird CLI 打印", "t2", "memobird")
	ingestChat(t, f, 1, "先查官方 API", "t2", "memobird")
	ingestChat(t, f, 2, "然后写 demo", "t2")

	createJob(t, f, "daily", models.JobKindDailyDigest, map[string]any{
		"view":    "timeline",
		"day":     "2026-01-21",
		"out_dir": "artifacts",
	})

	run, err := f.svc.Run(ctx, "daily")
	require.NoError(t, err)
	require.Equal(t, models.RunStatusOK, run.Status, "digest failed: %v", run.Error)

	digestPath := filepath.Join(f.paths.Workspace, "artifacts", "daily_digest.md")
	assert.Equal(t, []string{digestPath}, run.Output["artifact_paths"])

	data, err := os.ReadFile(digestPath)
	require.NoError(t, err)
	markdown := string(data)

	assert.True(t, strings.HasPrefix(markdown, "# Daily Digest 2026-01-21\n"))
	assert.Contains(t, markdown, "## Counts by type\n- chat.message: 3\n")
	assert.Contains(t, markdown, "## Top tags\n- t2: 3\n- memobird: 2\n")
	assert.Contains(t, markdown, "## Sample snippets\n")
	assert.Contains(t, markdown, "- 我想做 memobird CLI 打印")
	assert.True(t, strings.HasSuffix(markdown, "\n"))

	artifacts, err := f.query.ListArtifacts(ctx, &models.EventFilters{})
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, digestPath, artifacts[0].Path)
	assert.Equal(t, "markdown", artifacts[0].Kind)

	events, err := f.query.Events(ctx, &models.EventFilters{Types: []string{models.EventTypeArtifactCreated}})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, []string{"digest"}, events[0].Tags)
	assert.Equal(t, digestPath, events[0].Payload["path"])
	assert.Equal(t, "daily", events[0].Payload["job"])
	assert.Equal(t, "file:"+digestPath, events[0].Refs[0].URI)
}

func TestDailyDigestMergesConfigTags(t *testing.T) {
	f := setupJobs(t)
	ctx := context.Background()
	require.NoError(t, f.query.EnsureBuiltinViews(ctx))

	ingestChat(t, f, 0, "tagged run")

	createJob(t, f, "daily", models.JobKindDailyDigest, map[string]any{
		"view":    "timeline",
		"day":     "2026-01-21",
		"out_dir": "artifacts",
		"tags":    []any{"memobird", "digest"},
	})

	run, err := f.svc.Run(ctx, "daily")
	require.NoError(t, err)
	require.Equal(t, models.RunStatusOK, run.Status)

	events, err := f.query.Events(ctx, &models.EventFilters{Types: []string{models.EventTypeArtifactCreated}})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, []string{"digest", "memobird"}, events[0].Tags, "digest leads, duplicates collapse")
}

func TestDailyDigestValidation(t *testing.T) {
	f := setupJobs(t)
	ctx := context.Background()
	require.NoError(t, f.query.EnsureBuiltinViews(ctx))

	cases := []struct {
		name   string
		config map[string]any
		errMsg string
	}{
		{
			name:   "missing out_dir",
			config: map[string]any{"view": "timeline", "day": "2026-01-21"},
			errMsg: "daily_digest requires view, day, and out_dir",
		},
		{
			name:   "bad day",
			config: map[string]any{"view": "timeline", "day": "Jan 21", "out_dir": "artifacts"},
			errMsg: "invalid day",
		},
		{
			name:   "unknown view",
			config: map[string]any{"view": "nope", "day": "2026-01-21", "out_dir": "artifacts"},
			errMsg: "view not found: nope",
		},
	}

	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			jobName := fmt.Sprintf("digest-%d", i)
			createJob(t, f, jobName, models.JobKindDailyDigest, tc.config)

			run, err := f.svc.Run(ctx, jobName)
			require.NoError(t, err)
			assert.Equal(t, models.RunStatusFailed, run.Status)
			require.NotNil(t, run.Error)
			assert.Contains(t, *run.Error, tc.errMsg)
		})
	}
}

func TestDailyDigestWithPDF(t *testing.T) {
	f := setupJobs(t)
	ctx := context.Background()
	require.NoError(t, f.query.EnsureBuiltinViews(ctx))

	ingestChat(t, f, 0, "pdf run")

	createJob(t, f, "daily", models.JobKindDailyDigest, map[string]any{
		"view":    "timeline",
		"day":     "2026-01-21",
		"out_dir": "artifacts",
		"pdf":     true,
	})

	run, err := f.svc.Run(ctx, "daily")
	require.NoError(t, err)
	require.Equal(t, models.RunStatusOK, run.Status, "digest failed: %v", run.Error)

	mdPath := filepath.Join(f.paths.Workspace, "artifacts", "daily_digest.md")
	pdfPath := filepath.Join(f.paths.Workspace, "artifacts", "daily_digest.pdf")
	assert.Equal(t, []string{mdPath, pdfPath}, run.Output["artifact_paths"])

	data, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(data[:5]))

	events, err := f.query.Events(ctx, &models.EventFilters{Types: []string{models.EventTypeArtifactCreated}})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Len(t, events[0].Refs, 2)
	assert.Equal(t, "file:"+pdfPath, events[0].Refs[1].URI)
	assert.Equal(t, mdPath, events[0].Payload["path"], "payload path stays on the markdown")
}

func TestDigestMarkdownLayout(t *testing.T) {
	summaries := []*models.EventSummary{
		{Type: "chat.message", Tags: []string{"t2"}, Snippet: "one"},
		{Type: "chat.message", Tags: []string{"t2"}, Snippet: "two"},
		{Type: "note", Tags: nil, Snippet: ""},
	}

	expected := strings.Join([]string{
		"# Daily Digest 2026-01-21",
		"",
		"## Counts by type",
		"- chat.message: 2",
		"- note: 1",
		"",
		"## Top tags",
		"- t2: 2",
		"",
		"## Sample snippets",
		"- one",
		"- two",
	}, "\n") + "\n"

	assert.Equal(t, expected, digestMarkdown("2026-01-21", summaries))
}

func TestDigestMarkdownCapsAndTies(t *testing.T) {
	var summaries []*models.EventSummary
	// 12 tags with a single hit each and 12 snippets; equal counts keep
	// first-seen order, so tag00..tag09 survive the top-10 cut.
	for i := 0; i < 12; i++ {
		summaries = append(summaries, &models.EventSummary{
			Type:    "note",
			Tags:    []string{fmt.Sprintf("tag%02d", i)},
			Snippet: fmt.Sprintf("snippet %d", i),
		})
	}

	markdown := digestMarkdown("2026-01-21", summaries)

	assert.Contains(t, markdown, "- tag00: 1")
	assert.Contains(t, markdown, "- tag09: 1")
	assert.NotContains(t, markdown, "- tag10: 1")
	assert.Contains(t, markdown, "- snippet 9")
	assert.NotContains(t, markdown, "- snippet 10")

	// Higher counts outrank earlier first appearance.
	boosted := append(summaries,
		&models.EventSummary{Type: "note", Tags: []string{"tag11"}, Snippet: ""},
		&models.EventSummary{Type: "chat.message", Tags: []string{"tag11"}, Snippet: ""},
	)
	markdown = digestMarkdown("2026-01-21", boosted)
	lines := strings.Split(markdown, "\n")
	for i, line := range lines {
		if line == "## Top tags" {
			assert.Equal(t, "- tag11: 3", lines[i+1])
			break
		}
	}
}

func TestDigestNarrowsToDayWindow(t *testing.T) {
	f := setupJobs(t)
	ctx := context.Background()
	require.NoError(t, f.query.EnsureBuiltinViews(ctx))

	ingestChat(t, f, 0, "inside the day")
	// Same content family, a day later.
	draft := &models.Draft{
		SchemaVersion: "0.2",
		TS:            "2026-01-22T09:00:00+09:00",
		Type:          models.EventTypeChatMessage,
		Tags:          []string{"t2"},
		Text:          "next day",
		Payload:       map[string]any{"speaker": "user", "content": "next day"},
		Source:        models.SourceInfo{Kind: "chat_json_file", Locator: "/tmp/export.json", Meta: map[string]any{}},
		Refs:          []models.Ref{{Kind: "file", URI: "file:/tmp/export.json", Span: map[string]any{"idx": 99}}},
	}
	batch := f.pipeline.Ingest(ctx, []*models.Draft{draft}, pipeline.IngestOptions{Dedupe: true})
	require.Equal(t, 1, batch.New)

	createJob(t, f, "daily", models.JobKindDailyDigest, map[string]any{
		"view":    "timeline",
		"day":     "2026-01-21",
		"out_dir": "artifacts",
	})

	run, err := f.svc.Run(ctx, "daily")
	require.NoError(t, err)
	require.Equal(t, models.RunStatusOK, run.Status)

	data, err := os.ReadFile(filepath.Join(f.paths.Workspace, "artifacts", "daily_digest.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "- chat.message: 1")
	assert.NotContains(t, string(data), "next day")
}
