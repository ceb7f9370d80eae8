package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/opsbrain/internal/canonical"
	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/interfaces"
	"github.com/ternarybob/opsbrain/internal/services/jobs"
	"github.com/ternarybob/opsbrain/internal/services/pipeline"
	"github.com/ternarybob/opsbrain/internal/services/query"
	"github.com/ternarybob/opsbrain/internal/services/sources"
	"github.com/ternarybob/opsbrain/internal/storage/sqlite"
)

// handlerFixture wires the full service stack against a temp workspace so
// handler tests exercise real storage semantics.
type handlerFixture struct {
	cfg      *common.Config
	paths    common.Paths
	storage  interfaces.StorageManager
	pipeline *pipeline.Service
	query    *query.Service
	sources  *sources.Service
	jobs     *jobs.Service
	logger   arbor.ILogger
}

func setupHandlers(t *testing.T) *handlerFixture {
	t.Helper()

	cfg := common.NewDefaultConfig()
	cfg.Workspace = t.TempDir()
	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureWorkspace())

	logger := arbor.NewLogger()
	storage, err := sqlite.NewManager(logger, paths.IndexDB)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	log := canonical.NewLog(paths.CanonicalLog)
	pipelineSvc := pipeline.NewService(log, storage, cfg, paths, logger)
	querySvc := query.NewService(storage, cfg, logger)

	return &handlerFixture{
		cfg:      cfg,
		paths:    paths,
		storage:  storage,
		pipeline: pipelineSvc,
		query:    querySvc,
		sources:  sources.NewService(storage, pipelineSvc, cfg, logger),
		jobs:     jobs.NewService(storage, querySvc, pipelineSvc, cfg, paths, logger),
		logger:   logger,
	}
}

// ingest pushes raw drafts through the pipeline and returns the inserted ids.
func (f *handlerFixture) ingest(t *testing.T, drafts ...map[string]any) []string {
	t.Helper()
	raw := make([]any, 0, len(drafts))
	for _, d := range drafts {
		raw = append(raw, d)
	}
	batch := f.pipeline.IngestRaw(context.Background(), raw, pipeline.IngestOptions{Dedupe: true})
	require.Equal(t, len(drafts), batch.New, "ingest errors: %v", batch.Errors)
	return batch.IDs
}

// rawDraft builds a chat draft the way the batch endpoint receives one.
func rawDraft(idx int, content string) map[string]any {
	return map[string]any{
		"schema_version": "0.2",
		"ts":             "2026-02-11T09:00:00+09:00",
		"type":           "chat.message",
		"source":         map[string]any{"kind": "chat_json_file", "locator": "/tmp/export.json"},
		"refs": []any{map[string]any{
			"kind": "file",
			"uri":  "file:/tmp/export.json",
			"span": map[string]any{"idx": idx},
		}},
		"tags":    []any{"t2", "memobird"},
		"text":    content,
		"payload": map[string]any{"speaker": "me", "content": content},
	}
}

// doJSON drives a handler func directly. A string body passes through
// verbatim so tests can send malformed JSON.
func doJSON(t *testing.T, handler func(http.ResponseWriter, *http.Request), method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(v)
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), "body: %s", rec.Body.String())
	return payload
}

// items pulls the items array out of a list response.
func items(t *testing.T, rec *httptest.ResponseRecorder) []any {
	t.Helper()
	body := decodeBody(t, rec)
	list, ok := body["items"].([]any)
	require.True(t, ok, "items missing: %s", rec.Body.String())
	return list
}
