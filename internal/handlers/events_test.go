package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(arbor.NewLogger())

	rec := doJSON(t, h.HealthHandler, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "0.2", body["version"])
	assert.Equal(t, "0.2", body["schema_version"])

	rec = doJSON(t, h.HealthHandler, http.MethodPost, "/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNotFoundHandler(t *testing.T) {
	h := NewHealthHandler(arbor.NewLogger())

	rec := doJSON(t, h.NotFoundHandler, http.MethodGet, "/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decodeBody(t, rec)["error"])
}

func TestBatchHandlerInsertsAndDedupes(t *testing.T) {
	f := setupHandlers(t)
	h := NewEventHandler(f.pipeline, f.query, f.logger)

	payload := map[string]any{"events": []any{rawDraft(0, "first"), rawDraft(1, "second")}}
	rec := doJSON(t, h.BatchHandler, http.MethodPost, "/v1/events:batch", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.EqualValues(t, 2, body["inserted"])
	assert.EqualValues(t, 2, body["new"])
	assert.EqualValues(t, 0, body["skipped"])
	assert.Len(t, body["ids"], 2)
	assert.Len(t, body["results"], 2)

	rec = doJSON(t, h.BatchHandler, http.MethodPost, "/v1/events:batch", payload)
	body = decodeBody(t, rec)
	assert.EqualValues(t, 0, body["new"])
	assert.EqualValues(t, 2, body["skipped"])
}

func TestBatchHandlerDedupeOff(t *testing.T) {
	f := setupHandlers(t)
	h := NewEventHandler(f.pipeline, f.query, f.logger)

	payload := map[string]any{
		"events":  []any{rawDraft(0, "dup")},
		"options": map[string]any{"dedupe": false},
	}
	for i := 0; i < 2; i++ {
		rec := doJSON(t, h.BatchHandler, http.MethodPost, "/v1/events:batch", payload)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 1, decodeBody(t, rec)["new"])
	}
}

func TestBatchHandlerBadRequests(t *testing.T) {
	f := setupHandlers(t)
	h := NewEventHandler(f.pipeline, f.query, f.logger)

	rec := doJSON(t, h.BatchHandler, http.MethodPost, "/v1/events:batch", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON", decodeBody(t, rec)["error"])

	rec = doJSON(t, h.BatchHandler, http.MethodPost, "/v1/events:batch", map[string]any{"events": "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "events must be a list", decodeBody(t, rec)["error"])

	rec = doJSON(t, h.BatchHandler, http.MethodPost, "/v1/events:batch", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "events must be a list", decodeBody(t, rec)["error"])
}

func TestBatchHandlerPartialFailure(t *testing.T) {
	f := setupHandlers(t)
	h := NewEventHandler(f.pipeline, f.query, f.logger)

	bad := rawDraft(0, "no ts")
	delete(bad, "ts")
	payload := map[string]any{"events": []any{rawDraft(1, "good"), bad}}

	rec := doJSON(t, h.BatchHandler, http.MethodPost, "/v1/events:batch", payload)
	require.Equal(t, http.StatusOK, rec.Code, "per-draft failures stay 200")

	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["new"])
	assert.EqualValues(t, 1, body["failed"])
	errs, ok := body["errors"].([]any)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "Missing ts", errs[0])
}

func TestEventListHandler(t *testing.T) {
	f := setupHandlers(t)
	h := NewEventHandler(f.pipeline, f.query, f.logger)
	f.ingest(t, rawDraft(0, "memobird 连接成功"), rawDraft(1, "打印测试"))

	rec := doJSON(t, h.ListHandler, http.MethodGet, "/v1/events?type=chat.message&tag=t2,memobird&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, items(t, rec), 2)

	// Summaries carry the snippet shape, not the full payload.
	first := items(t, rec)[0].(map[string]any)
	assert.Contains(t, first, "snippet")
	assert.NotContains(t, first, "payload")

	rec = doJSON(t, h.ListHandler, http.MethodGet, "/v1/events?tag=absent", nil)
	assert.Empty(t, items(t, rec))

	rec = doJSON(t, h.ListHandler, http.MethodGet, "/v1/events?limit=ten", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "limit must be an integer", decodeBody(t, rec)["error"])
}

func TestEventListHandlerFullFormat(t *testing.T) {
	f := setupHandlers(t)
	h := NewEventHandler(f.pipeline, f.query, f.logger)
	f.ingest(t, rawDraft(0, "full shape"))

	rec := doJSON(t, h.ListHandler, http.MethodGet, "/v1/events?format=full", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	first := items(t, rec)[0].(map[string]any)
	assert.Contains(t, first, "payload")
	assert.Contains(t, first, "hash")
}

func TestEventGetHandler(t *testing.T) {
	f := setupHandlers(t)
	h := NewEventHandler(f.pipeline, f.query, f.logger)
	ids := f.ingest(t, rawDraft(0, "lookup me"))

	rec := doJSON(t, h.GetHandler, http.MethodGet, "/v1/events/"+ids[0], nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, ids[0], body["id"])
	assert.Equal(t, "lookup me", body["text"])

	rec = doJSON(t, h.GetHandler, http.MethodGet, "/v1/events/01JMISSINGMISSINGMISSING00", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Event not found", decodeBody(t, rec)["error"])
}
