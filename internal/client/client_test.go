package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(payload))
}

func TestClientHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/health", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"ok":             true,
			"version":        "0.2",
			"schema_version": "0.2",
		})
	})

	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.OK)
	assert.Equal(t, "0.2", health.Version)

	assert.True(t, c.Available(context.Background()))
}

func TestClientAvailableWithoutDaemon(t *testing.T) {
	// Nothing listens on port 1.
	c := NewClient("http://127.0.0.1:1")
	assert.False(t, c.Available(context.Background()))

	_, err := c.Health(context.Background())
	require.Error(t, err)

	var oe *common.OpsError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, common.KindGeneric, oe.Kind)
}

func TestClientBatchEventsWire(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/events:batch", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload["events"], 1)
		options := payload["options"].(map[string]any)
		assert.Equal(t, false, options["dedupe"])

		writeJSON(t, w, http.StatusOK, map[string]any{
			"inserted": 1, "skipped": 0, "failed": 0,
			"results": []any{}, "new": 1, "errors": []any{},
			"ids": []string{"01ARZ"},
		})
	})

	result, err := c.BatchEvents(context.Background(), []map[string]any{{"type": "note"}}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.New)
	assert.Equal(t, []string{"01ARZ"}, result.IDs)
}

func TestClientSearchEventsParams(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "chat.message,note", q.Get("type"))
		assert.Equal(t, "memobird", q.Get("tag"))
		assert.Equal(t, "2026-01-01T00:00:00+09:00", q.Get("after"))
		assert.Equal(t, "7", q.Get("limit"))
		assert.Equal(t, "printer", q.Get("q"))

		writeJSON(t, w, http.StatusOK, map[string]any{"items": []map[string]any{
			{"id": "01ARZ", "ts": "2026-01-21T09:00:00+09:00", "type": "chat.message", "tags": []string{"memobird"}, "snippet": "买了"},
		}})
	})

	items, err := c.SearchEvents(context.Background(), &models.EventFilters{
		Q:     "printer",
		Types: []string{"chat.message", "note"},
		Tags:  []string{"memobird"},
		After: "2026-01-01T00:00:00+09:00",
		Limit: 7,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "01ARZ", items[0].ID)
	assert.Equal(t, "买了", items[0].Snippet)
}

func TestClientErrorKinds(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/events/missing":
			writeJSON(t, w, http.StatusNotFound, map[string]any{"error": "Event not found"})
		case "/v1/views":
			writeJSON(t, w, http.StatusBadRequest, map[string]any{"error": "name is required"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	_, err := c.GetEvent(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, common.IsNotFound(err))
	assert.Equal(t, "Event not found", err.Error())

	_, err = c.CreateView(context.Background(), &models.View{})
	require.Error(t, err)
	var oe *common.OpsError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, common.KindValidation, oe.Kind)
	assert.Equal(t, "name is required", err.Error())

	_, err = c.ListJobs(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestClientEscapesResourceNames(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/sources/my%20export:test", r.URL.EscapedPath())
		writeJSON(t, w, http.StatusOK, map[string]any{"ok": true, "details": map[string]any{"path": "/tmp/x", "size": 12}})
	})

	result, err := c.TestSource(context.Background(), "my export")
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.EqualValues(t, 12, result.Details["size"])
}

func TestClientRunJobSurfacesFailureResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/jobs/digest:run", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"run_id":  "01RUN",
			"status":  "failed",
			"outputs": map[string]any{},
			"error":   "digest config requires tag",
		})
	})

	run, err := c.RunJob(context.Background(), "digest")
	require.NoError(t, err, "failed runs are results, not errors")
	assert.Equal(t, "failed", run.Status)
	assert.Equal(t, "digest config requires tag", run.Error)
}
