package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewCreateHandlerValidation(t *testing.T) {
	f := setupHandlers(t)
	h := NewViewHandler(f.query, f.logger)

	tests := []struct {
		name    string
		payload map[string]any
		wantErr string
	}{
		{"missing name", map[string]any{"query": map[string]any{}}, "name is required"},
		{"description not string", map[string]any{"name": "v", "description": 7, "query": map[string]any{}}, "description must be a string"},
		{"query not object", map[string]any{"name": "v", "query": "x"}, "query must be an object"},
		{"query missing", map[string]any{"name": "v"}, "query must be an object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h.CreateHandler, http.MethodPost, "/v1/views", tt.payload)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantErr, decodeBody(t, rec)["error"])
		})
	}
}

func TestViewCreateHandlerEchoesView(t *testing.T) {
	f := setupHandlers(t)
	h := NewViewHandler(f.query, f.logger)

	payload := map[string]any{
		"name":        "chats",
		"description": "chat messages",
		"query":       map[string]any{"type": "chat.message", "tag": []any{"t2"}},
	}
	rec := doJSON(t, h.CreateHandler, http.MethodPost, "/v1/views", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "chats", body["name"])
	assert.Equal(t, "chat messages", body["description"])

	rec = doJSON(t, h.GetHandler, http.MethodGet, "/v1/views/chats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h.GetHandler, http.MethodGet, "/v1/views/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "View not found", decodeBody(t, rec)["error"])
}

func TestViewDeleteHandlerIdempotent(t *testing.T) {
	f := setupHandlers(t)
	h := NewViewHandler(f.query, f.logger)

	doJSON(t, h.CreateHandler, http.MethodPost, "/v1/views", map[string]any{
		"name":  "gone",
		"query": map[string]any{},
	})

	for i := 0; i < 2; i++ {
		rec := doJSON(t, h.DeleteHandler, http.MethodDelete, "/v1/views/gone", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decodeBody(t, rec)["ok"])
	}
}

func TestViewQueryHandler(t *testing.T) {
	f := setupHandlers(t)
	h := NewViewHandler(f.query, f.logger)
	f.ingest(t, rawDraft(0, "memobird arrived"), rawDraft(1, "printer configured"))

	doJSON(t, h.CreateHandler, http.MethodPost, "/v1/views", map[string]any{
		"name":  "chats",
		"query": map[string]any{"type": "chat.message"},
	})

	rec := doJSON(t, h.QueryHandler, http.MethodPost, "/v1/views/chats:query", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	list := items(t, rec)
	require.Len(t, list, 2)

	// View execution always answers summaries.
	first := list[0].(map[string]any)
	assert.Contains(t, first, "snippet")
	assert.NotContains(t, first, "payload")

	rec = doJSON(t, h.QueryHandler, http.MethodPost, "/v1/views/chats:query", map[string]any{"limit": 1})
	assert.Len(t, items(t, rec), 1)

	rec = doJSON(t, h.QueryHandler, http.MethodPost, "/v1/views/chats:query", map[string]any{
		"filters": map[string]any{"tag": "absent"},
	})
	assert.Empty(t, items(t, rec))

	rec = doJSON(t, h.QueryHandler, http.MethodPost, "/v1/views/nope:query", map[string]any{})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "View not found", decodeBody(t, rec)["error"])
}

func TestViewQueryHandlerBadRequests(t *testing.T) {
	f := setupHandlers(t)
	h := NewViewHandler(f.query, f.logger)

	doJSON(t, h.CreateHandler, http.MethodPost, "/v1/views", map[string]any{
		"name":  "chats",
		"query": map[string]any{"type": "chat.message"},
	})

	rec := doJSON(t, h.QueryHandler, http.MethodPost, "/v1/views/chats:query", map[string]any{"limit": "ten"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "limit must be an integer", decodeBody(t, rec)["error"])

	rec = doJSON(t, h.QueryHandler, http.MethodPost, "/v1/views/chats:query", map[string]any{"filters": "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "filters must be an object", decodeBody(t, rec)["error"])
}
