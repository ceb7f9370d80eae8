package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/models"
	"github.com/ternarybob/opsbrain/internal/services/query"
)

// ViewHandler serves saved-view CRUD and view execution.
type ViewHandler struct {
	query  *query.Service
	logger arbor.ILogger
}

// NewViewHandler creates a new view handler.
func NewViewHandler(querySvc *query.Service, logger arbor.ILogger) *ViewHandler {
	return &ViewHandler{query: querySvc, logger: logger}
}

// CreateHandler handles POST /v1/views.
func (h *ViewHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	payload, ok := DecodeJSON(w, r)
	if !ok {
		return
	}

	name := stringField(payload, "name")
	if name == "" {
		WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	if raw, present := payload["description"]; present {
		if _, ok := raw.(string); !ok {
			WriteError(w, http.StatusBadRequest, "description must be a string")
			return
		}
	}
	queryObj, ok := payload["query"].(map[string]any)
	if !ok {
		WriteError(w, http.StatusBadRequest, "query must be an object")
		return
	}

	viewQuery, err := decodeViewQuery(queryObj)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	view := &models.View{
		Name:        name,
		Description: stringField(payload, "description"),
		Query:       viewQuery,
	}
	if err := h.query.CreateView(r.Context(), view); err != nil {
		WriteServiceError(w, err, "")
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// ListHandler handles GET /v1/views.
func (h *ViewHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.query.ListViews(r.Context())
	if err != nil {
		WriteServiceError(w, err, "")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

// GetHandler handles GET /v1/views/{name}.
func (h *ViewHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	name := PathName(r.URL.Path, "/v1/views/", "")
	view, err := h.query.GetView(r.Context(), name)
	if err != nil {
		WriteServiceError(w, err, "View not found")
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// DeleteHandler handles DELETE /v1/views/{name}.
func (h *ViewHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	name := PathName(r.URL.Path, "/v1/views/", "")
	if err := h.query.DeleteView(r.Context(), name); err != nil && !common.IsNotFound(err) {
		WriteServiceError(w, err, "")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// QueryHandler handles POST /v1/views/{name}:query. Request filters merge
// into the stored view; results are always summaries and never full-text
// searched.
func (h *ViewHandler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	name := PathName(r.URL.Path, "/v1/views/", ":query")
	payload, ok := DecodeJSON(w, r)
	if !ok {
		return
	}

	filters := &models.EventFilters{
		Limit:  models.DefaultQueryLimit,
		Format: models.FormatSummary,
	}
	if raw, present := payload["filters"]; present {
		obj, ok := raw.(map[string]any)
		if !ok {
			WriteError(w, http.StatusBadRequest, "filters must be an object")
			return
		}
		decodeRequestFilters(obj, filters)
	}
	if rawLimit, present := payload["limit"]; present {
		n, ok := rawLimit.(float64)
		if !ok {
			WriteError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		filters.Limit = int(n)
	}
	filters.Q = ""
	filters.Format = models.FormatSummary

	items, err := h.query.QueryView(r.Context(), name, filters)
	if err != nil {
		WriteServiceError(w, err, "View not found")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

// decodeViewQuery converts the create payload's query object into the typed
// stored form, tolerating string-or-list filter values.
func decodeViewQuery(obj map[string]any) (models.ViewQuery, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return models.ViewQuery{}, err
	}
	var vq models.ViewQuery
	if err := json.Unmarshal(raw, &vq); err != nil {
		return models.ViewQuery{}, err
	}
	return vq, nil
}

// decodeRequestFilters folds the :query request's filters object into the
// typed filter set. type and tag accept a string or list.
func decodeRequestFilters(obj map[string]any, filters *models.EventFilters) {
	filters.Types = stringOrList(obj["type"])
	filters.Tags = stringOrList(obj["tag"])
	filters.After = stringField(obj, "after")
	filters.Before = stringField(obj, "before")
	if order := stringField(obj, "order"); order != "" {
		filters.Order = order
	}
}

func stringOrList(raw any) []string {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
