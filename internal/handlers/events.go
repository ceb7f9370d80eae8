package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/opsbrain/internal/models"
	"github.com/ternarybob/opsbrain/internal/services/pipeline"
	"github.com/ternarybob/opsbrain/internal/services/query"
)

// EventHandler serves batch ingest and event reads.
type EventHandler struct {
	pipeline *pipeline.Service
	query    *query.Service
	logger   arbor.ILogger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(pipelineSvc *pipeline.Service, querySvc *query.Service, logger arbor.ILogger) *EventHandler {
	return &EventHandler{
		pipeline: pipelineSvc,
		query:    querySvc,
		logger:   logger,
	}
}

// BatchHandler handles POST /v1/events:batch. Per-draft failures land in the
// results array; the response is 200 even when every draft failed.
func (h *EventHandler) BatchHandler(w http.ResponseWriter, r *http.Request) {
	payload, ok := DecodeJSON(w, r)
	if !ok {
		return
	}

	events, ok := payload["events"].([]any)
	if !ok {
		WriteError(w, http.StatusBadRequest, "events must be a list")
		return
	}

	dedupe := true
	if options, ok := objectField(payload, "options"); ok && options != nil {
		dedupe = boolField(options, "dedupe", true)
	}

	result := h.pipeline.IngestRaw(r.Context(), events, pipeline.IngestOptions{Dedupe: dedupe})
	h.logger.Debug().
		Int("inserted", result.Inserted).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Batch ingest handled")
	WriteJSON(w, http.StatusOK, result)
}

// ListHandler handles GET /v1/events. type and tag accept repeated or
// comma-separated values.
func (h *EventHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	filters, ok := filtersFromQuery(w, r)
	if !ok {
		return
	}

	items, err := h.query.Search(r.Context(), filters)
	if err != nil {
		WriteServiceError(w, err, "")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

// GetHandler handles GET /v1/events/{id}.
func (h *EventHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	id := PathName(r.URL.Path, "/v1/events/", "")
	event, err := h.query.GetEvent(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err, "Event not found")
		return
	}
	WriteJSON(w, http.StatusOK, event)
}

// filtersFromQuery builds event filters from URL query parameters. A
// malformed limit is the caller's error.
func filtersFromQuery(w http.ResponseWriter, r *http.Request) (*models.EventFilters, bool) {
	values := r.URL.Query()
	limit, ok := IntParam(values, "limit", 0)
	if !ok {
		WriteError(w, http.StatusBadRequest, "limit must be an integer")
		return nil, false
	}
	return &models.EventFilters{
		Q:      values.Get("q"),
		Types:  CSVParam(values["type"]),
		Tags:   CSVParam(values["tag"]),
		After:  values.Get("after"),
		Before: values.Get("before"),
		Limit:  limit,
		Format: values.Get("format"),
		Order:  values.Get("order"),
	}, true
}
