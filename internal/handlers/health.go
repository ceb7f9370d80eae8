// Package handlers translates the HTTP surface onto the pipeline, query, job
// and source services. Handlers validate request shapes and map service
// errors to statuses; all domain logic lives in the services.
package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/opsbrain/internal/common"
)

// HealthHandler serves the liveness probe the CLI uses to pick between HTTP
// and offline mode.
type HealthHandler struct {
	logger arbor.ILogger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(logger arbor.ILogger) *HealthHandler {
	return &HealthHandler{logger: logger}
}

// HealthHandler responds with the daemon and schema versions.
func (h *HealthHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"ok":             true,
		"version":        common.Version,
		"schema_version": common.SchemaVersion,
	})
}

// NotFoundHandler is the fallthrough for unmatched paths.
func (h *HealthHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "Not found")
}
