package handlers

import (
	"context"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/models"
	"github.com/ternarybob/opsbrain/internal/services/jobs"
)

// ScheduleReloader re-syncs cron registrations after job CRUD. Nil when the
// daemon runs without a scheduler (tests).
type ScheduleReloader interface {
	Reload(ctx context.Context) error
}

// JobHandler serves job CRUD, manual runs and run history.
type JobHandler struct {
	jobs      *jobs.Service
	scheduler ScheduleReloader
	logger    arbor.ILogger
}

// NewJobHandler creates a new job handler.
func NewJobHandler(jobsSvc *jobs.Service, scheduler ScheduleReloader, logger arbor.ILogger) *JobHandler {
	return &JobHandler{jobs: jobsSvc, scheduler: scheduler, logger: logger}
}

// CreateHandler handles POST /v1/jobs.
func (h *JobHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	payload, ok := DecodeJSON(w, r)
	if !ok {
		return
	}

	name := stringField(payload, "name")
	if name == "" {
		WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	kind := stringField(payload, "kind")
	if kind == "" {
		WriteError(w, http.StatusBadRequest, "kind is required")
		return
	}
	config, ok := objectField(payload, "config")
	if !ok {
		WriteError(w, http.StatusBadRequest, "config must be an object")
		return
	}

	job := &models.Job{
		Name:    name,
		Kind:    kind,
		Config:  config,
		Enabled: boolField(payload, "enabled", true),
	}
	if err := h.jobs.CreateJob(r.Context(), job); err != nil {
		WriteServiceError(w, err, "")
		return
	}
	h.reloadSchedules(r.Context())
	WriteJSON(w, http.StatusOK, job)
}

// ListHandler handles GET /v1/jobs.
func (h *JobHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.jobs.ListJobs(r.Context())
	if err != nil {
		WriteServiceError(w, err, "")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

// GetHandler handles GET /v1/jobs/{name}.
func (h *JobHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	name := PathName(r.URL.Path, "/v1/jobs/", "")
	job, err := h.jobs.GetJob(r.Context(), name)
	if err != nil {
		WriteServiceError(w, err, "Job not found")
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// DeleteHandler handles DELETE /v1/jobs/{name}.
func (h *JobHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	name := PathName(r.URL.Path, "/v1/jobs/", "")
	if err := h.jobs.DeleteJob(r.Context(), name); err != nil && !common.IsNotFound(err) {
		WriteServiceError(w, err, "")
		return
	}
	h.reloadSchedules(r.Context())
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// RunHandler handles POST /v1/jobs/{name}:run. Execution failures come back
// as a 200 with status failed; the run row already records them.
func (h *JobHandler) RunHandler(w http.ResponseWriter, r *http.Request) {
	name := PathName(r.URL.Path, "/v1/jobs/", ":run")
	run, err := h.jobs.Run(r.Context(), name)
	if err != nil {
		WriteServiceError(w, err, "Job not found")
		return
	}

	response := map[string]any{
		"run_id":  run.ID,
		"status":  run.Status,
		"outputs": run.Output,
	}
	if run.Status != models.RunStatusOK && run.Error != nil {
		response["error"] = *run.Error
	}
	WriteJSON(w, http.StatusOK, response)
}

// RunsHandler handles GET /v1/jobs/{name}/runs.
func (h *JobHandler) RunsHandler(w http.ResponseWriter, r *http.Request) {
	name := PathName(r.URL.Path, "/v1/jobs/", "/runs")
	limit, ok := IntParam(r.URL.Query(), "limit", 0)
	if !ok {
		WriteError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}

	runs, err := h.jobs.ListRuns(r.Context(), name, limit)
	if err != nil {
		WriteServiceError(w, err, "Job not found")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": runs})
}

func (h *JobHandler) reloadSchedules(ctx context.Context) {
	if h.scheduler == nil {
		return
	}
	if err := h.scheduler.Reload(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("Schedule reload failed")
	}
}
