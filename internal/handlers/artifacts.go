package handlers

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"

	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/services/jobs"
	"github.com/ternarybob/opsbrain/internal/services/query"
)

// ArtifactHandler serves artifact listing, packing and markdown preview.
type ArtifactHandler struct {
	query  *query.Service
	jobs   *jobs.Service
	config *common.Config
	logger arbor.ILogger
}

// NewArtifactHandler creates a new artifact handler.
func NewArtifactHandler(querySvc *query.Service, jobsSvc *jobs.Service, config *common.Config, logger arbor.ILogger) *ArtifactHandler {
	return &ArtifactHandler{query: querySvc, jobs: jobsSvc, config: config, logger: logger}
}

// ListHandler handles GET /v1/artifacts. Type and format are forced by the
// artifact projection; tag and time filters apply.
func (h *ArtifactHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	filters, ok := filtersFromQuery(w, r)
	if !ok {
		return
	}
	items, err := h.query.ListArtifacts(r.Context(), filters)
	if err != nil {
		WriteServiceError(w, err, "")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

// PackHandler handles POST /v1/artifacts:pack.
func (h *ArtifactHandler) PackHandler(w http.ResponseWriter, r *http.Request) {
	payload, ok := DecodeJSON(w, r)
	if !ok {
		return
	}

	tag := stringField(payload, "tag")
	if tag == "" {
		WriteError(w, http.StatusBadRequest, "tag is required")
		return
	}
	outDir := stringField(payload, "out_dir")
	if outDir == "" {
		WriteError(w, http.StatusBadRequest, "out_dir is required")
		return
	}

	result, err := h.jobs.RunArtifactPack(r.Context(), tag, outDir)
	if err != nil {
		WriteServiceError(w, err, "")
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// PreviewHandler handles GET /v1/artifacts:preview?path=. Relative paths
// resolve under the workspace; only markdown artifacts render.
func (h *ArtifactHandler) PreviewHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "path is required")
		return
	}

	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(h.config.Workspace, resolved)
	}
	resolved = filepath.Clean(resolved)
	if !filepath.IsAbs(path) && !strings.HasPrefix(resolved, filepath.Clean(h.config.Workspace)+string(os.PathSeparator)) {
		WriteError(w, http.StatusBadRequest, "path escapes workspace")
		return
	}
	if strings.ToLower(filepath.Ext(resolved)) != ".md" {
		WriteError(w, http.StatusBadRequest, "only markdown artifacts can be previewed")
		return
	}

	source, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			WriteError(w, http.StatusNotFound, "Artifact not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(ghtml.WithHardWraps(), ghtml.WithXHTML()),
	)
	var buf bytes.Buffer
	if err := md.Convert(source, &buf); err != nil {
		h.logger.Warn().Err(err).Str("path", resolved).Msg("Markdown render failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
