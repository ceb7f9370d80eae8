package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.StreamHandler.HandleWebSocket)

	// Health probe (the CLI hits this to decide HTTP vs offline mode)
	mux.HandleFunc("/health", s.app.HealthHandler.HealthHandler)

	// API routes - events
	mux.HandleFunc("/v1/events:batch", s.handleEventBatchRoute)
	mux.HandleFunc("/v1/events", s.handleEventsRoute)
	mux.HandleFunc("/v1/events/", s.handleEventRoutes) // GET /{id}

	// API routes - sources and ingest runs
	mux.HandleFunc("/v1/sources", s.handleSourcesRoute)   // GET (list), POST (create)
	mux.HandleFunc("/v1/sources/", s.handleSourceRoutes)  // GET/DELETE /{name}, POST /{name}:test
	mux.HandleFunc("/v1/ingests/", s.handleIngestRoutes)  // POST /{name}:run

	// API routes - views
	mux.HandleFunc("/v1/views", s.handleViewsRoute)  // GET (list), POST (create)
	mux.HandleFunc("/v1/views/", s.handleViewRoutes) // GET/DELETE /{name}, POST /{name}:query

	// API routes - jobs
	mux.HandleFunc("/v1/jobs", s.handleJobsRoute)  // GET (list), POST (create)
	mux.HandleFunc("/v1/jobs/", s.handleJobRoutes) // GET/DELETE /{name}, POST /{name}:run, GET /{name}/runs

	// API routes - artifacts
	mux.HandleFunc("/v1/artifacts", s.handleArtifactsRoute)
	mux.HandleFunc("/v1/artifacts:pack", s.handleArtifactPackRoute)
	mux.HandleFunc("/v1/artifacts:preview", s.handleArtifactPreviewRoute)

	// 404 handler for unmatched routes
	mux.HandleFunc("/", s.app.HealthHandler.NotFoundHandler)

	return mux
}

// locked serializes a mutating handler on the app write mutex. Batch appends,
// registry CRUD, ingest and job runs, source tests, and artifact packs all
// pass through here; plain reads and view queries never take the lock.
func (s *Server) locked(handler RouteHandler) RouteHandler {
	return func(w http.ResponseWriter, r *http.Request) {
		s.app.WriteMu.Lock()
		defer s.app.WriteMu.Unlock()
		handler(w, r)
	}
}

func (s *Server) handleEventBatchRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"POST": s.locked(s.app.EventHandler.BatchHandler),
	})
}

func (s *Server) handleEventsRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"GET": s.app.EventHandler.ListHandler,
	})
}

func (s *Server) handleEventRoutes(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"GET": s.app.EventHandler.GetHandler,
	})
}

// handleSourcesRoute routes /v1/sources requests (list and create)
func (s *Server) handleSourcesRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.app.SourceHandler.ListHandler, s.locked(s.app.SourceHandler.CreateHandler))
}

// handleSourceRoutes routes /v1/sources/{name} requests, including the
// connectivity probe at /v1/sources/{name}:test
func (s *Server) handleSourceRoutes(w http.ResponseWriter, r *http.Request) {
	// POST /v1/sources/{name}:test
	if r.Method == "POST" && strings.HasSuffix(r.URL.Path, ":test") {
		s.locked(s.app.SourceHandler.TestHandler)(w, r)
		return
	}

	RouteResourceItem(w, r, s.app.SourceHandler.GetHandler, nil, s.locked(s.app.SourceHandler.DeleteHandler))
}

// handleIngestRoutes routes /v1/ingests/{name}:run. Nothing else lives under
// this prefix.
func (s *Server) handleIngestRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method == "POST" && strings.HasSuffix(r.URL.Path, ":run") {
		s.locked(s.app.SourceHandler.IngestRunHandler)(w, r)
		return
	}

	s.app.HealthHandler.NotFoundHandler(w, r)
}

// handleViewsRoute routes /v1/views requests (list and create)
func (s *Server) handleViewsRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.app.ViewHandler.ListHandler, s.locked(s.app.ViewHandler.CreateHandler))
}

// handleViewRoutes routes /v1/views/{name} requests. Saved-view execution at
// /{name}:query is a read, so it runs without the write mutex.
func (s *Server) handleViewRoutes(w http.ResponseWriter, r *http.Request) {
	// POST /v1/views/{name}:query
	if r.Method == "POST" && strings.HasSuffix(r.URL.Path, ":query") {
		s.app.ViewHandler.QueryHandler(w, r)
		return
	}

	RouteResourceItem(w, r, s.app.ViewHandler.GetHandler, nil, s.locked(s.app.ViewHandler.DeleteHandler))
}

// handleJobsRoute routes /v1/jobs requests (list and create)
func (s *Server) handleJobsRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.app.JobHandler.ListHandler, s.locked(s.app.JobHandler.CreateHandler))
}

// handleJobRoutes routes /v1/jobs/{name} requests and subpaths
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// POST /v1/jobs/{name}:run
	if r.Method == "POST" && strings.HasSuffix(path, ":run") {
		s.locked(s.app.JobHandler.RunHandler)(w, r)
		return
	}

	// GET /v1/jobs/{name}/runs
	if r.Method == "GET" && strings.HasSuffix(path, "/runs") {
		s.app.JobHandler.RunsHandler(w, r)
		return
	}

	RouteResourceItem(w, r, s.app.JobHandler.GetHandler, nil, s.locked(s.app.JobHandler.DeleteHandler))
}

func (s *Server) handleArtifactsRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"GET": s.app.ArtifactHandler.ListHandler,
	})
}

func (s *Server) handleArtifactPackRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"POST": s.locked(s.app.ArtifactHandler.PackHandler),
	})
}

func (s *Server) handleArtifactPreviewRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"GET": s.app.ArtifactHandler.PreviewHandler,
	})
}
