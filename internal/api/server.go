// Package api exposes the HTTP interface for the ingestion service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/quillworks/novelforge/internal/config"
	"github.com/quillworks/novelforge/internal/ingest"
	"github.com/quillworks/novelforge/internal/metrics"
	"github.com/quillworks/novelforge/internal/novel"
)

const defaultRecentLimit = 50

// Server wires HTTP handlers to the store and orchestrator.
type Server struct {
	router chi.Router
	store  novel.Store
	orch   *ingest.Orchestrator
	clock  novel.Clock
	logger *zap.Logger
	cfg    config.Config
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	store novel.Store,
	orch *ingest.Orchestrator,
	clock novel.Clock,
	logger *zap.Logger,
	cfg config.Config,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = novel.SystemClock{}
	}
	s := &Server{
		store:  store,
		orch:   orch,
		clock:  clock,
		logger: logger.Named("api"),
		cfg:    cfg,
	}

	timeout := 60 * time.Second
	if cfg.Server.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Server.TimeoutSeconds) * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(timeout))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/requests", func(r chi.Router) {
			r.Post("/", s.submitRequest)
			r.Get("/recent", s.recentRequests)
			r.Route("/{request_id}", func(r chi.Router) {
				r.Get("/", s.getRequest)
				r.Post("/process", s.processRequest)
			})
		})
		r.Post("/ingest/run", s.runBatch)
		r.Get("/books/{slug}/chapters", s.chaptersBySlug)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// The store is the only hard dependency; a cheap read proves it
	// answers.
	if _, err := s.store.RecentRequests(r.Context(), 1); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
