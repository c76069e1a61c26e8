// Package api exposes the dashboard backend over HTTP: route planning,
// batch ingestion, and stats.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/plx30080-ctrl/LeadGen/internal/ingest"
	"github.com/plx30080-ctrl/LeadGen/internal/route"
	"github.com/plx30080-ctrl/LeadGen/internal/store"
	"github.com/plx30080-ctrl/LeadGen/internal/taskq"
)

// Server holds the handler dependencies.
type Server struct {
	store    store.Store
	resolver *ingest.Resolver
	planner  *route.Planner
	queue    *taskq.Queue

	allowedOrigins []string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAllowedOrigins sets the CORS allow list.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// NewServer creates a Server.
func NewServer(st store.Store, resolver *ingest.Resolver, planner *route.Planner, queue *taskq.Queue, opts ...ServerOption) *Server {
	s := &Server{
		store:          st,
		resolver:       resolver,
		planner:        planner,
		queue:          queue,
		allowedOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/routes/plan", s.handlePlanRoute)
		r.Get("/routes/{id}", s.handleGetRoute)
		r.Post("/ingest/batch", s.handleIngestBatch)
		r.Post("/ingest/csv", s.handleIngestCSV)
		r.Get("/ingest/stats", s.handleStats)
		r.Get("/review", s.handleListReview)
		r.Post("/review/{id}/resolve", s.handleResolveReview)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
