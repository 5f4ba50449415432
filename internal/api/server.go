// Package api exposes the HTTP status interface for dispatch runs.
package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/auditkit/seopipeline/internal/audit"
)

// ReportStore holds the most recent finalized run report.
type ReportStore struct {
	mu     sync.RWMutex
	latest *audit.RunReport
}

// NewReportStore creates an empty store.
func NewReportStore() *ReportStore {
	return &ReportStore{}
}

// Set replaces the latest report.
func (s *ReportStore) Set(r audit.RunReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &r
}

// Latest returns the most recent report, if any run has finished.
func (s *ReportStore) Latest() (audit.RunReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return audit.RunReport{}, false
	}
	return *s.latest, true
}

// Server wires HTTP handlers to the report store and metrics registry.
type Server struct {
	router  chi.Router
	reports *ReportStore
	logger  *zap.Logger
}

// NewServer constructs a Server with routes registered.
func NewServer(reports *ReportStore, logger *zap.Logger) *Server {
	s := &Server{
		reports: reports,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/runs/latest", s.latestRun)
	})
	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) latestRun(w http.ResponseWriter, _ *http.Request) {
	report, ok := s.reports.Latest()
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no completed runs"})
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response write failed", zap.Error(err))
	}
}
