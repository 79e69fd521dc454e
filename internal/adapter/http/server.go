// Package http serves the job's status while a run is in progress, so an
// orchestrator can check on a job that is still waiting for its databases.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readinessTimeout = 2 * time.Second

// ReadinessChecker returns nil once the job can reach both of its stores.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// status is the body of /healthz and /readyz.
type status struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type Server struct {
	httpServer *http.Server
	ready      ReadinessChecker
	logger     *slog.Logger
}

// NewServer routes /healthz, /readyz and /metrics. /metrics exposes only the
// job's own registry.
func NewServer(addr string, ready ReadinessChecker, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	s := &Server{ready: ready, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.healthz)
	mux.HandleFunc("GET /readyz", s.readyz)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	return s
}

// Start blocks until Shutdown, then returns http.ErrServerClosed.
func (s *Server) Start() error {
	s.logger.Info("status server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, status{Status: "healthy"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := s.ready.CheckReadiness(ctx); err != nil {
		respond(w, http.StatusServiceUnavailable, status{Status: "not ready", Error: err.Error()})
		return
	}
	respond(w, http.StatusOK, status{Status: "ready"})
}

func respond(w http.ResponseWriter, code int, body status) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
