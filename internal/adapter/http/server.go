package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/mart-locator/internal/domain"
	"github.com/couchcryptid/mart-locator/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// PipelineRunner starts batch runs and reports their state.
type PipelineRunner interface {
	Start(ctx context.Context) (string, error)
	Status() pipeline.Status
}

// StatusLines exposes the status lines of the latest run.
type StatusLines interface {
	Lines() []domain.StatusUpdate
}

// Server exposes health, readiness, metrics and pipeline control endpoints.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	runner     PipelineRunner
	lines      StatusLines
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz and /metrics
// routes. The /pipeline routes are added when runner is non-nil; lines may
// be nil.
func NewServer(addr string, ready ReadinessChecker, runner PipelineRunner, lines StatusLines, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		mux:    mux,
		runner: runner,
		lines:  lines,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if runner != nil {
		mux.HandleFunc("GET /pipeline", s.handlePipelineStatus)
		mux.HandleFunc("POST /pipeline/run", s.handlePipelineRun)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

type runSummary struct {
	Total      int    `json:"total"`
	Resolved   int    `json:"resolved"`
	Fallback   int    `json:"fallback"`
	Unresolved int    `json:"unresolved"`
	Saved      int    `json:"saved"`
	Duration   string `json:"duration"`
}

type pipelineResponse struct {
	State    domain.RunState       `json:"state"`
	Progress int                   `json:"progress"`
	RunID    string                `json:"run_id,omitempty"`
	LastRun  *runSummary           `json:"last_run,omitempty"`
	Lines    []domain.StatusUpdate `json:"lines"`
}

func (s *Server) handlePipelineStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.runner.Status()
	resp := pipelineResponse{
		State:    st.State,
		Progress: st.Progress,
		RunID:    st.RunID,
		Lines:    []domain.StatusUpdate{},
	}
	if st.LastRun != nil {
		resp.LastRun = &runSummary{
			Total:      st.LastRun.Total,
			Resolved:   st.LastRun.Resolved,
			Fallback:   st.LastRun.Fallback,
			Unresolved: st.LastRun.Unresolved,
			Saved:      st.LastRun.Saved,
			Duration:   st.LastRun.Duration.String(),
		}
	}
	if s.lines != nil {
		if lines := s.lines.Lines(); lines != nil {
			resp.Lines = lines
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePipelineRun(w http.ResponseWriter, r *http.Request) {
	runID, err := s.runner.Start(r.Context())
	switch {
	case errors.Is(err, domain.ErrAlreadyRunning):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	case err != nil:
		s.logger.Error("start pipeline failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.logger.Info("pipeline run requested", "run_id", runID, "remote", r.RemoteAddr)
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID, "state": string(domain.StateRunning)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
