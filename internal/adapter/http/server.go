package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/covid-dashboard-etl/internal/domain"
)

// ReportSource exposes the most recently written report.
type ReportSource interface {
	sharedobs.ReadinessChecker
	LatestReport() (domain.Artifacts, bool)
}

// Server exposes health, readiness, metrics and the latest report documents.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /data.json and /testsPerDay.json routes.
func NewServer(addr string, reports ReportSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(reports))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /"+domain.ReportFileName, handleArtifact(reports, func(a domain.Artifacts) []byte { return a.Report }))
	mux.HandleFunc("GET /"+domain.TestsPerDayFileName, handleArtifact(reports, func(a domain.Artifacts) []byte { return a.TestsPerDay }))

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

// handleArtifact serves one encoded document of the latest run, or 503 until
// the first run has succeeded.
func handleArtifact(reports ReportSource, pick func(domain.Artifacts) []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		a, ok := reports.LatestReport()
		if !ok {
			sharedobs.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  "no report has been built yet",
			})
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("X-Run-Id", a.RunID)
		w.WriteHeader(http.StatusOK)
		w.Write(pick(a)) //nolint:errcheck // client may have gone away
	}
}
