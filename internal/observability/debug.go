package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// DebugServer exposes liveness and Prometheus metrics endpoints while an
// update run is in progress. It is optional: long-running or scheduled
// deployments enable it, one-shot CLI invocations usually leave it off.
type DebugServer struct {
	httpServer *http.Server
	logger     zerolog.Logger
}

// NewDebugServer creates a debug server listening on addr.
func NewDebugServer(addr string, logger zerolog.Logger) *DebugServer {
	s := &DebugServer{
		logger: logger.With().Str("component", "debug-server").Logger(),
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.buildRouter(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// buildRouter creates the chi router with the debug endpoints.
func (s *DebugServer) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Start begins serving and blocks until the server stops.
func (s *DebugServer) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("debug server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on debug address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the debug server.
func (s *DebugServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *DebugServer) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
