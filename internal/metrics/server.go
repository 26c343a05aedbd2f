// Package metrics provides HTTP server for exposing Prometheus metrics
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// ReadinessCheck reports whether one component can serve requests.
type ReadinessCheck struct {
	Name  string
	Ready func() bool
}

// Readiness is the body of /ready.
type Readiness struct {
	Status     string          `json:"status"`
	Components map[string]bool `json:"components"`
}

// Server exposes /metrics, /health and /ready on a dedicated port
type Server struct {
	port   int
	checks []ReadinessCheck
	server *http.Server
	log    zerolog.Logger
}

// NewServer creates a metrics server. /ready answers 503 while any check
// reports false.
func NewServer(port int, log zerolog.Logger, checks ...ReadinessCheck) *Server {
	return &Server{
		port:   port,
		checks: checks,
		log:    log.With().Str("component", "metrics_server").Logger(),
	}
}

// Readiness evaluates every check.
func (s *Server) Readiness() Readiness {
	r := Readiness{Status: "ready", Components: make(map[string]bool, len(s.checks))}
	for _, c := range s.checks {
		ok := c.Ready()
		r.Components[c.Name] = ok
		if !ok {
			r.Status = "degraded"
		}
	}
	return r
}

// Handler returns the metrics mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		readiness := s.Readiness()
		w.Header().Set("Content-Type", "application/json")
		if readiness.Status != "ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(readiness); err != nil {
			s.log.Debug().Err(err).Msg("Failed to write readiness")
		}
	})
	return mux
}

// Start serves in the background; listen errors are logged.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info().Int("port", s.port).Int("readiness_checks", len(s.checks)).Msg("Starting metrics server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("Metrics server error")
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the metrics server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.log.Info().Msg("Shutting down metrics server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown metrics server: %w", err)
	}

	s.log.Info().Msg("Metrics server shutdown complete")
	return nil
}
