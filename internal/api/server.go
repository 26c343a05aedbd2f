// Package api exposes analysis, prediction, quote and news endpoints over
// HTTP under the /agent prefix.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ajitpratap0/tradepro/internal/agents"
	"github.com/ajitpratap0/tradepro/internal/metrics"
	"github.com/ajitpratap0/tradepro/internal/orchestrator"
	"github.com/ajitpratap0/tradepro/internal/predictor"
	"github.com/ajitpratap0/tradepro/internal/sentiment"
)

// Predictor is the prediction and quote surface used by the handlers.
type Predictor interface {
	Predict(ctx context.Context, symbol string, horizon int) *predictor.PredictionResult
	PredictMultiHorizon(ctx context.Context, symbol string, horizons []int) map[string]*predictor.PredictionResult
	CurrentPrice(ctx context.Context, symbol string) (*predictor.Quote, error)
	History(ctx context.Context, symbol, period string) ([]predictor.HistoryBar, error)
}

// Analyzer runs the analyst set.
type Analyzer interface {
	AnalyzeTicker(ctx context.Context, ticker string, mc *agents.MarketContext) *orchestrator.Analysis
	Agents() []agents.Agent
}

// ContextBuilder assembles market contexts.
type ContextBuilder interface {
	Build(ctx context.Context, ticker string) *agents.MarketContext
}

// Config contains server configuration
type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string
	RequestTimeout time.Duration
	Version        string
}

// Deps are the collaborators behind the routes. Predictor and Sentiment
// may be nil; their routes then answer 503.
type Deps struct {
	Analyzer  Analyzer
	Context   ContextBuilder
	Predictor Predictor
	Sentiment sentiment.Provider
	// Stream serves /agent/stream when set.
	Stream *Hub
}

// Server represents the REST API server
type Server struct {
	router *gin.Engine
	deps   Deps
	cfg    Config
	addr   string
	server *http.Server
	log    zerolog.Logger
}

// NewServer creates a new API server
func NewServer(cfg Config, deps Deps, logger zerolog.Logger) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.Use(metrics.GinMiddleware())
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	router.Use(TimeoutMiddleware(cfg.RequestTimeout))

	s := &Server{
		router: router,
		deps:   deps,
		cfg:    cfg,
		addr:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		log:    logger.With().Str("component", "api").Logger(),
	}
	s.setupRoutes()
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info().Str("addr", s.addr).Msg("Starting API server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info().Msg("Stopping API server")

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to stop server: %w", err)
		}
	}

	return nil
}

// LoggerMiddleware is a custom logging middleware for Gin
func LoggerMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		statusCode := c.Writer.Status()
		logEvent := logger.Info()
		if statusCode >= http.StatusInternalServerError {
			logEvent = logger.Error()
		}
		logEvent = logEvent.
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", statusCode).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP())

		if len(c.Errors) > 0 {
			logEvent.Str("errors", c.Errors.String())
		}

		logEvent.Msg("API request")
	}
}

// TimeoutMiddleware bounds each request's context.
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
