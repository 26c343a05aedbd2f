package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ajitpratap0/tradepro/internal/agents"
	"github.com/ajitpratap0/tradepro/internal/market"
	"github.com/ajitpratap0/tradepro/internal/predictor"
	"github.com/ajitpratap0/tradepro/internal/validation"
)

// Cache-Control values per route family.
const (
	cacheAnalysis = "public, max-age=60, stale-while-revalidate=120"
	cacheQuote    = "public, max-age=30, stale-while-revalidate=60"
	cacheHistory  = "public, max-age=300, stale-while-revalidate=600"
	cacheNews     = "public, max-age=180, stale-while-revalidate=300"
)

// Request limits
const (
	defaultHorizon = 7
	maxHorizon     = 365
	maxNewsItem    = 50
)

// PredictRequest is the POST /agent/predict body.
type PredictRequest struct {
	Symbol  string `json:"symbol" binding:"required"`
	Horizon *int   `json:"horizon"`
}

func success(c *gin.Context, cacheControl string, data interface{}) {
	if cacheControl != "" {
		c.Header("Cache-Control", cacheControl)
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": data})
}

func fail(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"status": "error", "error": msg})
}

// symbolParam validates a path or query symbol, writing a 400 on failure.
func symbolParam(c *gin.Context, field, raw string) (string, bool) {
	v := validation.NewValidator()
	symbol := v.Symbol(field, raw)
	if err := v.Err(); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return "", false
	}
	return symbol, true
}

// intParam validates an optional integer query parameter, writing a 400 on
// failure.
func intParam(c *gin.Context, field string, def, min, max int) (int, bool) {
	v := validation.NewValidator()
	n := v.IntParam(field, c.Query(field), def, min, max)
	if err := v.Err(); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return n, true
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "TradePro AI Agents API",
		"status":  "running",
		"version": s.cfg.Version,
		"time":    time.Now().UTC(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	n := 0
	if s.deps.Analyzer != nil {
		n = len(s.deps.Analyzer.Agents())
	}
	body := gin.H{
		"status":              "healthy",
		"agents":              n,
		"predictor_available": s.deps.Predictor != nil,
		"sentiment_available": s.deps.Sentiment != nil,
	}
	if s.deps.Stream != nil {
		body["stream_clients"] = s.deps.Stream.ClientCount()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleAnalyze(c *gin.Context) {
	ticker, ok := symbolParam(c, "ticker", c.Param("ticker"))
	if !ok {
		return
	}
	if s.deps.Analyzer == nil {
		fail(c, http.StatusServiceUnavailable, "Orchestrator not available")
		return
	}

	ctx := c.Request.Context()
	var mc *agents.MarketContext
	if s.deps.Context != nil {
		mc = s.deps.Context.Build(ctx, ticker)
	}
	if ctx.Err() != nil {
		fail(c, http.StatusGatewayTimeout, "analysis timed out")
		return
	}

	success(c, cacheAnalysis, s.deps.Analyzer.AnalyzeTicker(ctx, ticker, mc))
}

func (s *Server) predictorOr503(c *gin.Context) bool {
	if s.deps.Predictor == nil {
		fail(c, http.StatusServiceUnavailable, "Predictor not available")
		return false
	}
	return true
}

func (s *Server) handlePredictPost(c *gin.Context) {
	if !s.predictorOr503(c) {
		return
	}

	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	v := validation.NewValidator()
	symbol := v.Symbol("symbol", req.Symbol)
	horizon := defaultHorizon
	if req.Horizon != nil {
		horizon = *req.Horizon
	}
	v.IntRange("horizon", horizon, 1, maxHorizon)
	if err := v.Err(); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	success(c, "", s.deps.Predictor.Predict(c.Request.Context(), symbol, horizon))
}

func (s *Server) handlePredictGet(c *gin.Context) {
	if !s.predictorOr503(c) {
		return
	}
	symbol, ok := symbolParam(c, "symbol", c.Param("symbol"))
	if !ok {
		return
	}
	horizon, ok := intParam(c, "horizon", defaultHorizon, 1, maxHorizon)
	if !ok {
		return
	}

	success(c, cacheAnalysis, s.deps.Predictor.Predict(c.Request.Context(), symbol, horizon))
}

func (s *Server) handlePredictMulti(c *gin.Context) {
	if !s.predictorOr503(c) {
		return
	}
	symbol, ok := symbolParam(c, "symbol", c.Param("symbol"))
	if !ok {
		return
	}

	success(c, cacheAnalysis, s.deps.Predictor.PredictMultiHorizon(c.Request.Context(), symbol, predictor.DefaultHorizons))
}

func (s *Server) handleCurrentPrice(c *gin.Context) {
	if !s.predictorOr503(c) {
		return
	}
	symbol, ok := symbolParam(c, "symbol", c.Query("symbol"))
	if !ok {
		return
	}

	quote, err := s.deps.Predictor.CurrentPrice(c.Request.Context(), symbol)
	if err != nil {
		s.marketError(c, err)
		return
	}
	success(c, cacheQuote, quote)
}

func (s *Server) handleHistory(c *gin.Context) {
	if !s.predictorOr503(c) {
		return
	}
	symbol, ok := symbolParam(c, "symbol", c.Query("symbol"))
	if !ok {
		return
	}
	period := c.DefaultQuery("period", "1y")

	bars, err := s.deps.Predictor.History(c.Request.Context(), symbol, period)
	if err != nil {
		s.marketError(c, err)
		return
	}
	c.Header("Cache-Control", cacheHistory)
	c.JSON(http.StatusOK, gin.H{"status": "success", "symbol": symbol, "data": bars})
}

func (s *Server) marketError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, market.ErrInvalidPeriod):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, market.ErrNoData):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, "request timed out")
	default:
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("Market data request failed")
		fail(c, http.StatusInternalServerError, "market data unavailable")
	}
}

func (s *Server) sentimentOr503(c *gin.Context) bool {
	if s.deps.Sentiment == nil {
		fail(c, http.StatusServiceUnavailable, "Sentiment analyzer not available")
		return false
	}
	return true
}

func (s *Server) handleNews(c *gin.Context) {
	if !s.sentimentOr503(c) {
		return
	}
	symbol, ok := symbolParam(c, "symbol", c.Query("symbol"))
	if !ok {
		return
	}
	maxItems, ok := intParam(c, "max_items", 10, 1, maxNewsItem)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	articles, err := s.deps.Sentiment.FetchNews(ctx, symbol, maxItems)
	if err != nil {
		s.sentimentError(c, err)
		return
	}
	aggregate, err := s.deps.Sentiment.AggregateSentiment(ctx, symbol)
	if err != nil {
		s.sentimentError(c, err)
		return
	}

	c.Header("Cache-Control", cacheNews)
	c.JSON(http.StatusOK, gin.H{
		"status":              "success",
		"symbol":              symbol,
		"aggregate_sentiment": aggregate,
		"articles":            articles,
	})
}

func (s *Server) handleSentiment(c *gin.Context) {
	if !s.sentimentOr503(c) {
		return
	}
	symbol, ok := symbolParam(c, "symbol", c.Param("symbol"))
	if !ok {
		return
	}

	aggregate, err := s.deps.Sentiment.AggregateSentiment(c.Request.Context(), symbol)
	if err != nil {
		s.sentimentError(c, err)
		return
	}
	success(c, cacheNews, aggregate)
}

func (s *Server) sentimentError(c *gin.Context, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		fail(c, http.StatusGatewayTimeout, "request timed out")
		return
	}
	s.log.Error().Err(err).Str("path", c.FullPath()).Msg("Sentiment request failed")
	fail(c, http.StatusInternalServerError, "sentiment unavailable")
}
