package api

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	agent := s.router.Group("/agent")
	{
		agent.GET("/analyze/:ticker", s.handleAnalyze)

		agent.POST("/predict", s.handlePredictPost)
		agent.GET("/predict/:symbol", s.handlePredictGet)
		agent.GET("/predict-multi/:symbol", s.handlePredictMulti)

		agent.GET("/current-price", s.handleCurrentPrice)
		agent.GET("/history", s.handleHistory)

		agent.GET("/news", s.handleNews)
		agent.GET("/sentiment/:symbol", s.handleSentiment)

		agent.GET("/health", s.handleHealth)

		if s.deps.Stream != nil {
			agent.GET("/stream", s.handleStream)
		}
	}

	s.router.GET("/", s.handleRoot)
}
