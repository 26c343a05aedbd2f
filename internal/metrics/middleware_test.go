package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/agent/predict/:symbol", func(c *gin.Context) {
		c.String(http.StatusTeapot, c.Param("symbol"))
	})

	counter := HTTPRequests.WithLabelValues("GET", "/agent/predict/:symbol", "418")
	before := testutil.ToFloat64(counter)

	for _, symbol := range []string{"AAPL", "MSFT"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/agent/predict/"+symbol, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTeapot, w.Code)
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter))

	unmatched := HTTPRequests.WithLabelValues("GET", "unmatched", "404")
	beforeUnmatched := testutil.ToFloat64(unmatched)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, beforeUnmatched+1, testutil.ToFloat64(unmatched))
}
