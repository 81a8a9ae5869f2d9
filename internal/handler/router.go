// Package handler assembles the HTTP API of the fraud detection service.
package handler

import (
	"net/http"

	"frauddetect/internal/handler/country"
	"frauddetect/internal/handler/health"
	"frauddetect/internal/handler/middleware"
	"frauddetect/internal/handler/predict"
	"frauddetect/internal/handler/stats"
	"frauddetect/internal/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Greeting is the body of the root endpoint.
const Greeting = "Fraud Detection Model API is running!"

// RouterConfig is the configuration structure for [NewRouter].  Nil handlers
// leave their routes unregistered.
type RouterConfig struct {
	// Logger logs every request.  If nil, requests are not logged.
	Logger *zap.Logger

	// Metrics records request durations and serves /metrics.
	Metrics *metrics.Collector

	Health  *health.Handler
	Predict *predict.Handler
	Stats   *stats.Handler
	Country *country.Handler

	// APIKey protects the scoring endpoints when not empty.
	APIKey string
}

// NewRouter returns the API router.
func NewRouter(c *RouterConfig) (r *gin.Engine) {
	r = gin.New()

	r.Use(middleware.RequestID())
	if c.Logger != nil {
		r.Use(middleware.Logger(c.Logger))
	}
	r.Use(gin.Recovery())
	if c.Metrics != nil {
		r.Use(middleware.Metrics(c.Metrics))
		r.GET("/metrics", gin.WrapH(c.Metrics.Handler()))
	}

	r.GET("/", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, Greeting)
	})

	if c.Health != nil {
		r.GET("/health", c.Health.Health)
		r.GET("/ready", c.Health.Ready)
	}

	if c.Predict != nil {
		scoring := r.Group("/", middleware.APIKey(c.APIKey))
		scoring.POST("/predict", c.Predict.Predict)
		scoring.POST("/batch", c.Predict.Batch)
		scoring.POST("/explain", c.Predict.Explain)
	}

	if c.Stats != nil {
		r.GET("/summary", c.Stats.Summary)
		r.GET("/fraud_trends", c.Stats.FraudTrends)
		r.GET("/fraud_by_device_browser", c.Stats.FraudByDeviceBrowser)
	}

	if c.Country != nil {
		api := r.Group("/api/v1/geo")
		api.POST("/countries", c.Country.Countries)
		api.GET("/countries/:ip", c.Country.Country)
	}

	return r
}
