// Package middleware contains the gin middleware shared by the HTTP services.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HeaderRequestID is the header carrying the request ID.
const HeaderRequestID = "X-Request-ID"

// HeaderAPIKey is the header carrying the API key.
const HeaderAPIKey = "X-API-Key"

// KeyRequestID is the gin context key of the request ID.
const KeyRequestID = "request_id"

// RequestID sets the request ID of every request, reusing the one sent by
// the client if any, and echoes it in the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(KeyRequestID, id)
		c.Header(HeaderRequestID, id)

		c.Next()
	}
}

// Logger logs every request once it is handled.  Server errors are logged at
// error level and client errors at warn level.
func Logger(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", c.GetString(KeyRequestID)),
		}

		switch {
		case len(c.Errors) > 0:
			l.Error("request completed with errors", append(fields, zap.String("errors", c.Errors.String()))...)
		case status >= http.StatusInternalServerError:
			l.Error("request completed", fields...)
		case status >= http.StatusBadRequest:
			l.Warn("request completed", fields...)
		default:
			l.Info("request completed", fields...)
		}
	}
}

// RequestObserver records the duration of handled requests.
// [*metrics.Collector] implements it.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

// Metrics records the duration of every request under its route pattern.
// Requests matching no route are recorded as "unmatched".
func Metrics(o RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		o.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// APIKey rejects requests whose [HeaderAPIKey] header does not match key.
// An empty key disables the check.
func APIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()

			return
		}

		got := c.GetHeader(HeaderAPIKey)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})

			return
		}

		c.Next()
	}
}
