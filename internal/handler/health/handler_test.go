package health_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"frauddetect/internal/handler/health"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(t *testing.T, h *health.Handler, path string) (w *httptest.ResponseRecorder) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	return w
}

func TestHealth(t *testing.T) {
	w := serve(t, health.NewHandler(nil), "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestReady(t *testing.T) {
	w := serve(t, health.NewHandler(nil), "/ready")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready"}`, w.Body.String())

	notReady := health.NewHandler(func() error { return errors.Error("no model") })
	w = serve(t, notReady, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"not ready","error":"no model"}`, w.Body.String())

	// Health does not depend on readiness.
	w = serve(t, notReady, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
}
