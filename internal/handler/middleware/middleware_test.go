package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"frauddetect/internal/handler/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type observation struct {
	method string
	route  string
	status int
}

type testObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (o *testObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.obs = append(o.obs, observation{method: method, route: route, status: status})
}

func newRouter(mw ...gin.HandlerFunc) (r *gin.Engine) {
	gin.SetMode(gin.TestMode)

	r = gin.New()
	r.Use(mw...)
	r.GET("/items/:id", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(middleware.KeyRequestID))
	})
	r.GET("/fail", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	return r
}

func serve(r http.Handler, path string, header http.Header) (w *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestRequestID(t *testing.T) {
	r := newRouter(middleware.RequestID())

	w := serve(r, "/items/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	id := w.Header().Get(middleware.HeaderRequestID)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, w.Body.String())

	w = serve(r, "/items/1", http.Header{middleware.HeaderRequestID: {"abc"}})
	assert.Equal(t, "abc", w.Header().Get(middleware.HeaderRequestID))
	assert.Equal(t, "abc", w.Body.String())
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newRouter(middleware.RequestID(), middleware.Logger(zap.New(core)))

	serve(r, "/items/7", nil)
	serve(r, "/fail", nil)
	serve(r, "/missing", nil)

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "/items/7", entries[0].ContextMap()["path"])
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, zap.WarnLevel, entries[2].Level)
}

func TestMetrics(t *testing.T) {
	o := &testObserver{}
	r := newRouter(middleware.Metrics(o))

	serve(r, "/items/7", nil)
	serve(r, "/missing", nil)

	assert.Equal(t, []observation{
		{method: http.MethodGet, route: "/items/:id", status: http.StatusOK},
		{method: http.MethodGet, route: "unmatched", status: http.StatusNotFound},
	}, o.obs)
}

func TestAPIKey(t *testing.T) {
	testCases := []struct {
		name   string
		key    string
		header string
		want   int
	}{{
		name:   "disabled",
		key:    "",
		header: "",
		want:   http.StatusOK,
	}, {
		name:   "valid",
		key:    "secret",
		header: "secret",
		want:   http.StatusOK,
	}, {
		name:   "missing",
		key:    "secret",
		header: "",
		want:   http.StatusUnauthorized,
	}, {
		name:   "wrong",
		key:    "secret",
		header: "secreT",
		want:   http.StatusUnauthorized,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(middleware.APIKey(tc.key))

			h := http.Header{}
			if tc.header != "" {
				h.Set(middleware.HeaderAPIKey, tc.header)
			}

			w := serve(r, "/items/1", h)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}
