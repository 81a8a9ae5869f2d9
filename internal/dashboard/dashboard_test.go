package dashboard_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"frauddetect/internal/dashboard"
	"frauddetect/internal/eda"
	"frauddetect/internal/handler"
	"frauddetect/internal/handler/predict"
	"frauddetect/internal/handler/stats"
	"frauddetect/internal/training/trainingtest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "secret"

// newAPI starts the fraud detection API and returns its URL and the number
// of requests it served.
func newAPI(t *testing.T) (u *url.URL, served *atomic.Int64) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	r := handler.NewRouter(&handler.RouterConfig{
		Predict: predict.NewHandler(&predict.Config{
			Artifact: trainingtest.NewArtifact(t, &trainingtest.ConstModel{P: 0.8}),
		}),
		Stats:  stats.NewHandler(trainingtest.Transactions(50)),
		APIKey: testAPIKey,
	})

	served = &atomic.Int64{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		served.Add(1)
		r.ServeHTTP(w, req)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	return u, served
}

func newClient(t *testing.T, key string) (cl *dashboard.Client, served *atomic.Int64) {
	t.Helper()

	u, served := newAPI(t)

	return dashboard.NewClient(&dashboard.ClientConfig{BaseURL: u, APIKey: key}), served
}

func testTransaction() (tx *predict.Transaction) {
	return &predict.Transaction{
		UserID:        "22058",
		SignupTime:    "2015-02-24 22:55:49",
		PurchaseTime:  "2015-04-18 02:47:11",
		DeviceID:      "QVPSPJUOCKZAR",
		Source:        "SEO",
		Browser:       "Chrome",
		Sex:           "M",
		PurchaseValue: 34,
		Age:           39,
	}
}

func TestClient_Summary(t *testing.T) {
	cl, served := newClient(t, "")
	ctx := context.Background()

	want := eda.Summarize(trainingtest.Transactions(50))

	s, err := cl.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.TotalTransactions, s.TotalTransactions)
	assert.Equal(t, want.FraudCases, s.FraudCases)
	assert.InDelta(t, want.FraudPercentage, s.FraudPercentage, 1e-9)

	s, err = cl.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.TotalTransactions, s.TotalTransactions)

	assert.Equal(t, int64(1), served.Load())
}

func TestClient_statistics(t *testing.T) {
	cl, _ := newClient(t, "")
	ctx := context.Background()
	txs := trainingtest.Transactions(50)

	trends, err := cl.FraudTrends(ctx)
	require.NoError(t, err)
	assert.Equal(t, eda.FraudTrends(txs), trends)

	db, err := cl.FraudByDeviceBrowser(ctx)
	require.NoError(t, err)
	assert.Equal(t, eda.CountMap(eda.FraudByBrowser(txs)), db.FraudByBrowser)
	assert.LessOrEqual(t, len(db.FraudByDevice), stats.TopDevices)
}

func TestClient_Predict(t *testing.T) {
	cl, _ := newClient(t, testAPIKey)

	resp, err := cl.Predict(context.Background(), testTransaction())
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Prediction)
	assert.Equal(t, predict.RiskMedium, resp.Risk)
	assert.Equal(t, "Const", resp.Model)
}

func TestClient_Predict_errors(t *testing.T) {
	cl, _ := newClient(t, "wrong")

	_, err := cl.Predict(context.Background(), testTransaction())
	require.ErrorIs(t, err, dashboard.ErrStatus)
	assert.Contains(t, err.Error(), "401")

	cl, _ = newClient(t, testAPIKey)
	tx := testTransaction()
	tx.SignupTime = "yesterday"

	_, err = cl.Predict(context.Background(), tx)
	require.ErrorIs(t, err, dashboard.ErrStatus)
	assert.Contains(t, err.Error(), "signup_time")
}

func newDashboard(t *testing.T, api dashboard.API) (r *gin.Engine) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	s, err := dashboard.NewServer(&dashboard.Config{API: api})
	require.NoError(t, err)

	r = gin.New()
	s.Register(r)

	return r
}

func serve(r http.Handler, req *http.Request) (w *httptest.ResponseRecorder) {
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestServer_Index(t *testing.T) {
	cl, _ := newClient(t, testAPIKey)
	r := newDashboard(t, cl)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "Total Transactions")
	assert.Contains(t, body, "<h2>50</h2>")
	assert.Contains(t, body, `src="charts/trend.png"`)
	assert.Contains(t, body, `name="purchase_value"`)
	assert.NotContains(t, body, "prediction-result")
}

func TestServer_Index_apiDown(t *testing.T) {
	u, err := url.Parse("http://127.0.0.1:1")
	require.NoError(t, err)

	r := newDashboard(t, dashboard.NewClient(&dashboard.ClientConfig{BaseURL: u}))

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "api unavailable")

	w = serve(r, httptest.NewRequest(http.MethodGet, "/charts/trend.png", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestServer_Chart(t *testing.T) {
	cl, _ := newClient(t, testAPIKey)
	r := newDashboard(t, cl)

	for _, name := range []string{"trend.png", "device.png", "browser.png"} {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/charts/"+name, nil))
		require.Equal(t, http.StatusOK, w.Code, name)

		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(w.Body.String(), "\x89PNG"), name)
	}

	for _, name := range []string{"nope.png", "trend.svg"} {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/charts/"+name, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, name)
	}
}

func TestServer_Predict(t *testing.T) {
	cl, _ := newClient(t, testAPIKey)
	r := newDashboard(t, cl)

	form := url.Values{
		"user_id":        {"22058"},
		"signup_time":    {"2015-02-24 22:55:49"},
		"purchase_time":  {"2015-04-18 02:47:11"},
		"purchase_value": {"34"},
		"device_id":      {"QVPSPJUOCKZAR"},
		"source":         {"SEO"},
		"browser":        {"Chrome"},
		"sex":            {"M"},
		"age":            {"39"},
	}

	post := func(f url.Values) (w *httptest.ResponseRecorder) {
		req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(f.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		return serve(r, req)
	}

	w := post(form)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "Predicted Fraud Status: "+dashboard.StatusFraud+" ")
	assert.Contains(t, body, "score 0.800")
	assert.Contains(t, body, "risk "+predict.RiskMedium)
	assert.Contains(t, body, `value="QVPSPJUOCKZAR"`)

	form.Set("age", "old")
	w = post(form)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "age")

	form.Set("age", "39")
	form.Set("purchase_time", "later")
	w = post(form)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "prediction failed")
}
