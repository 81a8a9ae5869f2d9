// Package dashboard contains the fraud dashboard: a client of the API and a
// server-rendered page with statistics, charts and a prediction form.
package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"frauddetect/internal/eda"
	"frauddetect/internal/handler/middleware"
	"frauddetect/internal/handler/predict"
	"frauddetect/internal/handler/stats"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/goccy/go-json"
	cache "github.com/patrickmn/go-cache"
)

// ErrStatus is returned when the API responds with an unexpected status.
const ErrStatus errors.Error = "unexpected status"

// Default client parameters.
const (
	defaultTimeout  = 10 * time.Second
	defaultCacheTTL = 1 * time.Minute
)

// maxBodySize is the maximum size of an API response body.
const maxBodySize = 16 << 20

// ClientConfig is the configuration structure for a *Client.
type ClientConfig struct {
	// BaseURL is the URL of the API.  It must not be nil.
	BaseURL *url.URL

	// APIKey is sent with the prediction requests when not empty.
	APIKey string

	// Timeout is the timeout of every request.  If not positive, ten seconds
	// are used.
	Timeout time.Duration

	// CacheTTL is how long the statistics are cached.  If not positive, one
	// minute is used.
	CacheTTL time.Duration
}

// Client is a client of the fraud detection API.  The statistics endpoints
// are cached, since the dataset behind them does not change while the API
// is running.
type Client struct {
	http    *http.Client
	baseURL *url.URL
	cache   *cache.Cache
	apiKey  string
}

// NewClient returns a new properly initialized *Client.
func NewClient(c *ClientConfig) (cl *Client) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ttl := c.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: c.BaseURL,
		cache:   cache.New(ttl, ttl),
		apiKey:  c.APIKey,
	}
}

// Summary returns the dataset summary.
func (cl *Client) Summary(ctx context.Context) (s eda.Summary, err error) {
	err = cl.getCached(ctx, "/summary", &s)

	return s, err
}

// FraudTrends returns the number of fraud cases per date.
func (cl *Client) FraudTrends(ctx context.Context) (trends []eda.Trend, err error) {
	err = cl.getCached(ctx, "/fraud_trends", &trends)

	return trends, err
}

// FraudByDeviceBrowser returns the fraud cases per device and per browser.
func (cl *Client) FraudByDeviceBrowser(ctx context.Context) (db *stats.DeviceBrowser, err error) {
	db = &stats.DeviceBrowser{}
	err = cl.getCached(ctx, "/fraud_by_device_browser", db)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// Predict scores tx.
func (cl *Client) Predict(ctx context.Context, tx *predict.Transaction) (resp *predict.Response, err error) {
	body, err := json.Marshal(predict.Request{Transaction: tx})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cl.url("/predict"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if cl.apiKey != "" {
		req.Header.Set(middleware.HeaderAPIKey, cl.apiKey)
	}

	resp = &predict.Response{}
	if err = cl.do(req, resp); err != nil {
		return nil, err
	}

	return resp, nil
}

// getCached decodes the response to a GET request of path into v, using the
// cached body if there is one.
func (cl *Client) getCached(ctx context.Context, path string, v any) (err error) {
	if b, ok := cl.cache.Get(path); ok {
		return json.Unmarshal(b.([]byte), v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cl.url(path), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	b, err := cl.body(req)
	if err != nil {
		return err
	}

	if err = json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	cl.cache.SetDefault(path, b)

	return nil
}

// do sends req and decodes the response body into v.
func (cl *Client) do(req *http.Request, v any) (err error) {
	b, err := cl.body(req)
	if err != nil {
		return err
	}

	if err = json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding %s: %w", req.URL.Path, err)
	}

	return nil
}

// body sends req and returns the response body.  Responses other than
// 200 OK are returned as errors including the error message of the API.
func (cl *Client) body(req *http.Request) (b []byte, err error) {
	resp, err := cl.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", req.URL.Path, err)
	}
	defer func() { err = errors.WithDeferred(err, resp.Body.Close()) }()

	b, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", req.URL.Path, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(b, &apiErr)

		return nil, fmt.Errorf("%s: %w %d: %s", req.URL.Path, ErrStatus, resp.StatusCode, apiErr.Error)
	}

	return b, nil
}

// url returns the absolute URL of the API path.
func (cl *Client) url(path string) (u string) {
	return cl.baseURL.JoinPath(path).String()
}
