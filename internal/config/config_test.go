package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAPI_Defaults(t *testing.T) {
	c, err := LoadAPI()
	require.NoError(t, err)

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "models/model.gob", c.ModelPath)
	assert.Equal(t, 4, c.GeoWorkers)
	assert.Equal(t, 10000, c.GeoCacheSize)
	assert.Equal(t, 30*time.Second, c.ShutdownTimeout)
	assert.True(t, c.WatchRanges)
}

func TestLoadAPI_Env(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("API_KEY", "secret")
	t.Setenv("GEO_WORKERS", "8")
	t.Setenv("WATCH_RANGES", "false")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")

	c, err := LoadAPI()
	require.NoError(t, err)

	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, "secret", c.APIKey)
	assert.Equal(t, 8, c.GeoWorkers)
	assert.False(t, c.WatchRanges)
	assert.Equal(t, 5*time.Second, c.ShutdownTimeout)
}

func TestAPI_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *API)
		wantErr bool
	}{{
		name:    "valid",
		mutate:  func(_ *API) {},
		wantErr: false,
	}, {
		name:    "bad_port",
		mutate:  func(c *API) { c.Port = "http" },
		wantErr: true,
	}, {
		name:    "port_out_of_range",
		mutate:  func(c *API) { c.Port = "70000" },
		wantErr: true,
	}, {
		name:    "negative_workers",
		mutate:  func(c *API) { c.GeoWorkers = -1 },
		wantErr: true,
	}, {
		name:    "negative_cache",
		mutate:  func(c *API) { c.GeoCacheSize = -1 },
		wantErr: true,
	}, {
		name:    "no_ranges",
		mutate:  func(c *API) { c.RangesPath = "" },
		wantErr: true,
	}, {
		name: "mmdb_instead_of_ranges",
		mutate: func(c *API) {
			c.RangesPath = ""
			c.MMDBPath = "GeoLite2-Country.mmdb"
		},
		wantErr: false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := &API{
				Port:            "8080",
				ModelPath:       "m.gob",
				DataPath:        "d.csv",
				RangesPath:      "r.csv",
				ShutdownTimeout: time.Second,
			}
			tc.mutate(c)

			err := c.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadDashboard(t *testing.T) {
	t.Setenv("API_URL", "http://api:8080")

	c, err := LoadDashboard()
	require.NoError(t, err)
	assert.Equal(t, "8000", c.Port)
	assert.Equal(t, "http://api:8080", c.APIURL)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, time.Minute, c.CacheTTL)

	t.Setenv("CACHE_TTL", "0s")
	_, err = LoadDashboard()
	assert.Error(t, err)

	t.Setenv("CACHE_TTL", "30s")

	t.Setenv("API_URL", "api:8080/path")
	_, err = LoadDashboard()
	assert.Error(t, err)
}

func TestLoadTrainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trainer.yaml")
	err := os.WriteFile(path, []byte(`
data: data/fraud.csv
algos: [rf, gb]
seed: 7
threshold:
  auto: false
  value: 0.4
curve:
  enabled: false
`), 0o600)
	require.NoError(t, err)

	c, err := LoadTrainer(path)
	require.NoError(t, err)

	assert.Equal(t, "data/fraud.csv", c.Data)
	assert.Equal(t, []string{"rf", "gb"}, c.Algos)
	assert.Equal(t, int64(7), c.Seed)
	assert.False(t, c.Threshold.Auto)
	assert.Equal(t, 0.4, c.Threshold.Value)
	assert.False(t, c.Curve.Enabled)

	// Untouched values keep their defaults.
	assert.Equal(t, "f1", c.Threshold.Metric)
	assert.Equal(t, 0.2, c.TestSize)
	assert.Equal(t, 10, c.Curve.Points)
}

func TestLoadTrainer_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trainer.yaml")
	err := os.WriteFile(path, []byte("algos: [svm]\ntest_size: 1.5\n"), 0o600)
	require.NoError(t, err)

	_, err = LoadTrainer(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown algorithm "svm"`)
	assert.Contains(t, err.Error(), "test_size")

	_, err = LoadTrainer(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
