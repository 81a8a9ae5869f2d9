// Package config contains the configuration of the fraud detection binaries.
// The services are configured with environment variables, the trainer with
// flags and an optional YAML file.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/caarlos0/env/v7"
	"go.uber.org/multierr"
)

// API is the configuration of the prediction API.
type API struct {
	Port       string `env:"PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile    string `env:"LOG_FILE"`
	APIKey     string `env:"API_KEY"`
	ModelPath  string `env:"MODEL_PATH" envDefault:"models/model.gob"`
	DataPath   string `env:"DATA_PATH" envDefault:"data/cleaned_data.csv"`
	RangesPath string `env:"RANGES_PATH" envDefault:"data/IpAddress_to_Country.csv"`

	// MMDBPath, when set, makes the API look countries up in a MaxMind
	// database instead of the range table.
	MMDBPath string `env:"MMDB_PATH"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	GeoWorkers int `env:"GEO_WORKERS" envDefault:"4"`

	// GeoCacheSize is the number of MMDB lookups kept in memory.  Zero
	// disables the cache.
	GeoCacheSize int `env:"GEO_CACHE_SIZE" envDefault:"10000"`

	WatchRanges bool `env:"WATCH_RANGES" envDefault:"true"`
}

// LoadAPI reads the API configuration from the environment and validates it.
func LoadAPI() (c *API, err error) {
	c = &API{}
	if err = env.Parse(c); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err = c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate returns an error if c contains invalid values.
func (c *API) Validate() (err error) {
	err = multierr.Combine(
		validatePort("PORT", c.Port),
		notEmpty("MODEL_PATH", c.ModelPath),
		notEmpty("DATA_PATH", c.DataPath),
	)

	if c.MMDBPath == "" {
		err = multierr.Append(err, notEmpty("RANGES_PATH", c.RangesPath))
	}

	if c.GeoWorkers < 0 {
		err = multierr.Append(err, fmt.Errorf("GEO_WORKERS: must not be negative, got %d", c.GeoWorkers))
	}

	if c.GeoCacheSize < 0 {
		err = multierr.Append(err, fmt.Errorf("GEO_CACHE_SIZE: must not be negative, got %d", c.GeoCacheSize))
	}

	if c.ShutdownTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("SHUTDOWN_TIMEOUT: must be positive, got %s", c.ShutdownTimeout))
	}

	if err != nil {
		return fmt.Errorf("validating api config: %w", err)
	}

	return nil
}

// Dashboard is the configuration of the dashboard service.
type Dashboard struct {
	Port     string `env:"PORT" envDefault:"8000"`
	APIURL   string `env:"API_URL" envDefault:"http://127.0.0.1:8080"`
	APIKey   string `env:"API_KEY"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

	// CacheTTL is how long the API statistics are reused.
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"1m"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LoadDashboard reads the dashboard configuration from the environment and
// validates it.
func LoadDashboard() (c *Dashboard, err error) {
	c = &Dashboard{}
	if err = env.Parse(c); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err = c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate returns an error if c contains invalid values.
func (c *Dashboard) Validate() (err error) {
	err = validatePort("PORT", c.Port)

	u, perr := url.Parse(c.APIURL)
	if perr != nil || u.Scheme == "" || u.Host == "" {
		err = multierr.Append(err, fmt.Errorf("API_URL: %q is not an absolute url", c.APIURL))
	}

	if c.RequestTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("REQUEST_TIMEOUT: must be positive, got %s", c.RequestTimeout))
	}

	if c.CacheTTL <= 0 {
		err = multierr.Append(err, fmt.Errorf("CACHE_TTL: must be positive, got %s", c.CacheTTL))
	}

	if c.ShutdownTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("SHUTDOWN_TIMEOUT: must be positive, got %s", c.ShutdownTimeout))
	}

	if err != nil {
		return fmt.Errorf("validating dashboard config: %w", err)
	}

	return nil
}

func validatePort(name, port string) (err error) {
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("%s: %q is not a valid port", name, port)
	}

	return nil
}

func notEmpty(name, value string) (err error) {
	if value == "" {
		return fmt.Errorf("%s: must not be empty", name)
	}

	return nil
}
