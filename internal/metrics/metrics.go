// Package metrics contains the prometheus metrics of the fraud detection
// services.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"frauddetect/internal/geo"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "frauddetect"

// Collector holds all prometheus metrics of a service.  It has its own
// registry so that tests can create as many collectors as they need.
type Collector struct {
	// Geolocation metrics
	GeoLookups     *prometheus.CounterVec
	GeoIndexRanges prometheus.Gauge
	GeoReloads     *prometheus.CounterVec

	// Model metrics
	Predictions *prometheus.CounterVec

	// HTTP metrics
	RequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// type check
var _ geo.Metrics = (*Collector)(nil)

// NewCollector creates a new collector with all metrics registered.
func NewCollector() *Collector {
	c := &Collector{
		GeoLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "geo",
			Name:      "lookups_total",
			Help:      "Total number of IP to country lookups by result.",
		}, []string{"result"}),
		GeoIndexRanges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "geo",
			Name:      "index_ranges",
			Help:      "Number of ranges in the current IP index.",
		}),
		GeoReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "geo",
			Name:      "index_reloads_total",
			Help:      "Total number of IP index rebuilds by status.",
		}, []string{"status"}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "predictions_total",
			Help:      "Total number of predictions by model and predicted class.",
		}, []string{"model", "class"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		registry: prometheus.NewRegistry(),
	}

	c.registry.MustRegister(
		c.GeoLookups,
		c.GeoIndexRanges,
		c.GeoReloads,
		c.Predictions,
		c.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry returns the registry of the collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the HTTP handler exposing the metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveLookups implements the [geo.Metrics] interface for *Collector.
func (c *Collector) ObserveLookups(matched, unmatched int) {
	c.GeoLookups.WithLabelValues("matched").Add(float64(matched))
	c.GeoLookups.WithLabelValues("unmatched").Add(float64(unmatched))
}

// ObserveReload implements the [geo.Metrics] interface for *Collector.
func (c *Collector) ObserveReload(ok bool, ranges int) {
	if !ok {
		c.GeoReloads.WithLabelValues("error").Inc()

		return
	}

	c.GeoReloads.WithLabelValues("success").Inc()
	c.GeoIndexRanges.Set(float64(ranges))
}

// ObservePrediction counts one prediction of model.
func (c *Collector) ObservePrediction(model string, class int) {
	c.Predictions.WithLabelValues(model, strconv.Itoa(class)).Inc()
}

// ObserveRequest records the duration of an HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	c.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
