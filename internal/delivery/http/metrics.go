package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the HTTP layer
type Metrics struct {
	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	cacheSuccess *prometheus.CounterVec
	cacheErrors  *prometheus.CounterVec
	cacheHits    *prometheus.CounterVec
}

// NewMetrics registers all collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		cacheSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_success_total",
			Help: "Total number of successful cache operations",
		}, []string{"method", "path"}),
		cacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Total number of cache errors",
		}, []string{"method", "path", "error_type"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of responses served from cache",
		}, []string{"method", "path"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.cacheSuccess,
		m.cacheErrors,
		m.cacheHits,
	)
	return m
}

// Middleware counts and times every request by its route pattern
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := statusOf(c, err)
		path := c.Route().Path
		if err != nil && status == fiber.StatusNotFound {
			path = "unmatched"
		}
		m.requests.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) recordCacheSuccess(method, path string) {
	m.cacheSuccess.WithLabelValues(method, path).Inc()
}

func (m *Metrics) recordCacheError(method, path, errorType string) {
	m.cacheErrors.WithLabelValues(method, path, errorType).Inc()
}

func (m *Metrics) recordCacheHit(method, path string) {
	m.cacheHits.WithLabelValues(method, path).Inc()
}
