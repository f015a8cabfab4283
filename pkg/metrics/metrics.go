// Package metrics exposes Prometheus metrics for tool calls, the browser
// lifecycle, and the HTTP transport.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "playwright_mcp"

// Metrics holds all Prometheus metrics. Each instance has its own registry.
type Metrics struct {
	registry *prometheus.Registry

	// Tool metrics
	ToolCalls    *prometheus.CounterVec
	ToolErrors   *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec

	// Browser metrics
	BrowserLaunches      prometheus.Counter
	BrowserRestarts      prometheus.Counter
	BrowserActive        prometheus.Gauge
	BrowserLaunchSeconds prometheus.Histogram

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates a metrics collector with Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ToolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tool calls",
			},
			[]string{"tool", "status"},
		),
		ToolErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_errors_total",
				Help:      "Total number of failed tool calls by error type",
			},
			[]string{"tool", "error_type"},
		),
		ToolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_duration_seconds",
				Help:      "Tool call duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),

		BrowserLaunches: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "browser_launches_total",
				Help:      "Total number of browser launches",
			},
		),
		BrowserRestarts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "browser_restarts_total",
				Help:      "Total number of crash restarts",
			},
		),
		BrowserActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "browser_active",
				Help:      "1 while a browser is running",
			},
		),
		BrowserLaunchSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "browser_launch_duration_seconds",
				Help:      "Browser launch duration in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2, 5, 10, 30},
			},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
	}
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordToolCall records a tool call. errorType is empty on success.
func (m *Metrics) RecordToolCall(tool string, success bool, errorType string, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
		m.ToolErrors.WithLabelValues(tool, errorType).Inc()
	}
	m.ToolCalls.WithLabelValues(tool, status).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// BrowserLaunched records a successful launch.
func (m *Metrics) BrowserLaunched(duration time.Duration) {
	m.BrowserLaunches.Inc()
	m.BrowserLaunchSeconds.Observe(duration.Seconds())
	m.BrowserActive.Set(1)
}

// BrowserRestarted records a crash restart.
func (m *Metrics) BrowserRestarted() {
	m.BrowserRestarts.Inc()
}

// BrowserClosed records a browser shutdown.
func (m *Metrics) BrowserClosed() {
	m.BrowserActive.Set(0)
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware creates a Gin middleware for HTTP request metrics. Requests
// are labelled by route pattern so path parameters do not explode
// cardinality.
func Middleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
