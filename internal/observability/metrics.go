// Package observability provides Prometheus metrics for the application.
package observability

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"vidfetch/internal/consts"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Task metrics
	TasksStarted    *prometheus.CounterVec
	TasksFinished   *prometheus.CounterVec
	TasksInProgress *prometheus.GaugeVec
	TaskDuration    *prometheus.HistogramVec
	Aggregate       prometheus.Gauge

	// Downloader metrics
	DownloadsTotal *prometheus.CounterVec

	// Dependency metrics
	DependencyInstalls *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Proxy metrics
	ProxyRequestsTotal *prometheus.CounterVec
	ProxyFailures      *prometheus.CounterVec
	ProxiesAvailable   prometheus.Gauge

	// System metrics
	GoRoutines prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates all application metrics and registers them with reg.
// A nil reg means the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	metrics := &Metrics{
		TasksStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: consts.MetricsNamespace,
			Subsystem: "tasks",
			Name:      "started_total",
			Help:      "Total number of task attempts started",
		}, []string{"task", "resume"}),
		TasksFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: consts.MetricsNamespace,
			Subsystem: "tasks",
			Name:      "finished_total",
			Help:      "Total number of task attempts finished by outcome",
		}, []string{"task", "outcome"}),
		TasksInProgress: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: consts.MetricsNamespace,
			Subsystem: "tasks",
			Name:      "in_progress",
			Help:      "Number of task attempts currently running",
		}, []string{"task"}),
		TaskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: consts.MetricsNamespace,
			Subsystem: "tasks",
			Name:      "duration_seconds",
			Help:      "Histogram of task attempt duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"task"}),
		Aggregate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: consts.MetricsNamespace,
			Subsystem: "session",
			Name:      "aggregate_progress",
			Help:      "Mean progress over all tracked tasks",
		}),

		DownloadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: consts.MetricsNamespace,
			Subsystem: "downloader",
			Name:      "downloads_total",
			Help:      "Total number of download attempts by task and outcome",
		}, []string{"task", "outcome"}),

		DependencyInstalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: consts.MetricsNamespace,
			Subsystem: "depmanager",
			Name:      "installs_total",
			Help:      "Total number of binary installs by result",
		}, []string{"binary", "result"}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: consts.MetricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: consts.MetricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		HTTPResponseSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: consts.MetricsNamespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "Histogram of HTTP response sizes in bytes",
			Buckets:   []float64{100, 1000, 10000, 100000, 1000000},
		}, []string{"method", "path"}),

		ProxyRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: consts.MetricsNamespace,
			Subsystem: "proxy",
			Name:      "requests_total",
			Help:      "Total number of requests made through proxies",
		}, []string{"proxy"}),
		ProxyFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: consts.MetricsNamespace,
			Subsystem: "proxy",
			Name:      "failures_total",
			Help:      "Total number of proxy failures",
		}, []string{"proxy"}),
		ProxiesAvailable: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: consts.MetricsNamespace,
			Subsystem: "proxy",
			Name:      "available",
			Help:      "Number of currently available proxies",
		}),

		GoRoutines: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: consts.MetricsNamespace,
			Subsystem: "system",
			Name:      "goroutines",
			Help:      "Number of goroutines",
		}),
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		metrics.gatherer = g
	} else {
		metrics.gatherer = prometheus.DefaultGatherer
	}

	return metrics
}

// Handler returns the Prometheus HTTP handler for the registry the metrics live in.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// TaskTimer marks a task attempt as running and returns a function that
// records its duration and outcome.
func (m *Metrics) TaskTimer(task string, resume bool) func(outcome string) {
	start := time.Now()

	m.TasksStarted.WithLabelValues(task, strconv.FormatBool(resume)).Inc()
	m.TasksInProgress.WithLabelValues(task).Inc()

	return func(outcome string) {
		m.TasksInProgress.WithLabelValues(task).Dec()
		m.TasksFinished.WithLabelValues(task, outcome).Inc()
		m.TaskDuration.WithLabelValues(task).Observe(time.Since(start).Seconds())
	}
}

// SetAggregate sets the aggregate progress gauge.
func (m *Metrics) SetAggregate(v float64) {
	m.Aggregate.Set(v)
}

// RecordDownload records the outcome of one downloader call.
func (m *Metrics) RecordDownload(task, outcome string) {
	m.DownloadsTotal.WithLabelValues(task, outcome).Inc()
}

// RecordInstall records a dependency install attempt.
func (m *Metrics) RecordInstall(binary, result string) {
	m.DependencyInstalls.WithLabelValues(binary, result).Inc()
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration, size int) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
}

// RecordProxyRequest records a proxy request.
func (m *Metrics) RecordProxyRequest(proxy string) {
	m.ProxyRequestsTotal.WithLabelValues(proxy).Inc()
}

// RecordProxyFailure records a proxy failure.
func (m *Metrics) RecordProxyFailure(proxy string) {
	m.ProxyFailures.WithLabelValues(proxy).Inc()
}

// SetProxiesAvailable sets the number of available proxies.
func (m *Metrics) SetProxiesAvailable(count int) {
	m.ProxiesAvailable.Set(float64(count))
}

// SampleGoroutines sets the goroutine gauge to the current count.
func (m *Metrics) SampleGoroutines() {
	m.GoRoutines.Set(float64(runtime.NumGoroutine()))
}
