// Package observability provides Prometheus metrics for the application.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"subgrab/internal/consts"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Search metrics
	SearchRequestsTotal *prometheus.CounterVec
	SearchResultsTotal  *prometheus.CounterVec
	ScoreLookupsTotal   *prometheus.CounterVec

	// Resolver metrics
	ResolutionsTotal *prometheus.CounterVec

	// Downloader metrics
	DownloadsTotal        *prometheus.CounterVec
	DownloadAttemptsTotal prometheus.Counter
	DownloadBytes         prometheus.Counter
	DownloadDuration      prometheus.Histogram

	// Proxy metrics
	ProxyRequestsTotal *prometheus.CounterVec
	ProxyFailures      *prometheus.CounterVec
	ProxiesAvailable   prometheus.Gauge

	// Run metrics
	RunDuration prometheus.Gauge
}

// New creates all application metrics on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	factory := promauto.With(reg)

	metrics := &Metrics{
		registry: reg,

		// Search metrics
		SearchRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: consts.AppName,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total number of search index page requests",
		}, []string{"subreddit", "status"}),
		SearchResultsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: consts.AppName,
			Subsystem: "search",
			Name:      "results_total",
			Help:      "Total number of submissions returned by the search index",
		}, []string{"subreddit"}),
		ScoreLookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: consts.AppName,
			Subsystem: "search",
			Name:      "score_lookups_total",
			Help:      "Total number of authenticated score lookup batches",
		}, []string{"status"}),

		// Resolver metrics
		ResolutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: consts.AppName,
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Total number of link resolutions by host and outcome",
		}, []string{"host", "status"}),

		// Downloader metrics
		DownloadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: consts.AppName,
			Subsystem: "downloader",
			Name:      "downloads_total",
			Help:      "Total number of download tasks by outcome",
		}, []string{"status"}),
		DownloadAttemptsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: consts.AppName,
			Subsystem: "downloader",
			Name:      "attempts_total",
			Help:      "Total number of HTTP download attempts including retries",
		}),
		DownloadBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: consts.AppName,
			Subsystem: "downloader",
			Name:      "bytes_total",
			Help:      "Total bytes written to disk",
		}),
		DownloadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: consts.AppName,
			Subsystem: "downloader",
			Name:      "duration_seconds",
			Help:      "Histogram of single file download duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),

		// Proxy metrics
		ProxyRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: consts.AppName,
			Subsystem: "proxy",
			Name:      "requests_total",
			Help:      "Total number of requests made through proxies",
		}, []string{"proxy"}),
		ProxyFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: consts.AppName,
			Subsystem: "proxy",
			Name:      "failures_total",
			Help:      "Total number of proxy failures",
		}, []string{"proxy"}),
		ProxiesAvailable: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: consts.AppName,
			Subsystem: "proxy",
			Name:      "available",
			Help:      "Number of currently available proxies",
		}),

		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: consts.AppName,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Wall time of the last run in seconds",
		}),
	}

	return metrics
}

// Handler returns the Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes all metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	err := prometheus.WriteToTextfile(path, m.registry)
	if err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	return nil
}

// RunTimer returns a function recording the run duration.
func (m *Metrics) RunTimer() func() {
	start := time.Now()

	return func() {
		m.RunDuration.Set(time.Since(start).Seconds())
	}
}

// DownloadTimer returns a function recording one file download duration.
func (m *Metrics) DownloadTimer() func() {
	start := time.Now()

	return func() {
		m.DownloadDuration.Observe(time.Since(start).Seconds())
	}
}

// RecordSearchRequest records one search index page request.
func (m *Metrics) RecordSearchRequest(subreddit, status string) {
	m.SearchRequestsTotal.WithLabelValues(subreddit, status).Inc()
}

// RecordSearchResults adds to the number of results for a subreddit.
func (m *Metrics) RecordSearchResults(subreddit string, n int) {
	m.SearchResultsTotal.WithLabelValues(subreddit).Add(float64(n))
}

// RecordScoreLookup records one score lookup batch.
func (m *Metrics) RecordScoreLookup(status string) {
	m.ScoreLookupsTotal.WithLabelValues(status).Inc()
}

// RecordResolution records a link resolution outcome.
func (m *Metrics) RecordResolution(host, status string) {
	m.ResolutionsTotal.WithLabelValues(host, status).Inc()
}

// RecordDownload records a task outcome.
func (m *Metrics) RecordDownload(status string) {
	m.DownloadsTotal.WithLabelValues(status).Inc()
}

// RecordDownloadAttempt records one HTTP attempt.
func (m *Metrics) RecordDownloadAttempt() {
	m.DownloadAttemptsTotal.Inc()
}

// RecordDownloadBytes adds written bytes.
func (m *Metrics) RecordDownloadBytes(n int64) {
	m.DownloadBytes.Add(float64(n))
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
