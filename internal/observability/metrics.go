// Package observability exposes Prometheus metrics for the service.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
)

// Metrics holds all service metrics on a private registry so tests can
// create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	ledgerResolved  *prometheus.CounterVec
	ledgerFailures  prometheus.Counter
	jobsFinished    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "taodividend_cache_hits_total",
			Help: "Total number of dividend cache hits",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "taodividend_cache_misses_total",
			Help: "Total number of dividend cache misses",
		}),
		ledgerResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taodividend_ledger_resolutions_total",
			Help: "Total number of successful ledger resolutions by source",
		}, []string{"source"}),
		ledgerFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "taodividend_ledger_failures_total",
			Help: "Total number of resolutions where live and fallback both failed",
		}),
		jobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taodividend_trade_jobs_finished_total",
			Help: "Total number of trade jobs reaching a terminal state by status and operation",
		}, []string{"status", "operation"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taodividend_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route and status code",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// CacheHit records a dividend cache hit.
func (m *Metrics) CacheHit() { m.cacheHits.Inc() }

// CacheMiss records a dividend cache miss.
func (m *Metrics) CacheMiss() { m.cacheMisses.Inc() }

// LedgerResolved records a successful ledger resolution.
func (m *Metrics) LedgerResolved(source domain.Source) {
	m.ledgerResolved.WithLabelValues(string(source)).Inc()
}

// LedgerFailed records a resolution where both ledger attempts failed.
func (m *Metrics) LedgerFailed() { m.ledgerFailures.Inc() }

// JobFinished records a trade job reaching a terminal state.
func (m *Metrics) JobFinished(status domain.JobStatus, op domain.StakeOp) {
	m.jobsFinished.WithLabelValues(string(status), string(op)).Inc()
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	m.requestDuration.WithLabelValues(route, status).Observe(d.Seconds())
}

// Handler returns the /metrics scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
