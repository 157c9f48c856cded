// Package metrics provides Prometheus metrics collection for HTTP server and
// document pipeline monitoring. It exports metrics for tracking HTTP request
// performance:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// plus counters for the document pipeline itself (documents processed,
// verification levels assigned, result conflicts, duplicate checks).
//
// All metrics are automatically registered with the Prometheus default registry
// during package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	DocumentsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documents_processed_total",
			Help: "Documents accepted for processing, labeled by outcome",
		},
		[]string{"outcome"},
	)

	VerificationLevelTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_level_total",
			Help: "Verification levels assigned to processed documents",
		},
		[]string{"level"},
	)

	ResultConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "result_conflicts_total",
			Help: "Conflicting test statuses detected during deduplication",
		},
	)

	DuplicateChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duplicate_checks_total",
			Help: "Duplicate checks performed, labeled by verdict",
		},
		[]string{"verdict"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(DocumentsProcessedTotal)
	prometheus.MustRegister(VerificationLevelTotal)
	prometheus.MustRegister(ResultConflictsTotal)
	prometheus.MustRegister(DuplicateChecksTotal)
}
