// Package metrics exposes the Prometheus collectors for the results API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "tally"
	subsystem = "api"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"endpoint", "method"})

	validationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "validation_failures_total",
		Help:      "Mutations rejected by payload validation.",
	})

	preconditionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "precondition_failures_total",
		Help:      "Writes rejected by the concurrency admission check.",
	})

	conditionalHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "conditional_hits_total",
		Help:      "Conditional reads answered with Not Modified.",
	})

	resultCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "results_stored",
		Help:      "Number of results currently stored.",
	})
)

// RecordHTTPRequest counts one handled request.
func RecordHTTPRequest(endpoint, method, status string) {
	httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration observes one request latency in milliseconds.
func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	httpDuration.WithLabelValues(endpoint, method).Observe(ms)
}

// RecordValidationFailure counts one rejected mutation payload.
func RecordValidationFailure() {
	validationFailures.Inc()
}

// RecordPreconditionFailure counts one stale or missing write token.
func RecordPreconditionFailure() {
	preconditionFailures.Inc()
}

// RecordConditionalHit counts one 304 short-circuit.
func RecordConditionalHit() {
	conditionalHits.Inc()
}

// SetResultCount updates the stored-results gauge.
func SetResultCount(n int) {
	resultCount.Set(float64(n))
}
