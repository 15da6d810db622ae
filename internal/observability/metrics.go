// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Query metrics
	VestingQueries    *prometheus.CounterVec
	BatchQueries      prometheus.Counter
	BatchQueryDropped prometheus.Counter

	// Claim metrics
	Claims            *prometheus.CounterVec
	ClaimConfirmation prometheus.Histogram

	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec

	// Journal metrics
	ClaimsJournaled   prometheus.Counter
	ObservationErrors prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_vesting_lab"
	}

	return &Metrics{
		VestingQueries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "vesting_queries_total",
			Help:      "Total number of vesting info queries by outcome",
		}, []string{"status"}),
		BatchQueries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "batch_queries_total",
			Help:      "Total number of batch vesting queries",
		}),
		BatchQueryDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "batch_query_dropped_total",
			Help:      "Total number of token addresses dropped from batch results",
		}),
		Claims: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "claim",
			Name:      "claims_total",
			Help:      "Total number of claim attempts by outcome",
		}, []string{"status"}),
		ClaimConfirmation: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "claim",
			Name:      "confirmation_seconds",
			Help:      "Time spent awaiting transaction confirmation",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "Ledger RPC call latency by method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		ClaimsJournaled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "claims_journaled_total",
			Help:      "Total number of confirmed claims written to the journal",
		}),
		ObservationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "observation_errors_total",
			Help:      "Total number of failed vesting observation writes",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordQuery records a vesting query outcome.
func RecordQuery(status string) {
	DefaultMetrics.VestingQueries.WithLabelValues(status).Inc()
}

// RecordBatchQuery records a batch query and how many addresses were dropped.
func RecordBatchQuery(dropped int) {
	DefaultMetrics.BatchQueries.Inc()
	DefaultMetrics.BatchQueryDropped.Add(float64(dropped))
}

// RecordClaim records a claim attempt outcome.
func RecordClaim(status string) {
	DefaultMetrics.Claims.WithLabelValues(status).Inc()
}

// RecordConfirmationWait records time spent awaiting a receipt.
func RecordConfirmationWait(seconds float64) {
	DefaultMetrics.ClaimConfirmation.Observe(seconds)
}

// RecordRPCCall records ledger RPC call latency.
func RecordRPCCall(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordClaimJournaled increments the journaled claims counter.
func RecordClaimJournaled() {
	DefaultMetrics.ClaimsJournaled.Inc()
}

// RecordObservationError increments the failed observation counter.
func RecordObservationError() {
	DefaultMetrics.ObservationErrors.Inc()
}
