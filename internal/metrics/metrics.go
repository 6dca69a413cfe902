// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

// Package metrics defines the Prometheus collectors for rulemine: mining runs,
// ingestion, rule-set persistence, event publishing and the HTTP API.
// Collectors are registered on the default registry at package init and
// exposed by the API's /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/rulemine/internal/mining"
)

var (
	// Mining Metrics
	MiningRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulemine_mining_runs_total",
			Help: "Total number of mining runs by algorithm and outcome",
		},
		[]string{"algorithm", "status"}, // status: "success" or the error code
	)

	MiningDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rulemine_mining_duration_seconds",
			Help:    "Duration of successful mining runs in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"algorithm"},
	)

	MiningFrequentItemsets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rulemine_mining_frequent_itemsets",
			Help: "Frequent itemsets found by the most recent successful run",
		},
	)

	MiningRules = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rulemine_mining_rules",
			Help: "Rules kept by the most recent successful run",
		},
	)

	TransactionsAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rulemine_transactions_appended_total",
			Help: "Total number of transactions appended to mining stores",
		},
	)

	// Ingestion Metrics
	IngestRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulemine_ingest_rows_total",
			Help: "Total number of source rows read by format and outcome",
		},
		[]string{"format", "result"}, // result: "loaded", "skipped", "failed"
	)

	// Repository Metrics
	RepositoryOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rulemine_repository_operation_duration_seconds",
			Help:    "Duration of rule-set repository operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RepositoryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulemine_repository_errors_total",
			Help: "Total number of failed rule-set repository operations",
		},
		[]string{"operation"},
	)

	// Publishing Metrics
	PublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulemine_publish_total",
			Help: "Total number of rule-set event publish attempts by result",
		},
		[]string{"result"}, // "success", "error", "rejected", "throttled"
	)

	EventsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulemine_events_consumed_total",
			Help: "Total number of rule-set events consumed by result",
		},
		[]string{"result"}, // "handled", "failed", "malformed"
	)

	OutboxEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulemine_outbox_events_total",
			Help: "Total number of outbox events by result",
		},
		[]string{"result"}, // "queued", "delivered", "failed", "dropped"
	)

	OutboxPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rulemine_outbox_pending",
			Help: "Events waiting in the outbox at the last retry pass",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rulemine_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulemine_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rulemine_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rulemine_api_active_requests",
			Help: "Number of API requests currently being processed",
		},
	)

	RecommendationsServed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rulemine_recommendations_served",
			Help:    "Number of items recommended per request",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)
)

// MiningObserver records mining runs. It implements mining.Observer.
type MiningObserver struct{}

// ObserveRun records the outcome of a mining run.
//
//nolint:gocritic // hugeParam: signature fixed by mining.Observer
func (MiningObserver) ObserveRun(algorithm mining.Algorithm, stats mining.MiningStats, err error) {
	alg := algorithm.String()
	if err != nil {
		status := string(mining.CodeOf(err))
		if status == "" {
			status = "error"
		}
		MiningRunsTotal.WithLabelValues(alg, status).Inc()
		return
	}

	MiningRunsTotal.WithLabelValues(alg, "success").Inc()
	MiningDuration.WithLabelValues(alg).Observe(stats.Duration.Seconds())
	MiningFrequentItemsets.Set(float64(stats.FrequentItemsetCount))
	MiningRules.Set(float64(stats.RuleCount))
}

// ObserveAppend records appended transactions.
func (MiningObserver) ObserveAppend(n int) {
	TransactionsAppended.Add(float64(n))
}

// RecordIngestRows records source rows by outcome.
func RecordIngestRows(format, result string, n int) {
	if n <= 0 {
		return
	}
	IngestRowsTotal.WithLabelValues(format, result).Add(float64(n))
}

// RecordRepositoryOperation records a repository operation's duration and failure.
func RecordRepositoryOperation(operation string, duration time.Duration, err error) {
	RepositoryOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		RepositoryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordPublish records a publish attempt result.
func RecordPublish(result string) {
	PublishTotal.WithLabelValues(result).Inc()
}

// RecordEventConsumed records the outcome of handling one consumed event.
func RecordEventConsumed(result string) {
	EventsConsumedTotal.WithLabelValues(result).Inc()
}

// RecordOutboxEvent records an outbox transition.
func RecordOutboxEvent(result string) {
	OutboxEventsTotal.WithLabelValues(result).Inc()
}

// SetOutboxPending records the outbox backlog.
func SetOutboxPending(n int) {
	OutboxPending.Set(float64(n))
}

// SetCircuitBreakerState records a breaker's state (0=closed, 1=half-open, 2=open).
func SetCircuitBreakerState(name string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordAPIRequest records an API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRecommendations records the size of one recommendation response.
func RecordRecommendations(n int) {
	RecommendationsServed.Observe(float64(n))
}
