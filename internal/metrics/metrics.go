// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Decision Metrics
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_decisions_total",
			Help: "Total number of access decisions by outcome",
		},
		[]string{"outcome"}, // GRANTED, CHALLENGE, BLOCKED
	)

	DecisionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gatekeeper_decision_duration_seconds",
			Help:    "End-to-end latency of the decision pipeline in seconds",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"outcome"},
	)

	DecisionRiskScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gatekeeper_decision_risk_score",
			Help:    "Distribution of aggregated risk scores",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	DuplicateAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_duplicate_attempts_total",
			Help: "Total number of resubmitted attempt IDs by result",
		},
		[]string{"result"}, // replayed, conflict
	)

	PillarDegradations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_pillar_degradations_total",
			Help: "Total number of signal evaluations that degraded",
		},
		[]string{"pillar"},
	)

	ImpossibleTravelTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatekeeper_impossible_travel_total",
			Help: "Total number of attempts flagged as physically impossible travel",
		},
	)

	// Trust Registry Metrics
	RegistryBaselines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gatekeeper_registry_baselines",
			Help: "Current number of stored trust baselines",
		},
	)

	RegistryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_registry_errors_total",
			Help: "Total number of trust registry failures",
		},
		[]string{"operation"}, // read, update
	)

	// Audit Metrics
	AuditWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_audit_writes_total",
			Help: "Total number of audit write attempts by result",
		},
		[]string{"result"}, // inserted, duplicate, failed
	)

	AuditRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatekeeper_audit_retries_total",
			Help: "Total number of audit write retries",
		},
	)

	AuditDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatekeeper_audit_dropped_total",
			Help: "Total number of audit entries dropped because the write buffer was full",
		},
	)

	AuditQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gatekeeper_audit_queue_depth",
			Help: "Current number of audit entries waiting to be persisted",
		},
	)

	// Event Dispatcher Metrics
	DispatchSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gatekeeper_dispatch_subscribers",
			Help: "Current number of live decision subscribers",
		},
	)

	DispatchDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatekeeper_dispatch_delivered_total",
			Help: "Total number of decision events delivered to subscribers",
		},
	)

	DispatchDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatekeeper_dispatch_dropped_total",
			Help: "Total number of decision events dropped for slow subscribers",
		},
	)

	BusPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_bus_published_total",
			Help: "Total number of decision events forwarded to the message bus",
		},
		[]string{"result"}, // success, failure
	)

	// Geolocation Metrics
	GeoIPLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_geoip_lookups_total",
			Help: "Total number of geolocation lookups by provider and result",
		},
		[]string{"provider", "result"}, // result: hit, miss, error, private
	)

	GeoIPLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gatekeeper_geoip_lookup_duration_seconds",
			Help:    "Duration of geolocation provider lookups in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	GeoIPCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatekeeper_geoip_cache_hits_total",
			Help: "Total number of geolocation cache hits",
		},
	)

	GeoIPCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatekeeper_geoip_cache_misses_total",
			Help: "Total number of geolocation cache misses",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordDecision records the outcome, score and latency of one decision.
func RecordDecision(outcome string, score int, duration time.Duration) {
	DecisionsTotal.WithLabelValues(outcome).Inc()
	DecisionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	DecisionRiskScore.Observe(float64(score))
}

// RecordDegradation counts a degraded pillar evaluation.
func RecordDegradation(pillar string) {
	PillarDegradations.WithLabelValues(pillar).Inc()
}

// RecordAuditWrite records the result of a single audit persistence attempt.
func RecordAuditWrite(inserted bool, err error) {
	switch {
	case err != nil:
		AuditWrites.WithLabelValues("failed").Inc()
	case inserted:
		AuditWrites.WithLabelValues("inserted").Inc()
	default:
		AuditWrites.WithLabelValues("duplicate").Inc()
	}
}

// RecordBusPublish records a bus forwarding attempt.
func RecordBusPublish(err error) {
	if err != nil {
		BusPublished.WithLabelValues("failure").Inc()
		return
	}
	BusPublished.WithLabelValues("success").Inc()
}

// RecordGeoIPLookup records a provider lookup and its duration.
func RecordGeoIPLookup(provider, result string, duration time.Duration) {
	GeoIPLookups.WithLabelValues(provider, result).Inc()
	if duration > 0 {
		GeoIPLookupDuration.WithLabelValues(provider).Observe(duration.Seconds())
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
