// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline Metrics
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_events_received_total",
			Help: "Total number of events admitted to the queue",
		},
		[]string{"source"}, // "http", "nats"
	)

	AdmissionRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_admission_rejected_total",
			Help: "Total number of events refused at admission",
		},
		[]string{"source", "reason"}, // reason: "queue_full", "queue_closed", "invalid"
	)

	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_events_processed_total",
			Help: "Total number of events handled by the consumer",
		},
		[]string{"outcome"}, // "unique", "duplicate", "failed"
	)

	PipelineFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_failures_total",
			Help: "Total number of consumer failures by stage",
		},
		[]string{"stage"}, // "claim", "persist", "panic"
	)

	ClaimedUnpersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregator_claimed_unpersisted_total",
			Help: "Events whose identity was claimed but whose record could not be stored",
		},
	)

	PersistRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregator_persist_retries_total",
			Help: "Total number of persist retry attempts",
		},
	)

	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aggregator_processing_duration_seconds",
			Help:    "Time from dequeue to outcome for a single event",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aggregator_queue_depth",
			Help: "Current number of events waiting in the queue",
		},
	)

	QueueCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aggregator_queue_capacity",
			Help: "Configured queue capacity",
		},
	)

	ConsumerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aggregator_consumer_state",
			Help: "Consumer state (0=idle, 1=running, 2=draining, 3=stopped)",
		},
	)

	// Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of dedup store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "backend"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operation_errors_total",
			Help: "Total number of dedup store errors",
		},
		[]string{"operation", "backend", "error_type"},
	)

	// API Endpoint Metrics
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
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Live Feed Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Feed messages dropped because the hub or a client buffer was full",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
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

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// NATS Ingress Metrics
	NATSMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_published_total",
			Help: "Total number of events published to JetStream",
		},
	)

	NATSIngressMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_ingress_messages_total",
			Help: "Total number of JetStream messages handled by the ingress",
		},
		[]string{"outcome"}, // "accepted", "invalid", "nacked"
	)

	// Application Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// Consumer state gauge values.
const (
	StateIdle     = 0
	StateRunning  = 1
	StateDraining = 2
	StateStopped  = 3
)

// RecordStoreOperation records a dedup store call.
func RecordStoreOperation(operation, backend string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		StoreOperationErrors.WithLabelValues(operation, backend, errorType).Inc()
	}
}

// RecordReceived counts an event admitted to the queue.
func RecordReceived(source string) {
	EventsReceived.WithLabelValues(source).Inc()
}

// RecordAdmissionRejected counts an event refused before it reached the queue.
func RecordAdmissionRejected(source, reason string) {
	AdmissionRejected.WithLabelValues(source, reason).Inc()
}

// RecordProcessed counts a consumer outcome and its latency.
func RecordProcessed(outcome string, duration time.Duration) {
	EventsProcessed.WithLabelValues(outcome).Inc()
	ProcessingDuration.Observe(duration.Seconds())
}

// RecordFailure counts a consumer failure at the given stage.
func RecordFailure(stage string) {
	PipelineFailures.WithLabelValues(stage).Inc()
}

// RecordClaimedUnpersisted counts an event lost after a successful claim.
func RecordClaimedUnpersisted() {
	ClaimedUnpersisted.Inc()
}

// RecordPersistRetry counts one persist retry.
func RecordPersistRetry() {
	PersistRetries.Inc()
}

// SetQueueDepth updates the queue depth gauge.
func SetQueueDepth(depth int) {
	QueueDepth.Set(float64(depth))
}

// SetQueueCapacity updates the queue capacity gauge.
func SetQueueCapacity(capacity int) {
	QueueCapacity.Set(float64(capacity))
}

// SetConsumerState updates the consumer state gauge.
func SetConsumerState(state int) {
	ConsumerState.Set(float64(state))
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
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

// RecordRateLimitHit counts a rate limited request.
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordBreakerTransition records a circuit breaker state change.
// States are "closed", "half-open" and "open".
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

// RecordBreakerRequest counts a call through a circuit breaker.
func RecordBreakerRequest(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// RecordNATSPublish counts a published event.
func RecordNATSPublish() {
	NATSMessagesPublished.Inc()
}

// RecordIngressMessage counts a JetStream message by outcome.
func RecordIngressMessage(outcome string) {
	NATSIngressMessages.WithLabelValues(outcome).Inc()
}
