// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto and
exposed at /metrics by the API router:

	curl http://localhost:8080/metrics

# Available Metrics

Pipeline Metrics:
  - aggregator_events_received_total: Events admitted (counter)
    Labels: source
  - aggregator_admission_rejected_total: Events refused at admission (counter)
    Labels: source, reason
  - aggregator_events_processed_total: Consumer outcomes (counter)
    Labels: outcome (unique, duplicate, failed)
  - aggregator_failures_total: Consumer failures (counter)
    Labels: stage (claim, persist, panic)
  - aggregator_claimed_unpersisted_total: Claims whose record was never written
  - aggregator_queue_depth, aggregator_queue_capacity: Queue gauges
  - aggregator_consumer_state: 0=idle, 1=running, 2=draining, 3=stopped

Store Metrics:
  - store_operation_duration_seconds: Labels operation, backend
  - store_operation_errors_total: Labels operation, backend, error_type

HTTP Metrics:
  - api_requests_total: Labels method, endpoint, status_code
  - api_request_duration_seconds: Labels method, endpoint
  - api_active_requests: In-flight requests (gauge)
  - api_rate_limit_hits_total: Labels endpoint

The in-process counters served by /stats live in the pipeline package and are
reset by the admin reset endpoint. Prometheus counters here are never reset.

# Usage

	start := time.Now()
	claimed, err := store.Claim(ctx, topic, eventID)
	metrics.RecordStoreOperation("claim", "duckdb", time.Since(start), err)
*/
package metrics
