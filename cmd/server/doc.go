// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

// Package main is the entry point for the aggregator server.
//
// The aggregator accepts events from at-least-once producers over HTTP (and
// optionally NATS JetStream), deduplicates them by (topic, event_id) and
// persists each logical event exactly once.
//
// # Application Architecture
//
// Components are built in this order:
//
//  1. Configuration: Koanf v2 from defaults, optional config.yaml and the environment
//  2. Logging: zerolog with JSON or console output
//  3. Store: DuckDB (DB_BACKEND=duckdb) or BadgerDB (DB_BACKEND=badger)
//  4. Pipeline: bounded queue, counters and the single consumer
//  5. Live feed: websocket hub notified of every persisted event
//  6. HTTP gateway: chi router with middleware and Swagger docs
//  7. NATS (optional): embedded server, stream and durable ingress
//  8. Supervisor tree: suture v4 with data, messaging and api layers
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The HTTP server stops taking
// requests, the consumer closes the queue, drains what was admitted and
// closes the store, and any services that did not stop in time are logged.
//
// # Example Usage
//
//	export DB_PATH=data/aggregator.duckdb
//	export QUEUE_MAX_SIZE=10000
//	./aggregator
//
// With NATS ingress on an embedded server:
//
//	export NATS_ENABLED=true
//	export NATS_STORE_DIR=data/jetstream
//	./aggregator
package main
