// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

/*
Package eventprocessor provides the NATS JetStream admission path.

Producers that already speak NATS can publish event JSON objects to the
configured subject instead of calling POST /publish. The ingress consumes the
stream through a durable Watermill subscriber and admits each event into the
same bounded queue the HTTP gateway uses, so deduplication and persistence
are identical for both sources.

Components:

  - EmbeddedServer: in-process nats-server with JetStream (NATS_EMBEDDED=true)
  - StreamManager: creates or updates the stream at startup
  - Subscriber: durable, queue-grouped Watermill JetStream subscriber
  - Ingress: Watermill router handler that decodes, validates and admits
  - Publisher: Watermill publisher with circuit breaker, used by the simulator

Acknowledgement Rules:

	invalid JSON or invalid event   ack and drop (redelivery cannot fix it)
	queue full                      short in-process retry, then nack
	queue closed (shutdown)         nack, redelivered after restart
	admitted                        ack

A nacked message is redelivered by JetStream up to NATS_MAX_DELIVER times.
This is the backpressure path for NATS producers.

Deduplication:

The publisher sets Nats-Msg-Id to topic/event_id, so JetStream drops repeat
publishes inside its duplicate window. This only reduces load; the dedup
store remains the source of truth for idempotency.
*/
package eventprocessor
