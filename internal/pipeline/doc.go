// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

/*
Package pipeline implements the admission queue, the single-writer consumer
loop and the in-process counters of the ingestion pipeline.

# Flow

	gateway / NATS ingress -> Queue.Enqueue -> Consumer.Run -> Store.Claim -> Store.Persist

Producers call [Queue.Enqueue], which never blocks: a full queue returns
[ErrQueueFull] and the caller is expected to retry later. Exactly one
[Consumer] drains the queue. For each event it claims the identity
(topic, event_id) in the [Store]; a successful claim is followed by Persist,
a failed claim means the event is a duplicate.

# Shutdown

Cancelling the context passed to [Consumer.Run] (or calling
[Consumer.Close]) moves the consumer to DRAINING. The queue is closed for
admission, already admitted events are processed until the queue is empty or
the drain timeout expires, and the store is closed. STOPPED is terminal.

# Counters

[Counters] holds received, unique_processed and duplicate_dropped. Producers
own received through [Counters.RecordReceived]; the consumer owns the other
two. [Counters.Snapshot] is safe to call from any goroutine.
*/
package pipeline
