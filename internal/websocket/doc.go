// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

/*
Package websocket provides the live feed of newly persisted events.

The Hub keeps the set of connected clients and fans out one
event_persisted message per event the consumer persists:

	{"type": "event_persisted", "data": {"topic": "...", "event_id": "...", ...}}

Duplicates are never broadcast because the consumer only notifies after a
successful first persist.

Backpressure:

The consumer must never wait on the feed. NotifyPersisted does a non-blocking
send into the hub's broadcast buffer; when the buffer is full the message is
dropped and counted in websocket_messages_dropped_total. A client whose own
send buffer is full is disconnected during broadcast.

Lifecycle:

RunWithContext is a suture-compatible run loop. On cancellation every client
send channel is closed, which makes each write pump send a close frame and
exit.

Usage:

	hub := websocket.NewHub()
	consumer.SetNotifier(hub)
	go hub.RunWithContext(ctx)
	r.Handle("/ws/events", websocket.NewHandler(hub, cfg.API.CORSOrigins))
*/
package websocket
