// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

/*
Package api provides the HTTP ingestion gateway.

The gateway validates events, admits them into the pipeline queue, and
exposes the query, stats, health, metrics and live feed surfaces. It never
talks to storage on the publish path: publish returns as soon as each event
is admitted or rejected.

Routes:

	POST /publish             one event object or a non-empty array
	POST /api/v1/publish      alias of /publish
	GET  /events              persisted events, ?topic=&limit=
	GET  /stats               counters, topics, queue and consumer state
	GET  /health/live         process liveness
	GET  /health/ready        store reachable and consumer running
	GET  /metrics             Prometheus exposition
	POST /admin/reset         clear storage and counters (bearer token)
	GET  /ws/events           live feed of newly persisted events
	GET  /swagger/*           OpenAPI document and UI

Error Responses:

Every error uses the same envelope:

	{"success": false,
	 "error": {"code": "BAD_REQUEST", "message": "...", "request_id": "..."},
	 "meta": {"timestamp": "...", "request_id": "..."}}

Backpressure:

When the queue is full or closed mid-batch, publish returns 503 with
Retry-After and rejected_from, the index of the first item not admitted.
Items before it that passed validation were admitted and will be processed.
*/
package api
