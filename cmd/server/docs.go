// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

// @title Aggregator API
// @version 1.0
// @description Idempotent event ingestion pipeline.
// @description
// @description Producers publish single events or batches to /publish. Each
// @description logical event, identified by (topic, event_id), is persisted
// @description exactly once no matter how often it is delivered.
// @description
// @description ## Error Responses
// @description
// @description ```json
// @description {
// @description   "success": false,
// @description   "error": {"code": "VALIDATION_ERROR", "message": "event_id is required"},
// @description   "meta": {"request_id": "...", "timestamp": "2026-01-01T00:00:00Z"}
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/aggregator/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @BasePath /
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Admin token, sent as "Bearer <token>".
//
// @tag.name Ingestion
// @tag.description Event admission
//
// @tag.name Query
// @tag.description Persisted events and counters
//
// @tag.name Health
// @tag.description Liveness and readiness probes
//
// @tag.name Admin
// @tag.description Maintenance operations
package main
