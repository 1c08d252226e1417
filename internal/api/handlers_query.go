// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package api

import (
	"net/http"
	"strconv"

	"github.com/tomtom215/aggregator/internal/models"
)

// Events returns persisted events ordered by processed_at.
//
// @Summary List persisted events
// @Description Returns persisted unique events in processing order, optionally filtered by topic
// @Tags Query
// @Produce json
// @Param topic query string false "Exact topic filter"
// @Param limit query int false "Maximum events to return (default 1000, capped by server)"
// @Success 200 {object} models.EventsResponse
// @Failure 400 {object} ErrorResponse "Invalid limit"
// @Failure 500 {object} ErrorResponse "Storage error"
// @Router /events [get]
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit, ok := h.parseLimit(r.URL.Query().Get("limit"))
	if !ok {
		rw.BadRequest("limit must be a positive integer")
		return
	}

	events, err := h.store.Query(r.Context(), r.URL.Query().Get("topic"), limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if events == nil {
		events = []models.PersistedEvent{}
	}

	rw.OK(models.EventsResponse{Count: len(events), Events: events})
}

// parseLimit applies the default and the cap.
func (h *Handler) parseLimit(value string) (int, bool) {
	if value == "" {
		return h.cfg.EventsDefault, true
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit <= 0 {
		return 0, false
	}
	if limit > h.cfg.EventsMax {
		limit = h.cfg.EventsMax
	}
	return limit, true
}

// Stats returns the pipeline counters.
//
// @Summary Pipeline statistics
// @Description Returns received, unique and duplicate counters, known topics, uptime, queue depth and consumer state
// @Tags Query
// @Produce json
// @Success 200 {object} models.Stats
// @Failure 500 {object} ErrorResponse "Storage error"
// @Router /stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	topics, err := h.store.ListTopics(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if topics == nil {
		topics = []string{}
	}

	snap := h.counters.Snapshot()
	rw.OK(models.Stats{
		Received:         snap.Received,
		UniqueProcessed:  snap.UniqueProcessed,
		DuplicateDropped: snap.DuplicateDropped,
		Topics:           topics,
		UptimeSeconds:    snap.UptimeSeconds,
		QueueDepth:       h.queue.Len(),
		QueueCapacity:    h.queue.Cap(),
		ConsumerState:    h.consumer.State().String(),
	})
}
