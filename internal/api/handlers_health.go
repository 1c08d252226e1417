// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/aggregator/internal/models"
	"github.com/tomtom215/aggregator/internal/pipeline"
)

const readinessTimeout = 2 * time.Second

// HealthLive reports process liveness.
//
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} models.HealthStatus
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).OK(models.HealthStatus{Status: "ok"})
}

// HealthReady reports whether the store is reachable and the consumer is
// running.
//
// @Summary Readiness probe
// @Tags Health
// @Produce json
// @Success 200 {object} models.HealthStatus
// @Failure 503 {object} models.HealthStatus
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	health := models.HealthStatus{
		Status:        "ready",
		Store:         "ok",
		ConsumerState: h.consumer.State().String(),
	}
	status := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		health.Store = "unavailable"
		health.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}
	if h.consumer.State() != pipeline.StateRunning {
		health.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}

	NewResponseWriter(w, r).JSON(status, health)
}
