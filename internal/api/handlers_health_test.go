// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/tomtom215/aggregator/internal/models"
	"github.com/tomtom215/aggregator/internal/pipeline"
)

func TestHealthLive(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, testAPIConfig(), 1, pipeline.StateStopped)
	rec := ts.do(t, http.MethodGet, "/health/live", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 regardless of consumer state", rec.Code)
	}
}

func TestHealthReady(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		state      pipeline.State
		pingErr    error
		wantStatus int
		wantStore  string
	}{
		{"running", pipeline.StateRunning, nil, http.StatusOK, "ok"},
		{"store down", pipeline.StateRunning, errors.New("closed"), http.StatusServiceUnavailable, "unavailable"},
		{"consumer idle", pipeline.StateIdle, nil, http.StatusServiceUnavailable, "ok"},
		{"draining", pipeline.StateDraining, nil, http.StatusServiceUnavailable, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ts := newTestServer(t, testAPIConfig(), 1, tt.state)
			ts.store.pingErr = tt.pingErr

			rec := ts.do(t, http.MethodGet, "/health/ready", "", nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var health models.HealthStatus
			decode(t, rec, &health)
			if health.Store != tt.wantStore {
				t.Errorf("store = %q, want %q", health.Store, tt.wantStore)
			}
			if health.ConsumerState != tt.state.String() {
				t.Errorf("consumer_state = %q, want %q", health.ConsumerState, tt.state.String())
			}
		})
	}
}
