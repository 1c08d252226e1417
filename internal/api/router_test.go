// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package api

import (
	"net/http"
	"testing"

	_ "github.com/tomtom215/aggregator/docs" // registers the swagger document

	"github.com/tomtom215/aggregator/internal/pipeline"
)

func TestRouter_SwaggerDoc(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, testAPIConfig(), 1, pipeline.StateRunning)
	rec := ts.do(t, http.MethodGet, "/swagger/doc.json", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc struct {
		Swagger string                 `json:"swagger"`
		Paths   map[string]interface{} `json:"paths"`
	}
	decode(t, rec, &doc)
	for _, path := range []string{"/publish", "/events", "/stats", "/health/ready"} {
		if _, ok := doc.Paths[path]; !ok {
			t.Errorf("swagger doc missing %s", path)
		}
	}
}

func TestRouter_LiveFeedMountedOnlyWhenProvided(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, testAPIConfig(), 1, pipeline.StateRunning)
	if rec := ts.do(t, http.MethodGet, "/ws/events", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("without feed status = %d, want 404", rec.Code)
	}

	h, err := NewHandler(Dependencies{
		Store:    ts.store,
		Queue:    ts.queue,
		Counters: ts.counters,
		Consumer: stubConsumer{state: pipeline.StateRunning},
		Config:   testAPIConfig(),
	})
	if err != nil {
		t.Fatal(err)
	}
	feed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	ts.handler = NewRouter(h, feed).SetupChi()

	if rec := ts.do(t, http.MethodGet, "/ws/events", "", nil); rec.Code != http.StatusTeapot {
		t.Errorf("with feed status = %d, want 418", rec.Code)
	}
}
