// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/tomtom215/aggregator/internal/models"
	"github.com/tomtom215/aggregator/internal/pipeline"
)

func seed(t *testing.T, ts *testServer, topic string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		evt := &models.Event{Topic: topic, EventID: id, Timestamp: "now", Source: "s"}
		if _, err := ts.store.Persist(context.Background(), evt); err != nil {
			t.Fatal(err)
		}
	}
}

func TestEvents_DefaultLimitAndTopic(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, testAPIConfig(), 10, pipeline.StateRunning)
	seed(t, ts, "a", "1", "2")
	seed(t, ts, "b", "3")

	rec := ts.do(t, http.MethodGet, "/events", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var all models.EventsResponse
	decode(t, rec, &all)
	if all.Count != 3 || len(all.Events) != 3 {
		t.Errorf("count = %d, events = %d, want 3", all.Count, len(all.Events))
	}
	if ts.store.lastLimit != 1000 {
		t.Errorf("store limit = %d, want default 1000", ts.store.lastLimit)
	}

	rec = ts.do(t, http.MethodGet, "/events?topic=a&limit=1", "", nil)
	var filtered models.EventsResponse
	decode(t, rec, &filtered)
	if filtered.Count != 1 || filtered.Events[0].Topic != "a" || filtered.Events[0].EventID != "1" {
		t.Errorf("filtered = %+v", filtered)
	}
	if ts.store.lastTopic != "a" {
		t.Errorf("store topic = %q, want a", ts.store.lastTopic)
	}
}

func TestEvents_EmptyIsArray(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, testAPIConfig(), 10, pipeline.StateRunning)
	rec := ts.do(t, http.MethodGet, "/events?topic=none", "", nil)

	if body := rec.Body.String(); body != "{\"count\":0,\"events\":[]}\n" {
		t.Errorf("body = %q", body)
	}
}

func TestEvents_LimitValidation(t *testing.T) {
	t.Parallel()

	cfg := testAPIConfig()
	cfg.EventsMax = 50
	ts := newTestServer(t, cfg, 10, pipeline.StateRunning)

	for _, limit := range []string{"0", "-3", "abc", "1.5"} {
		rec := ts.do(t, http.MethodGet, "/events?limit="+limit, "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s status = %d, want 400", limit, rec.Code)
		}
	}

	rec := ts.do(t, http.MethodGet, "/events?limit=500", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ts.store.lastLimit != 50 {
		t.Errorf("store limit = %d, want cap 50", ts.store.lastLimit)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, testAPIConfig(), 8, pipeline.StateRunning)
	seed(t, ts, "b", "1")
	seed(t, ts, "a", "2")

	_ = ts.do(t, http.MethodPost, "/publish", batchJSON(eventJSON("t", "x"), eventJSON("t", "y")), nil)

	rec := ts.do(t, http.MethodGet, "/stats", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats models.Stats
	decode(t, rec, &stats)

	if stats.Received != 2 {
		t.Errorf("received = %d, want 2", stats.Received)
	}
	if len(stats.Topics) != 2 || stats.Topics[0] != "a" || stats.Topics[1] != "b" {
		t.Errorf("topics = %v, want [a b]", stats.Topics)
	}
	if stats.QueueDepth != 2 || stats.QueueCapacity != 8 {
		t.Errorf("queue = %d/%d, want 2/8", stats.QueueDepth, stats.QueueCapacity)
	}
	if stats.ConsumerState != "RUNNING" {
		t.Errorf("consumer_state = %q", stats.ConsumerState)
	}
	if stats.UptimeSeconds < 0 {
		t.Errorf("uptime = %v", stats.UptimeSeconds)
	}
}

func TestStats_EmptyTopicsIsArray(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, testAPIConfig(), 8, pipeline.StateRunning)
	rec := ts.do(t, http.MethodGet, "/stats", "", nil)

	var raw map[string]interface{}
	decode(t, rec, &raw)
	if topics, ok := raw["topics"].([]interface{}); !ok || len(topics) != 0 {
		t.Errorf("topics = %#v, want []", raw["topics"])
	}
}
