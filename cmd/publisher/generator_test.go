// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package main

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestGenerator_NoDuplicates(t *testing.T) {
	gen := newGenerator("app.logs", "sim", 0, 42)

	for i, evt := range gen.Batch(100) {
		if want := fmt.Sprintf("sim-%d", i); evt.EventID != want {
			t.Fatalf("event %d id = %q, want %q", i, evt.EventID, want)
		}
		if evt.Topic != "app.logs" || evt.Source != "sim" {
			t.Errorf("event %d topic/source = %q/%q", i, evt.Topic, evt.Source)
		}
		if evt.Payload["i"] != i || evt.Payload["msg"] != "simulated" {
			t.Errorf("event %d payload = %v", i, evt.Payload)
		}
		if _, err := time.Parse(time.RFC3339, evt.Timestamp); err != nil {
			t.Errorf("event %d timestamp %q is not RFC3339: %v", i, evt.Timestamp, err)
		}
	}
}

func TestGenerator_AllDuplicatesStayInRange(t *testing.T) {
	gen := newGenerator("t", "sim", 1, 7)

	for i, evt := range gen.Batch(200) {
		n, err := strconv.Atoi(strings.TrimPrefix(evt.EventID, "sim-"))
		if err != nil {
			t.Fatalf("event %d id %q has no numeric suffix", i, evt.EventID)
		}
		if n < 0 || n > i/2 {
			t.Errorf("event %d reused id %d, want within [0, %d]", i, n, i/2)
		}
	}
}

func TestGenerator_SeedIsDeterministic(t *testing.T) {
	a := newGenerator("t", "sim", 0.5, 99).Batch(50)
	b := newGenerator("t", "sim", 0.5, 99).Batch(50)

	for i := range a {
		if a[i].EventID != b[i].EventID {
			t.Fatalf("event %d differs: %q vs %q", i, a[i].EventID, b[i].EventID)
		}
	}
}
