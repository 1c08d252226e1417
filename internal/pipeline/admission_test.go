// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package pipeline

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"topic":"t","event_id":"e","timestamp":"2026-01-01T00:00:00Z","source":"s","payload":{"k":1}}`, false},
		{"payload omitted", `{"topic":"t","event_id":"e","timestamp":"now","source":"s"}`, false},
		{"payload null", `{"topic":"t","event_id":"e","timestamp":"now","source":"s","payload":null}`, false},
		{"missing topic", `{"event_id":"e","timestamp":"now","source":"s"}`, true},
		{"empty source", `{"topic":"t","event_id":"e","timestamp":"now","source":""}`, true},
		{"empty timestamp", `{"topic":"t","event_id":"e","timestamp":"","source":"s"}`, false},
		{"free-form timestamp", `{"topic":"t","event_id":"e","timestamp":"yesterday, around noon, give or take an hour or two","source":"s"}`, false},
		{"missing timestamp", `{"topic":"t","event_id":"e","source":"s"}`, true},
		{"null timestamp", `{"topic":"t","event_id":"e","timestamp":null,"source":"s"}`, true},
		{"numeric timestamp", `{"topic":"t","event_id":"e","timestamp":12,"source":"s"}`, true},
		{"array payload", `{"topic":"t","event_id":"e","timestamp":"now","source":"s","payload":[1]}`, true},
		{"not an object", `42`, true},
		{"malformed", `{"topic":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			evt, err := DecodeEvent([]byte(tt.raw))
			if tt.wantErr {
				var invalid *InvalidEventError
				if !errors.As(err, &invalid) {
					t.Fatalf("DecodeEvent() error = %v, want *InvalidEventError", err)
				}
				if invalid.Reason == "" {
					t.Error("expected a reason")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeEvent() error = %v", err)
			}
			if evt.Payload == nil {
				t.Error("payload not normalized")
			}
		})
	}
}

func TestDecodeEvent_ReportsFields(t *testing.T) {
	t.Parallel()

	_, err := DecodeEvent([]byte(`{"timestamp":"now"}`))
	var invalid *InvalidEventError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v", err)
	}

	fields := map[string]bool{}
	for _, f := range invalid.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"topic", "event_id", "source"} {
		if !fields[want] {
			t.Errorf("missing field error for %s in %+v", want, invalid.Fields)
		}
	}
}

func TestDecodeEvent_MissingTimestampJoinsOtherFields(t *testing.T) {
	t.Parallel()

	_, err := DecodeEvent([]byte(`{"topic":"t"}`))
	var invalid *InvalidEventError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v", err)
	}

	fields := map[string]bool{}
	for _, f := range invalid.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"event_id", "source", "timestamp"} {
		if !fields[want] {
			t.Errorf("missing field error for %s in %+v", want, invalid.Fields)
		}
	}
	if !strings.Contains(invalid.Error(), "timestamp is required") {
		t.Errorf("Error() = %q, want it to mention the timestamp", invalid.Error())
	}
}

func TestAdmitter_Admit(t *testing.T) {
	t.Parallel()

	q := NewQueue(2)
	counters := NewCounters()
	a := NewAdmitter(q, counters)

	for i := 0; i < 2; i++ {
		if err := a.Admit(SourceHTTP, newEvent("t", "e")); err != nil {
			t.Fatalf("Admit(%d) error = %v", i, err)
		}
	}
	if err := a.Admit(SourceHTTP, newEvent("t", "e")); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Admit over capacity = %v, want ErrQueueFull", err)
	}

	q.Close()
	if err := a.Admit(SourceNATS, newEvent("t", "e")); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Admit after close = %v, want ErrQueueClosed", err)
	}

	if got := counters.Snapshot().Received; got != 2 {
		t.Errorf("received = %d, want 2 (rejections are not counted)", got)
	}
}
