// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/tomtom215/aggregator/internal/models"
	"github.com/tomtom215/aggregator/internal/pipeline"
)

type rejectedBody struct {
	Accepted     int                `json:"accepted"`
	Errors       []models.ItemError `json:"errors"`
	RejectedFrom *int               `json:"rejected_from"`
	Success      bool               `json:"success"`
	Error        *APIError          `json:"error"`
}

func TestPublish_SingleEvent(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, testAPIConfig(), 10, pipeline.StateRunning)
	rec := ts.do(t, http.MethodPost, "/publish", eventJSON("app.logs", "e-1"), nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp models.PublishResponse
	decode(t, rec, &resp)
	if resp.Accepted != 1 || len(resp.Errors) != 0 || resp.RejectedFrom != nil {
		t.Errorf("response = %+v", resp)
	}
	if ts.queue.Len() != 1 {
		t.Errorf("queue len = %d, want 1", ts.queue.Len())
	}
	if got := ts.counters.Snapshot().Received; got != 1 {
		t.Errorf("received = %d, want 1", got)
	}
}

func TestPublish_BatchWithInvalidItems(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, testAPIConfig(), 10, pipeline.StateRunning)
	body := batchJSON(
		eventJSON("t", "a"),
		`{"topic":"t","timestamp":"now","source":"s"}`,
		eventJSON("t", "b"),
		`"not an event"`,
	)
	rec := ts.do(t, http.MethodPost, "/publish", body, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp models.PublishResponse
	decode(t, rec, &resp)

	if resp.Accepted != 2 {
		t.Errorf("accepted = %d, want 2", resp.Accepted)
	}
	if len(resp.Errors) != 2 || resp.Errors[0].Index != 1 || resp.Errors[1].Index != 3 {
		t.Fatalf("errors = %+v, want indexes 1 and 3", resp.Errors)
	}
	if !strings.Contains(resp.Errors[0].Error, "event_id") {
		t.Errorf("errors[0] = %q, want mention of event_id", resp.Errors[0].Error)
	}
	if got := ts.counters.Snapshot().Received; got != 2 {
		t.Errorf("received = %d, want 2", got)
	}
}

func TestPublish_PreservesOrder(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, testAPIConfig(), 10, pipeline.StateRunning)
	rec := ts.do(t, http.MethodPost, "/publish", batchJSON(eventJSON("t", "1"), eventJSON("t", "2"), eventJSON("t", "3")), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	for _, want := range []string{"1", "2", "3"} {
		evt, ok := ts.queue.TryDequeue()
		if !ok {
			t.Fatalf("queue empty, want %s", want)
		}
		if evt.EventID != want {
			t.Errorf("dequeued %s, want %s", evt.EventID, want)
		}
	}
}

func TestPublish_RejectsNonBatchBodies(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, testAPIConfig(), 10, pipeline.StateRunning)

	for name, body := range map[string]string{
		"empty":       "   ",
		"number":      "42",
		"string":      `"event"`,
		"empty array": "[]",
		"bad array":   "[{",
	} {
		t.Run(name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/publish", body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			resp := decodeError(t, rec)
			if resp.Error.Code != ErrCodeBadRequest || resp.Error.Message != errNotABatch.Error() {
				t.Errorf("error = %+v", resp.Error)
			}
		})
	}

	if ts.queue.Len() != 0 {
		t.Errorf("queue len = %d, want 0", ts.queue.Len())
	}
}

func TestPublish_QueueFullMidBatch(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, testAPIConfig(), 2, pipeline.StateRunning)
	body := batchJSON(eventJSON("t", "1"), eventJSON("t", "2"), eventJSON("t", "3"), eventJSON("t", "4"))
	rec := ts.do(t, http.MethodPost, "/publish", body, nil)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}

	var resp rejectedBody
	decode(t, rec, &resp)
	if resp.Accepted != 2 {
		t.Errorf("accepted = %d, want 2", resp.Accepted)
	}
	if resp.RejectedFrom == nil || *resp.RejectedFrom != 2 {
		t.Errorf("rejected_from = %v, want 2", resp.RejectedFrom)
	}
	if resp.Success || resp.Error == nil || resp.Error.Code != ErrCodeServiceUnavailable {
		t.Errorf("error = %+v", resp.Error)
	}
	if got := ts.counters.Snapshot().Received; got != 2 {
		t.Errorf("received = %d, want 2 (rejections are not counted)", got)
	}
}

func TestPublish_QueueClosed(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, testAPIConfig(), 10, pipeline.StateDraining)
	ts.queue.Close()

	rec := ts.do(t, http.MethodPost, "/publish", eventJSON("t", "1"), nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var resp rejectedBody
	decode(t, rec, &resp)
	if resp.RejectedFrom == nil || *resp.RejectedFrom != 0 || resp.Accepted != 0 {
		t.Errorf("response = %+v", resp)
	}
	if !strings.Contains(resp.Error.Message, "shutting down") {
		t.Errorf("message = %q", resp.Error.Message)
	}
}

func TestPublish_BodyTooLarge(t *testing.T) {
	t.Parallel()

	cfg := testAPIConfig()
	cfg.MaxBodyBytes = 64
	ts := newTestServer(t, cfg, 10, pipeline.StateRunning)

	rec := ts.do(t, http.MethodPost, "/publish", batchJSON(eventJSON("t", "1"), eventJSON("t", "2")), nil)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error.Code != ErrCodePayloadTooLarge {
		t.Errorf("code = %q", resp.Error.Code)
	}
}

func TestPublish_VersionedAlias(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, testAPIConfig(), 10, pipeline.StateRunning)
	rec := ts.do(t, http.MethodPost, "/api/v1/publish", eventJSON("t", "1"), nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ts.queue.Len() != 1 {
		t.Errorf("queue len = %d, want 1", ts.queue.Len())
	}
}

func TestSplitBatch(t *testing.T) {
	t.Parallel()

	items, err := splitBatch([]byte("  \n{\"a\":1}\n"))
	if err != nil || len(items) != 1 {
		t.Fatalf("object: items = %d, err = %v", len(items), err)
	}

	items, err = splitBatch([]byte(`[{"a":1}, {"a":2}, null]`))
	if err != nil || len(items) != 3 {
		t.Fatalf("array: items = %d, err = %v", len(items), err)
	}
}
