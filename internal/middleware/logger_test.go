// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/aggregator/internal/logging"
)

// Not parallel: swaps the global logger.
func TestRequestLogger_ServerErrorLogsWarn(t *testing.T) {
	var buf bytes.Buffer
	prev := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	t.Cleanup(func() { logging.SetLogger(prev) })

	handler := RequestID(RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})))

	req := httptest.NewRequest(http.MethodPost, "/publish", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("log output is not a single JSON line: %v (%q)", err, buf.String())
	}

	checks := map[string]interface{}{
		"level":      "warn",
		"method":     "POST",
		"path":       "/publish",
		"status":     float64(500),
		"bytes":      float64(4),
		"request_id": "req-1",
	}
	for key, want := range checks {
		if line[key] != want {
			t.Errorf("log field %s = %v, want %v", key, line[key], want)
		}
	}
}
