// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/aggregator/internal/logging"
	"github.com/tomtom215/aggregator/internal/models"
)

const (
	retryBaseDelay = 50 * time.Millisecond
	retryMaxDelay  = 2 * time.Second
)

// postResult is one POST /publish round trip.
type postResult struct {
	status int
	body   models.PublishResponse
}

// httpSender posts batches to /publish. A 503 means the queue is full; the
// items from rejected_from onward are retried with exponential backoff.
// Transport failures and unexpected statuses trip the circuit breaker.
type httpSender struct {
	endpoint   string
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker[postResult]
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

func newHTTPSender(baseURL string, maxRetries int) *httpSender {
	return &httpSender{
		endpoint: strings.TrimSuffix(baseURL, "/") + "/publish",
		client:   &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker[postResult](gobreaker.Settings{
			Name:        "publisher-http",
			MaxRequests: 1,
			Timeout:     5 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Circuit breaker state changed")
			},
		}),
		maxRetries: maxRetries,
		sleep:      sleepContext,
	}
}

func (s *httpSender) Send(ctx context.Context, batch []models.Event) (batchResult, error) {
	var res batchResult
	pending := batch

	for attempt := 0; len(pending) > 0; attempt++ {
		out, err := s.breaker.Execute(func() (postResult, error) {
			return s.post(ctx, pending)
		})
		if err != nil {
			res.rejected += len(pending)
			return res, err
		}

		res.accepted += out.body.Accepted
		res.validationErrors += len(out.body.Errors)

		if out.status == http.StatusOK {
			return res, nil
		}

		// 503: retry what was not admitted.
		from := len(pending)
		if out.body.RejectedFrom != nil && *out.body.RejectedFrom >= 0 && *out.body.RejectedFrom <= len(pending) {
			from = *out.body.RejectedFrom
		}
		pending = pending[from:]
		if len(pending) == 0 {
			return res, nil
		}
		if attempt >= s.maxRetries {
			res.rejected += len(pending)
			logging.Warn().Int("dropped", len(pending)).Msg("Giving up on batch after retries")
			return res, nil
		}

		res.retries++
		if err := s.sleep(ctx, backoff(attempt)); err != nil {
			res.rejected += len(pending)
			return res, err
		}
	}
	return res, nil
}

// post sends one request. 200 and 503 are results; anything else is an
// error and counts against the breaker.
func (s *httpSender) post(ctx context.Context, batch []models.Event) (postResult, error) {
	payload, err := json.Marshal(batch)
	if err != nil {
		return postResult{}, fmt.Errorf("encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return postResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return postResult{}, fmt.Errorf("post %s: %w", s.endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return postResult{}, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusServiceUnavailable:
		out := postResult{status: resp.StatusCode}
		if err := json.Unmarshal(body, &out.body); err != nil {
			return postResult{}, fmt.Errorf("decode %d response: %w", resp.StatusCode, err)
		}
		return out, nil
	default:
		return postResult{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
}

func (s *httpSender) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// backoff returns base * 2^attempt, capped.
func backoff(attempt int) time.Duration {
	d := retryBaseDelay
	for i := 0; i < attempt && d < retryMaxDelay; i++ {
		d *= 2
	}
	if d > retryMaxDelay {
		d = retryMaxDelay
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
