// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/aggregator/internal/models"
)

// batchSender delivers one batch and reports what the aggregator did
// with it.
type batchSender interface {
	Send(ctx context.Context, batch []models.Event) (batchResult, error)
	Close() error
}

type batchResult struct {
	accepted         int
	rejected         int
	validationErrors int
	retries          int
}

type summary struct {
	sent             int
	accepted         int
	rejected         int
	validationErrors int
	retries          int
	batches          int
	elapsed          time.Duration
}

func (s *summary) add(n int, r batchResult) {
	s.batches++
	s.sent += n
	s.accepted += r.accepted
	s.rejected += r.rejected
	s.validationErrors += r.validationErrors
	s.retries += r.retries
}

func (s summary) print(w io.Writer, mode string) {
	fmt.Fprintf(w, "Publish Summary (%s):\n", mode)
	fmt.Fprintf(w, "  Sent:              %d\n", s.sent)
	fmt.Fprintf(w, "  Accepted:          %d\n", s.accepted)
	fmt.Fprintf(w, "  Rejected:          %d\n", s.rejected)
	fmt.Fprintf(w, "  Validation errors: %d\n", s.validationErrors)
	fmt.Fprintf(w, "  Batches:           %d (%d retries)\n", s.batches, s.retries)
	fmt.Fprintf(w, "  Elapsed:           %s\n", s.elapsed.Round(time.Millisecond))
}

// publishAll sends opts.count events in batches, pacing batches to at most
// one per opts.interval.
func publishAll(ctx context.Context, gen *generator, sender batchSender, opts *options) (summary, error) {
	var sum summary
	start := time.Now()
	defer func() { sum.elapsed = time.Since(start) }()

	limit := rate.Inf
	if opts.interval > 0 {
		limit = rate.Every(opts.interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	for remaining := opts.count; remaining > 0; {
		if err := limiter.Wait(ctx); err != nil {
			sum.elapsed = time.Since(start)
			return sum, err
		}

		n := opts.batch
		if remaining < n {
			n = remaining
		}
		batch := gen.Batch(n)
		remaining -= n

		res, err := sender.Send(ctx, batch)
		sum.add(n, res)
		if err != nil {
			sum.elapsed = time.Since(start)
			return sum, fmt.Errorf("batch %d: %w", sum.batches, err)
		}
	}

	sum.elapsed = time.Since(start)
	return sum, nil
}
