// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/aggregator/internal/eventprocessor"
	"github.com/tomtom215/aggregator/internal/models"
)

// natsSender publishes each event through the JetStream publisher. JetStream
// acks every publish, so accepted counts stored messages; the aggregator
// validates them when the ingress consumes the stream.
type natsSender struct {
	publisher *eventprocessor.Publisher
	prefix    string
}

func newNATSSender(url, prefix string) (*natsSender, error) {
	pub, err := eventprocessor.NewPublisher(eventprocessor.DefaultPublisherConfig(url), eventprocessor.NewWatermillLogger())
	if err != nil {
		return nil, fmt.Errorf("connect publisher: %w", err)
	}
	pub.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(eventprocessor.DefaultCircuitBreakerConfig("publisher-nats")))
	return &natsSender{publisher: pub, prefix: prefix}, nil
}

func (s *natsSender) Send(ctx context.Context, batch []models.Event) (batchResult, error) {
	var res batchResult
	for i := range batch {
		if err := s.publisher.PublishEvent(ctx, s.prefix, &batch[i]); err != nil {
			res.rejected += len(batch) - i
			return res, err
		}
		res.accepted++
	}
	return res, nil
}

func (s *natsSender) Close() error {
	return s.publisher.Close()
}
