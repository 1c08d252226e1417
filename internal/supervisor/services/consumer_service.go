// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package services

import (
	"context"
	"errors"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/aggregator/internal/logging"
	"github.com/tomtom215/aggregator/internal/pipeline"
)

// ConsumerRunner matches *pipeline.Consumer.
type ConsumerRunner interface {
	Run(ctx context.Context) error
}

// ConsumerService runs the single consumer under supervision.
//
// The consumer drains its queue and closes the store when it returns, so
// it is never restarted: every exit ends in suture.ErrDoNotRestart unless
// the tree itself is stopping.
type ConsumerService struct {
	consumer ConsumerRunner
	name     string
}

// NewConsumerService creates a consumer service.
func NewConsumerService(consumer ConsumerRunner) *ConsumerService {
	return &ConsumerService{consumer: consumer, name: "consumer"}
}

// Serve implements suture.Service.
func (s *ConsumerService) Serve(ctx context.Context) error {
	err := s.consumer.Run(ctx)

	switch {
	case errors.Is(err, pipeline.ErrStopped), errors.Is(err, pipeline.ErrAlreadyRunning):
		logging.Error().Err(err).Msg("Consumer cannot be restarted")
		return suture.ErrDoNotRestart
	case err != nil:
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		// Queue closed or Close called outside of shutdown.
		logging.Warn().Msg("Consumer exited before shutdown")
		return suture.ErrDoNotRestart
	}
}

// String implements fmt.Stringer for suture's logs.
func (s *ConsumerService) String() string {
	return s.name
}
