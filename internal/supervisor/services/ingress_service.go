// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package services

import (
	"context"
	"errors"
	"fmt"
)

// IngressRunner matches *eventprocessor.Ingress.
type IngressRunner interface {
	Run(ctx context.Context) error
}

// IngressService runs the NATS JetStream ingress. A failed run is restarted
// by suture; the durable consumer resumes where it left off.
type IngressService struct {
	ingress IngressRunner
	name    string
}

// NewIngressService creates an ingress service.
func NewIngressService(ingress IngressRunner) *IngressService {
	return &IngressService{ingress: ingress, name: "nats-ingress"}
}

// Serve implements suture.Service.
func (s *IngressService) Serve(ctx context.Context) error {
	err := s.ingress.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("nats ingress: %w", err)
	}
	return errors.New("nats ingress exited unexpectedly")
}

// String implements fmt.Stringer for suture's logs.
func (s *IngressService) String() string {
	return s.name
}
