// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package api

import (
	"errors"

	"github.com/tomtom215/aggregator/internal/config"
	"github.com/tomtom215/aggregator/internal/pipeline"
)

// ConsumerStatus reports the consumer lifecycle state.
type ConsumerStatus interface {
	State() pipeline.State
}

// Dependencies are the pipeline components the gateway serves.
type Dependencies struct {
	Store    pipeline.Store
	Queue    *pipeline.Queue
	Counters *pipeline.Counters
	Consumer ConsumerStatus
	Config   *config.APIConfig
}

// Handler holds the HTTP handlers.
type Handler struct {
	store    pipeline.Store
	queue    *pipeline.Queue
	counters *pipeline.Counters
	consumer ConsumerStatus
	admitter *pipeline.Admitter
	cfg      *config.APIConfig
}

// NewHandler creates the gateway handlers.
func NewHandler(deps Dependencies) (*Handler, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("api: store is required")
	case deps.Queue == nil:
		return nil, errors.New("api: queue is required")
	case deps.Counters == nil:
		return nil, errors.New("api: counters are required")
	case deps.Consumer == nil:
		return nil, errors.New("api: consumer is required")
	case deps.Config == nil:
		return nil, errors.New("api: config is required")
	}

	return &Handler{
		store:    deps.Store,
		queue:    deps.Queue,
		counters: deps.Counters,
		consumer: deps.Consumer,
		admitter: pipeline.NewAdmitter(deps.Queue, deps.Counters),
		cfg:      deps.Config,
	}, nil
}
