// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/aggregator/internal/logging"
	"github.com/tomtom215/aggregator/internal/metrics"
	"github.com/tomtom215/aggregator/internal/models"
	"github.com/tomtom215/aggregator/internal/pipeline"
)

const ingressHandlerName = "ingress"

// EventAdmitter is the admission surface the ingress feeds.
type EventAdmitter interface {
	Admit(source string, evt *models.Event) error
	Reject(source string)
}

// SubscriberFactory opens a subscriber for one router run.
type SubscriberFactory func() (message.Subscriber, error)

// Ingress consumes event messages from JetStream and admits them to the
// pipeline queue.
//
// Ack rules:
//   - admitted: ack
//   - undecodable or invalid: ack and drop, redelivery cannot fix it
//   - queue full or closed: nack after in-process retries, JetStream
//     redelivers after AckWait up to MaxDeliver
type Ingress struct {
	config     IngressConfig
	admitter   EventAdmitter
	subscriber SubscriberFactory
	logger     watermill.LoggerAdapter

	running atomic.Bool
}

// NewIngress creates an ingress for cfg.Subject.
func NewIngress(cfg IngressConfig, admitter EventAdmitter, subscriber SubscriberFactory, logger watermill.LoggerAdapter) (*Ingress, error) {
	if cfg.Subject == "" {
		return nil, fmt.Errorf("%w: ingress subject required", ErrInvalidConfig)
	}
	if admitter == nil {
		return nil, fmt.Errorf("%w: admitter required", ErrInvalidConfig)
	}
	if subscriber == nil {
		return nil, fmt.Errorf("%w: subscriber factory required", ErrInvalidConfig)
	}
	return &Ingress{
		config:     cfg,
		admitter:   admitter,
		subscriber: subscriber,
		logger:     loggerOrDefault(logger),
	}, nil
}

// Run consumes messages until ctx is canceled. A Watermill router cannot be
// restarted, so each call builds a fresh router and subscriber.
func (i *Ingress) Run(ctx context.Context) error {
	if !i.running.CompareAndSwap(false, true) {
		return errors.New("ingress already running")
	}
	defer i.running.Store(false)

	sub, err := i.subscriber()
	if err != nil {
		return fmt.Errorf("open subscriber: %w", err)
	}
	defer func() {
		if cerr := sub.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Failed to close ingress subscriber")
		}
	}()

	router, err := i.newRouter()
	if err != nil {
		return err
	}
	router.AddConsumerHandler(ingressHandlerName, i.config.Subject, sub, i.Handle)

	logging.Info().Str("subject", i.config.Subject).Msg("NATS ingress started")
	err = router.Run(ctx)
	logging.Info().Str("subject", i.config.Subject).Msg("NATS ingress stopped")
	if err != nil {
		return fmt.Errorf("ingress router: %w", err)
	}
	return ctx.Err()
}

func (i *Ingress) newRouter() (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: i.config.CloseTimeout,
	}, i.logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)

	if i.config.RetryMaxRetries > 0 {
		retry := middleware.Retry{
			MaxRetries:      i.config.RetryMaxRetries,
			InitialInterval: i.config.RetryInitialInterval,
			MaxInterval:     i.config.RetryMaxInterval,
			Multiplier:      2,
			Logger:          i.logger,
		}
		router.AddMiddleware(retry.Middleware)
	}

	return router, nil
}

// Handle admits one message. A nil return acks it; an error nacks it.
func (i *Ingress) Handle(msg *message.Message) error {
	evt, err := pipeline.DecodeEvent(msg.Payload)
	if err != nil {
		logging.Warn().
			Str("message_uuid", msg.UUID).
			Err(err).
			Msg("Dropping invalid ingress message")
		metrics.RecordIngressMessage("invalid")
		metrics.RecordFailure("ingress_invalid")
		i.admitter.Reject(pipeline.SourceNATS)
		return nil
	}

	if err := i.admitter.Admit(pipeline.SourceNATS, evt); err != nil {
		metrics.RecordIngressMessage("deferred")
		return fmt.Errorf("admit %s: %w", evt.Identity(), err)
	}

	metrics.RecordIngressMessage("admitted")
	return nil
}

// Running reports whether Run is active.
func (i *Ingress) Running() bool {
	return i.running.Load()
}
