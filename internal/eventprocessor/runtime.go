// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package eventprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/aggregator/internal/config"
	"github.com/tomtom215/aggregator/internal/logging"
)

const streamSetupTimeout = 10 * time.Second

// Runtime is the NATS side of the server: an optional embedded server,
// the ensured stream and the ingress consuming it.
type Runtime struct {
	Server  *EmbeddedServer
	Ingress *Ingress
	URL     string
}

// Start brings up messaging for cfg. The embedded server, when enabled, is
// started first and the stream is created or updated before the ingress is
// built. The ingress is not running until its Run is called.
func Start(ctx context.Context, cfg *config.NATSConfig, admitter EventAdmitter) (*Runtime, error) {
	rt := &Runtime{URL: cfg.URL}

	if cfg.EmbeddedServer {
		serverCfg := ServerConfigFrom(cfg)
		srv, err := NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		rt.Server = srv
		rt.URL = srv.ClientURL()
		logging.Info().
			Str("url", rt.URL).
			Str("store_dir", cfg.StoreDir).
			Msg("Embedded NATS server started")
	}

	streamCfg := StreamConfigFrom(cfg)
	if err := ensureStream(ctx, rt.URL, &streamCfg); err != nil {
		rt.Close(ctx)
		return nil, err
	}

	logger := NewWatermillLogger()
	subCfg := SubscriberConfigFrom(cfg, rt.URL)
	factory := func() (message.Subscriber, error) {
		sub, err := NewSubscriber(&subCfg, logger)
		if err != nil {
			return nil, err
		}
		return sub.subscriber, nil
	}

	ingress, err := NewIngress(IngressConfigFrom(cfg), admitter, factory, logger)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	rt.Ingress = ingress
	return rt, nil
}

func ensureStream(ctx context.Context, url string, cfg *StreamConfig) error {
	nc, err := natsgo.Connect(url, natsgo.Timeout(5*time.Second))
	if err != nil {
		return fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	mgr, err := NewStreamManager(js, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, streamSetupTimeout)
	defer cancel()
	if _, err := mgr.EnsureStream(ctx); err != nil {
		return err
	}

	logging.Info().
		Str("stream", cfg.Name).
		Strs("subjects", cfg.Subjects).
		Dur("duplicate_window", cfg.DuplicateWindow).
		Msg("JetStream stream ready")
	return nil
}

// Close shuts down the embedded server if one was started.
func (r *Runtime) Close(ctx context.Context) {
	if r.Server == nil {
		return
	}
	if err := r.Server.Shutdown(ctx); err != nil {
		logging.Warn().Err(err).Msg("Embedded NATS shutdown incomplete")
	}
}
