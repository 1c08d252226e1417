// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/tomtom215/aggregator/docs" // Import generated swagger docs
	"github.com/tomtom215/aggregator/internal/api"
	"github.com/tomtom215/aggregator/internal/config"
	"github.com/tomtom215/aggregator/internal/eventprocessor"
	"github.com/tomtom215/aggregator/internal/logging"
	"github.com/tomtom215/aggregator/internal/pipeline"
	"github.com/tomtom215/aggregator/internal/supervisor"
	"github.com/tomtom215/aggregator/internal/supervisor/services"
	ws "github.com/tomtom215/aggregator/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Aggregator exited with error")
		os.Exit(1)
	}
}

//nolint:gocyclo // Sequential setup steps
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("backend", cfg.Database.Backend).
		Str("db_path", cfg.Database.Path).
		Int("queue_max_size", cfg.Queue.MaxSize).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Configuration loaded")

	store, err := openStore(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()
	logging.Info().Str("backend", cfg.Database.Backend).Msg("Store initialized")

	queue := pipeline.NewQueue(cfg.Queue.MaxSize)
	counters := pipeline.NewCounters()

	consumer, err := pipeline.NewConsumer(queue, store, counters, &cfg.Consumer)
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}
	// Close is a no-op once Run has finished.
	defer func() {
		if err := consumer.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing consumer")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	var feed http.Handler
	if cfg.API.LiveFeed {
		hub := ws.NewHub()
		consumer.SetNotifier(hub)
		feed = ws.NewHandler(hub, cfg.API.CORSOrigins)
		tree.AddMessagingService(services.NewHubService(hub))
		logging.Info().Msg("Live feed enabled at /ws/events")
	}

	handler, err := api.NewHandler(api.Dependencies{
		Store:    store,
		Queue:    queue,
		Counters: counters,
		Consumer: consumer,
		Config:   &cfg.API,
	})
	if err != nil {
		return fmt.Errorf("create api handler: %w", err)
	}
	router := api.NewRouter(handler, feed)

	if cfg.NATS.Enabled {
		rt, err := eventprocessor.Start(ctx, &cfg.NATS, pipeline.NewAdmitter(queue, counters))
		if err != nil {
			return fmt.Errorf("start NATS ingress: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Supervisor.ShutdownTimeout)
			defer cancel()
			rt.Close(shutdownCtx)
		}()
		tree.AddMessagingService(services.NewIngressService(rt.Ingress))
		logging.Info().
			Str("url", rt.URL).
			Str("subject", cfg.NATS.Subject).
			Msg("NATS ingress added to supervisor tree")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	tree.AddDataService(services.NewConsumerService(consumer))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
		cancel()
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	tree.LogUnstoppedServices()

	snap := counters.Snapshot()
	logging.Info().
		Int64("received", snap.Received).
		Int64("unique_processed", snap.UniqueProcessed).
		Int64("duplicate_dropped", snap.DuplicateDropped).
		Msg("Aggregator stopped")
	return nil
}
