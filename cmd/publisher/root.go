// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/aggregator/internal/logging"
)

const (
	modeHTTP = "http"
	modeNATS = "nats"
)

type options struct {
	count         int
	url           string
	topic         string
	source        string
	batch         int
	interval      time.Duration
	dupRatio      float64
	mode          string
	natsURL       string
	subjectPrefix string
	seed          int64
	maxRetries    int
	logLevel      string
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "publisher",
		Short: "Publish simulated events with duplicates to the aggregator",
		Long: `Generates events for one topic and source and publishes them in batches.

With probability --dup-ratio an event reuses an earlier id, so the
aggregator sees the same logical event more than once.

Examples:
  # 1000 events over HTTP in batches of 50
  publisher

  # Heavier duplicate load against a remote server
  publisher --url http://aggregator:8080 --count 100000 --dup-ratio 0.5

  # Publish through NATS JetStream instead of HTTP
  publisher --mode nats --nats-url nats://127.0.0.1:4222`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			logging.Init(logging.Config{
				Level:     opts.logLevel,
				Format:    "console",
				Output:    cmd.ErrOrStderr(),
				Timestamp: true,
			})
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.count, "count", 1000, "number of events to generate")
	flags.StringVar(&opts.url, "url", "http://localhost:8080", "aggregator base URL (http mode)")
	flags.StringVar(&opts.topic, "topic", "app.logs", "event topic")
	flags.StringVar(&opts.source, "source", "sim", "event source, also the event id prefix")
	flags.IntVar(&opts.batch, "batch", 50, "events per batch")
	flags.DurationVar(&opts.interval, "interval", 10*time.Millisecond, "minimum pause between batches")
	flags.Float64Var(&opts.dupRatio, "dup-ratio", 0.25, "probability that an event reuses an earlier id")
	flags.StringVar(&opts.mode, "mode", modeHTTP, "transport: http or nats")
	flags.StringVar(&opts.natsURL, "nats-url", "nats://127.0.0.1:4222", "NATS server URL (nats mode)")
	flags.StringVar(&opts.subjectPrefix, "subject-prefix", "events", "subject prefix, events go to <prefix>.<topic> (nats mode)")
	flags.Int64Var(&opts.seed, "seed", 0, "random seed (0 uses the current time)")
	flags.IntVar(&opts.maxRetries, "max-retries", 8, "retries per batch on 503 before giving up")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level")

	return cmd
}

func (o *options) validate() error {
	switch {
	case o.count < 0:
		return fmt.Errorf("--count must not be negative, got %d", o.count)
	case o.batch < 1:
		return fmt.Errorf("--batch must be at least 1, got %d", o.batch)
	case o.dupRatio < 0 || o.dupRatio > 1:
		return fmt.Errorf("--dup-ratio must be within [0, 1], got %g", o.dupRatio)
	case o.interval < 0:
		return fmt.Errorf("--interval must not be negative, got %s", o.interval)
	case o.mode != modeHTTP && o.mode != modeNATS:
		return fmt.Errorf("invalid mode: %s (must be 'http' or 'nats')", o.mode)
	}
	return nil
}

func run(parent context.Context, opts *options, out io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sender, err := newSender(opts)
	if err != nil {
		return err
	}
	defer sender.Close()

	gen := newGenerator(opts.topic, opts.source, opts.dupRatio, opts.seed)
	sum, err := publishAll(ctx, gen, sender, opts)
	sum.print(out, opts.mode)
	return err
}

func newSender(opts *options) (batchSender, error) {
	if opts.mode == modeNATS {
		return newNATSSender(opts.natsURL, opts.subjectPrefix)
	}
	return newHTTPSender(opts.url, opts.maxRetries), nil
}
