// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

// Command publisher simulates an at-least-once producer. It generates events
// with a configurable share of duplicate ids and sends them to the
// aggregator over HTTP or NATS JetStream.
//
//	publisher --count 5000 --dup-ratio 0.3
//	publisher --mode nats --nats-url nats://127.0.0.1:4222
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
