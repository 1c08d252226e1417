// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package pipeline

import "errors"

var (
	// ErrQueueFull is returned by Enqueue when the queue is at capacity.
	ErrQueueFull = errors.New("queue full: capacity exceeded")

	// ErrQueueClosed is returned by Enqueue after Close, and by Dequeue once
	// the queue is closed and empty.
	ErrQueueClosed = errors.New("queue closed")

	// ErrStopped is returned by Run on a consumer that has already stopped.
	ErrStopped = errors.New("consumer stopped")

	// ErrAlreadyRunning is returned by Run when another Run is active.
	ErrAlreadyRunning = errors.New("consumer already running")
)
