// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package pipeline

import (
	"context"
	"sync"

	"github.com/tomtom215/aggregator/internal/metrics"
	"github.com/tomtom215/aggregator/internal/models"
)

// Queue is a bounded FIFO of admitted events.
//
// Enqueue never blocks. The channel is only closed under the write lock, and
// senders hold the read lock, so a send can never race with close.
type Queue struct {
	mu     sync.RWMutex
	items  chan *models.Event
	closed bool
}

// NewQueue creates a queue holding at most capacity events.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	metrics.SetQueueCapacity(capacity)
	metrics.SetQueueDepth(0)
	return &Queue{items: make(chan *models.Event, capacity)}
}

// Enqueue admits evt or returns ErrQueueFull / ErrQueueClosed.
func (q *Queue) Enqueue(evt *models.Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.items <- evt:
		metrics.SetQueueDepth(len(q.items))
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue blocks until an event is available or ctx ends. Once the queue is
// closed and empty it returns ErrQueueClosed.
func (q *Queue) Dequeue(ctx context.Context) (*models.Event, error) {
	select {
	case evt, ok := <-q.items:
		if !ok {
			return nil, ErrQueueClosed
		}
		metrics.SetQueueDepth(len(q.items))
		return evt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryDequeue returns the next buffered event without blocking.
func (q *Queue) TryDequeue() (*models.Event, bool) {
	select {
	case evt, ok := <-q.items:
		if !ok {
			return nil, false
		}
		metrics.SetQueueDepth(len(q.items))
		return evt, true
	default:
		return nil, false
	}
}

// Close stops admission. Buffered events can still be dequeued.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.items)
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Len returns the number of buffered events.
func (q *Queue) Len() int { return len(q.items) }

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return cap(q.items) }
