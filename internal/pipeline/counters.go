// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package pipeline

import (
	"sync/atomic"
	"time"
)

// Counters tracks pipeline totals for the process lifetime.
type Counters struct {
	received  atomic.Int64
	unique    atomic.Int64
	duplicate atomic.Int64
	started   time.Time
}

// CounterSnapshot is a point-in-time copy of Counters.
type CounterSnapshot struct {
	Received         int64
	UniqueProcessed  int64
	DuplicateDropped int64
	UptimeSeconds    float64
}

// NewCounters returns zeroed counters with uptime starting now.
func NewCounters() *Counters {
	return &Counters{started: time.Now()}
}

// RecordReceived counts one successfully enqueued event.
func (c *Counters) RecordReceived() { c.received.Add(1) }

func (c *Counters) recordUnique() { c.unique.Add(1) }

func (c *Counters) recordDuplicate() { c.duplicate.Add(1) }

// Snapshot returns the current values. Fields are read independently.
func (c *Counters) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		Received:         c.received.Load(),
		UniqueProcessed:  c.unique.Load(),
		DuplicateDropped: c.duplicate.Load(),
		UptimeSeconds:    c.Uptime().Seconds(),
	}
}

// Reset zeroes all counters. Uptime is not affected.
func (c *Counters) Reset() {
	c.received.Store(0)
	c.unique.Store(0)
	c.duplicate.Store(0)
}

// Uptime is the time since the counters were created.
func (c *Counters) Uptime() time.Duration {
	return time.Since(c.started)
}
