// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package pipeline

import (
	"context"

	"github.com/tomtom215/aggregator/internal/models"
)

// Store is the durable dedup-and-persist store used by the consumer.
//
// Claim must be atomic in the storage engine: for any (topic, eventID) at
// most one call ever returns true for the lifetime of the storage. A false
// result is not an error.
type Store interface {
	Claim(ctx context.Context, topic, eventID string) (bool, error)
	Persist(ctx context.Context, evt *models.Event) (models.PersistedEvent, error)
	Query(ctx context.Context, topic string, limit int) ([]models.PersistedEvent, error)
	ListTopics(ctx context.Context) ([]string, error)
	ClearAll(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Notifier receives every newly persisted event. Implementations must not
// block the consumer.
type Notifier interface {
	NotifyPersisted(evt models.PersistedEvent)
}
