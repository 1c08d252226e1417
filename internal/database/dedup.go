// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/aggregator/internal/models"
)

const claimSQL = `INSERT INTO dedup (topic, event_id, processed_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`

const persistSQL = `INSERT INTO events (topic, event_id, "timestamp", source, payload, processed_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (topic, event_id) DO UPDATE SET
		"timestamp" = EXCLUDED."timestamp",
		source = EXCLUDED.source,
		payload = EXCLUDED.payload,
		processed_at = EXCLUDED.processed_at`

// Claim records (topic, eventID) in the dedup table. It returns true when
// this call inserted the row and false when the identity was already claimed.
func (db *DB) Claim(ctx context.Context, topic, eventID string) (claimed bool, err error) {
	start := time.Now()
	defer func() { observe("claim", start, err) }()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	if db.closed.Load() {
		return false, ErrClosed
	}

	res, err := db.conn.ExecContext(ctx, claimSQL, topic, eventID, db.nextStamp())
	if err != nil {
		return false, fmt.Errorf("failed to claim %s/%s: %w", topic, eventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}
	return n == 1, nil
}

// Persist upserts the event record and returns it as stored.
func (db *DB) Persist(ctx context.Context, evt *models.Event) (persisted models.PersistedEvent, err error) {
	start := time.Now()
	defer func() { observe("persist", start, err) }()

	payload := evt.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return models.PersistedEvent{}, fmt.Errorf("failed to encode payload: %w", err)
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	if db.closed.Load() {
		return models.PersistedEvent{}, ErrClosed
	}

	processedAt := db.nextStamp()
	_, err = db.conn.ExecContext(ctx, persistSQL,
		evt.Topic, evt.EventID, evt.Timestamp, evt.Source, string(payloadJSON), processedAt)
	if err != nil {
		return models.PersistedEvent{}, fmt.Errorf("failed to persist %s/%s: %w", evt.Topic, evt.EventID, err)
	}
	return models.NewPersistedEvent(evt, processedAt), nil
}
