// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package database

import (
	"context"
	"fmt"
)

// processed_at is intentionally unindexed: DuckDB rejects ON CONFLICT DO
// UPDATE on tables whose updated columns carry an ART index.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS dedup (
		topic        VARCHAR   NOT NULL,
		event_id     VARCHAR   NOT NULL,
		processed_at TIMESTAMP NOT NULL,
		PRIMARY KEY (topic, event_id)
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		topic        VARCHAR   NOT NULL,
		event_id     VARCHAR   NOT NULL,
		"timestamp"  VARCHAR   NOT NULL,
		source       VARCHAR   NOT NULL,
		payload      VARCHAR   NOT NULL,
		processed_at TIMESTAMP NOT NULL,
		PRIMARY KEY (topic, event_id)
	)`,
}

func (db *DB) createTables(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
