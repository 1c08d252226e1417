// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

/*
Package database provides the DuckDB-backed dedup store.

Two tables live in one DuckDB file:

	dedup  (topic, event_id, processed_at)                          PRIMARY KEY (topic, event_id)
	events (topic, event_id, timestamp, source, payload, processed_at) PRIMARY KEY (topic, event_id)

Claims rely on the primary key: an INSERT ... ON CONFLICT DO NOTHING that
affects one row is a successful claim, zero rows is a duplicate. The check
and the insert are a single statement, so there is no read-then-write window.

# Concurrency

All writes go through one mutex, which keeps DuckDB's optimistic transaction
manager from reporting write conflicts between claims. Reads use the
database/sql pool and never take the mutex.

# Durability

DuckDB writes a WAL for every committed statement. Close runs CHECKPOINT
before releasing the handle so the next open does not need WAL replay.

# Usage

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	ok, err := db.Claim(ctx, "orders", "evt-1")
*/
package database
