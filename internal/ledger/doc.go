// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

/*
Package ledger provides the BadgerDB-backed dedup store, an alternative to the
DuckDB store selected with DATABASE_BACKEND=badger.

# Key Layout

Identities are encoded as a 2-byte big-endian topic length, the topic and the
event id, so no separator byte is reserved:

	c<identity>                  -> claim: processed_at (8-byte unix nanos)
	e<identity>                  -> event record (JSON)
	p<nanos><identity>           -> global processed_at index (empty value)
	t<topicLen><topic><nanos><id> -> per-topic processed_at index (empty value)

# Atomicity

Claim runs a read-write transaction that reads the claim key and writes it
only if absent. Badger's serializable snapshot isolation aborts the commit of
any concurrent transaction that read the same key, so exactly one claimant
can succeed; an aborted commit (badger.ErrConflict) is reported as a
duplicate.

# Durability

The store opens with SyncWrites enabled so every commit is fsynced before it
returns. The value log is garbage collected periodically.
*/
package ledger
