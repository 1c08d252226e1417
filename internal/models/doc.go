// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

// Package models defines the data types shared by the store, the pipeline
// and the API: the inbound Event, the PersistedEvent read model, and the
// response bodies of the gateway.
package models
