// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package main

import (
	"fmt"

	"github.com/tomtom215/aggregator/internal/config"
	"github.com/tomtom215/aggregator/internal/database"
	"github.com/tomtom215/aggregator/internal/ledger"
	"github.com/tomtom215/aggregator/internal/pipeline"
)

// openStore opens the dedup store for the configured backend.
func openStore(cfg *config.DatabaseConfig) (pipeline.Store, error) {
	switch cfg.Backend {
	case config.BackendDuckDB, "":
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("open duckdb store: %w", err)
		}
		return db, nil
	case config.BackendBadger:
		st, err := ledger.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown database backend %q", cfg.Backend)
	}
}
