// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/aggregator/internal/config"
	"github.com/tomtom215/aggregator/internal/logging"
	"github.com/tomtom215/aggregator/internal/metrics"
)

const backendName = config.BackendDuckDB

// DB is the DuckDB dedup store.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig

	// writeMu serializes Claim, Persist and ClearAll. lastStamp is only
	// touched while it is held.
	writeMu   sync.Mutex
	lastStamp time.Time

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New opens (or creates) the DuckDB file at cfg.Path and ensures the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301
	dbDir := filepath.Dir(cfg.Path)
	if cfg.Path != ":memory:" && dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}
	db.configureConnectionPool()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := db.createTables(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", numThreads).
		Str("max_memory", maxMemory).
		Msg("DuckDB dedup store opened")
	return db, nil
}

// configureConnectionPool sets connection pool parameters
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Ping checks if the database connection is alive
func (db *DB) Ping(ctx context.Context) error {
	if db.closed.Load() {
		return ErrClosed
	}
	return db.conn.PingContext(ctx)
}

// Checkpoint flushes the WAL into the main database file.
func (db *DB) Checkpoint(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, "CHECKPOINT")
	return err
}

// Close checkpoints and releases the handle. It waits for an in-flight write
// and is safe to call more than once.
func (db *DB) Close() error {
	db.closeOnce.Do(func() {
		db.writeMu.Lock()
		defer db.writeMu.Unlock()
		db.closed.Store(true)

		// Force a checkpoint to flush WAL before closing.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.Checkpoint(ctx); err != nil {
			logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
		}
		cancel()

		db.closeErr = db.conn.Close()
		logging.Info().Str("path", db.cfg.Path).Msg("DuckDB dedup store closed")
	})
	return db.closeErr
}

// nextStamp returns a UTC time strictly after the previous one, at the
// microsecond precision DuckDB stores. Callers hold writeMu.
func (db *DB) nextStamp() time.Time {
	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(db.lastStamp) {
		now = db.lastStamp.Add(time.Microsecond)
	}
	db.lastStamp = now
	return now
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStoreOperation(op, backendName, time.Since(start), err)
}
