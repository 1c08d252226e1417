// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/aggregator/internal/models"
)

const selectEventsSQL = `SELECT topic, event_id, "timestamp", source, payload, processed_at FROM events`

// Query returns persisted events ordered by processed_at, oldest first.
// An empty topic matches every topic.
func (db *DB) Query(ctx context.Context, topic string, limit int) (events []models.PersistedEvent, err error) {
	start := time.Now()
	defer func() { observe("query", start, err) }()

	if db.closed.Load() {
		return nil, ErrClosed
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	var rows *sql.Rows
	if topic == "" {
		rows, err = db.conn.QueryContext(ctx,
			selectEventsSQL+` ORDER BY processed_at, topic, event_id LIMIT ?`, limit)
	} else {
		rows, err = db.conn.QueryContext(ctx,
			selectEventsSQL+` WHERE topic = ? ORDER BY processed_at, event_id LIMIT ?`, topic, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer closeWithLog(rows, "rows")

	events = make([]models.PersistedEvent, 0)
	for rows.Next() {
		var (
			e           models.PersistedEvent
			payloadJSON string
		)
		if err := rows.Scan(&e.Topic, &e.EventID, &e.Timestamp, &e.Source, &payloadJSON, &e.ProcessedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(payloadJSON), &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode payload of %s/%s: %w", e.Topic, e.EventID, err)
		}
		if e.Payload == nil {
			e.Payload = map[string]interface{}{}
		}
		e.ProcessedAt = e.ProcessedAt.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// ListTopics returns the distinct topics that have persisted events, sorted.
func (db *DB) ListTopics(ctx context.Context) (topics []string, err error) {
	start := time.Now()
	defer func() { observe("list_topics", start, err) }()

	if db.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT topic FROM events ORDER BY topic`)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer closeWithLog(rows, "rows")

	topics = make([]string, 0)
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, topic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate topics: %w", err)
	}
	return topics, nil
}

// ClearAll deletes every claim and event in one transaction.
func (db *DB) ClearAll(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { observe("clear_all", start, err) }()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	if db.closed.Load() {
		return ErrClosed
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, table := range []string{"events", "dedup"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}
	return nil
}

// Counts returns the number of claim records and persisted events.
func (db *DB) Counts(ctx context.Context) (claims, events int64, err error) {
	if db.closed.Load() {
		return 0, 0, ErrClosed
	}
	err = db.conn.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM dedup), (SELECT COUNT(*) FROM events)`).Scan(&claims, &events)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return claims, events, nil
}
