// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package models

import "time"

// Event is one message delivered by an upstream producer. Its identity is
// the pair (Topic, EventID); two events with the same pair are the same
// logical event whatever their payloads.
type Event struct {
	Topic   string `json:"topic" validate:"required,max=512"`
	EventID string `json:"event_id" validate:"required,max=512"`

	// Timestamp is caller supplied and stored verbatim. Any string is
	// accepted; it is not parsed and plays no part in ordering. Presence is
	// checked when decoding.
	Timestamp string `json:"timestamp"`

	Source  string                 `json:"source" validate:"required,max=512"`
	Payload map[string]interface{} `json:"payload"`
}

// Identity formats the deduplication key as "topic/event_id" for log and
// error text. The form is ambiguous when topic or event_id contain '/', so
// it is never used as a storage or message key.
func (e *Event) Identity() string {
	return e.Topic + "/" + e.EventID
}

// Normalize fills defaults. A missing payload becomes an empty object.
func (e *Event) Normalize() {
	if e.Payload == nil {
		e.Payload = map[string]interface{}{}
	}
}

// PersistedEvent is an event as stored after its identity was claimed.
type PersistedEvent struct {
	Topic       string                 `json:"topic"`
	EventID     string                 `json:"event_id"`
	Timestamp   string                 `json:"timestamp"`
	Source      string                 `json:"source"`
	Payload     map[string]interface{} `json:"payload"`
	ProcessedAt time.Time              `json:"processed_at"`
}

// NewPersistedEvent stamps evt with processedAt, converted to UTC.
func NewPersistedEvent(evt *Event, processedAt time.Time) PersistedEvent {
	payload := evt.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return PersistedEvent{
		Topic:       evt.Topic,
		EventID:     evt.EventID,
		Timestamp:   evt.Timestamp,
		Source:      evt.Source,
		Payload:     payload,
		ProcessedAt: processedAt.UTC(),
	}
}
