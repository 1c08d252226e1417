// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package models

// ItemError reports why one element of a publish batch was not admitted.
type ItemError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// PublishResponse is returned by POST /publish.
type PublishResponse struct {
	Accepted int         `json:"accepted"`
	Errors   []ItemError `json:"errors"`

	// RejectedFrom is set when admission stopped because the queue was full
	// or closed. Items at this index and after were not admitted.
	RejectedFrom *int `json:"rejected_from,omitempty"`
}

// EventsResponse is returned by GET /events.
type EventsResponse struct {
	Count  int              `json:"count"`
	Events []PersistedEvent `json:"events"`
}

// Stats is the read-only counter projection served by GET /stats.
type Stats struct {
	Received         int64    `json:"received"`
	UniqueProcessed  int64    `json:"unique_processed"`
	DuplicateDropped int64    `json:"duplicate_dropped"`
	Topics           []string `json:"topics"`
	UptimeSeconds    float64  `json:"uptime_seconds"`
	QueueDepth       int      `json:"queue_depth"`
	QueueCapacity    int      `json:"queue_capacity"`
	ConsumerState    string   `json:"consumer_state"`
}

// HealthStatus is returned by the health endpoints.
type HealthStatus struct {
	Status        string `json:"status"`
	Store         string `json:"store,omitempty"`
	ConsumerState string `json:"consumer_state,omitempty"`
}
