// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package eventprocessor

import (
	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/aggregator/internal/logging"
)

// NewWatermillLogger returns a Watermill logger backed by the global
// zerolog logger through the slog bridge.
func NewWatermillLogger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewSlogLogger())
}

func loggerOrDefault(logger watermill.LoggerAdapter) watermill.LoggerAdapter {
	if logger == nil {
		return NewWatermillLogger()
	}
	return logger
}
