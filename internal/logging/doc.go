// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

// Package logging provides the zerolog-based structured logger used by every
// Aggregator component.
//
// The package keeps a single global logger that is configured once at startup
// from LOG_LEVEL, LOG_FORMAT and LOG_CALLER and used through level helpers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("topic", topic).Msg("event persisted")
//	logging.Err(err).Str("event_id", id).Msg("claim failed")
//
// Request handlers log through Ctx so that request_id and correlation_id are
// attached automatically:
//
//	logging.Ctx(r.Context()).Warn().Msg("queue full")
//
// Libraries that only speak log/slog (suture through sutureslog, Watermill)
// receive an slog.Logger from NewSlogLogger that writes back into zerolog.
//
// Always terminate an event chain with Msg or Send; an unterminated chain is
// never written.
package logging
