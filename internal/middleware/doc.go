// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

/*
Package middleware provides HTTP middleware components for the ingestion gateway.

All middleware uses the chi signature func(http.Handler) http.Handler so it can
be installed with chi.Router.Use alongside the chi, cors and httprate
middleware.

Key Components:

  - RequestID: X-Request-ID propagation plus request and correlation ids in the
    logging context
  - RequestLogger: one structured zerolog line per request
  - PrometheusMetrics: request count, latency and in-flight gauge labelled by
    the chi route pattern

Middleware Stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)

Route patterns rather than raw paths are used as metric labels so that
query strings and ids never create unbounded label cardinality.
*/
package middleware
