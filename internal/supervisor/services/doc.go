// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

/*
Package services adapts the aggregator's components to suture.Service.

Each wrapper depends on a small interface instead of the concrete type, which
keeps this package free of imports on the api, websocket and eventprocessor
packages and lets tests drive it with mocks:

	HTTPServerService   ListenAndServe / Shutdown (*http.Server)
	ConsumerService     Run (*pipeline.Consumer)
	IngressService      Run (*eventprocessor.Ingress)
	HubService          RunWithContext (*websocket.Hub)

Restart Policy:

HTTPServerService, IngressService and HubService are restarted by suture
after a failure. ConsumerService returns suture.ErrDoNotRestart once the
consumer has run, since a consumer drains and closes its store on exit and
cannot run twice.
*/
package services
