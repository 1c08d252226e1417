// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

/*
Package supervisor runs the long-lived services of the aggregator under a
suture v4 supervisor tree.

# Overview

Services are grouped into three layers so a failure in one does not take
down the others:

	RootSupervisor ("aggregator")
	├── DataSupervisor ("data-layer")
	│   └── ConsumerService
	├── MessagingSupervisor ("messaging-layer")
	│   ├── HubService (if API_LIVE_FEED)
	│   └── IngressService (if NATS_ENABLED)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services are restarted with suture's backoff. The consumer is the
exception: it owns the queue and the store, runs exactly once and asks not
to be restarted when it returns.

# Logging

Supervisor events go through sutureslog into the zerolog-backed slog
logger from internal/logging:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))

# Shutdown

Canceling the context passed to Serve stops every layer. Services that did
not return within ShutdownTimeout are listed by UnstoppedServiceReport;
LogUnstoppedServices writes that report to the log.

See the services subpackage for the service wrappers.
*/
package supervisor
