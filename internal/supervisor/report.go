// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package supervisor

import "github.com/tomtom215/aggregator/internal/logging"

// LogUnstoppedServices logs every service still running after shutdown and
// returns how many there were.
func (t *SupervisorTree) LogUnstoppedServices() int {
	unstopped, err := t.UnstoppedServiceReport()
	if err != nil {
		logging.Warn().Err(err).Msg("Unstopped service report unavailable")
		return 0
	}
	if len(unstopped) == 0 {
		return 0
	}

	logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}
	return len(unstopped)
}

