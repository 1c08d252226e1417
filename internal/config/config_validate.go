// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateQueue,
		c.validateConsumer,
		c.validateAPI,
		c.validateNATS,
		c.validateLogging,
		c.validateSupervisor,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Backend {
	case BackendDuckDB, BackendBadger:
	default:
		return fmt.Errorf("DATABASE_BACKEND must be %q or %q, got %q", BackendDuckDB, BackendBadger, c.Database.Backend)
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be 0 (auto) or positive, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.MaxSize < 1 {
		return fmt.Errorf("QUEUE_MAXSIZE must be at least 1, got %d", c.Queue.MaxSize)
	}
	return nil
}

func (c *Config) validateConsumer() error {
	cc := c.Consumer
	if cc.PersistRetries < 0 {
		return fmt.Errorf("CONSUMER_PERSIST_RETRIES must not be negative, got %d", cc.PersistRetries)
	}
	if cc.RetryBaseDelay <= 0 {
		return fmt.Errorf("CONSUMER_RETRY_BASE_DELAY must be positive")
	}
	if cc.RetryMaxDelay < cc.RetryBaseDelay {
		return fmt.Errorf("CONSUMER_RETRY_MAX_DELAY (%s) must be >= CONSUMER_RETRY_BASE_DELAY (%s)", cc.RetryMaxDelay, cc.RetryBaseDelay)
	}
	if cc.StorageTimeout <= 0 {
		return fmt.Errorf("CONSUMER_STORAGE_TIMEOUT must be positive")
	}
	if cc.DrainTimeout <= 0 {
		return fmt.Errorf("CONSUMER_DRAIN_TIMEOUT must be positive")
	}
	if cc.BreakerFailures == 0 {
		return fmt.Errorf("CONSUMER_BREAKER_FAILURES must be at least 1")
	}
	if cc.BreakerTimeout <= 0 {
		return fmt.Errorf("CONSUMER_BREAKER_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateAPI() error {
	a := c.API
	if a.RateLimitRequests < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must not be negative (0 disables), got %d", a.RateLimitRequests)
	}
	if a.RateLimitRequests > 0 && a.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive when rate limiting is enabled")
	}
	if a.MaxBodyBytes < 1 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1, got %d", a.MaxBodyBytes)
	}
	if a.EventsMax < 1 {
		return fmt.Errorf("EVENTS_MAX_LIMIT must be at least 1, got %d", a.EventsMax)
	}
	if a.EventsDefault < 1 || a.EventsDefault > a.EventsMax {
		return fmt.Errorf("EVENTS_DEFAULT_LIMIT must be between 1 and EVENTS_MAX_LIMIT (%d), got %d", a.EventsMax, a.EventsDefault)
	}
	if a.AdminTokenHash != "" && !strings.HasPrefix(a.AdminTokenHash, "$2") {
		return fmt.Errorf("ADMIN_TOKEN_HASH must be a bcrypt hash")
	}
	return nil
}

func (c *Config) validateNATS() error {
	n := c.NATS
	if !n.Enabled {
		return nil
	}
	if !n.EmbeddedServer && n.URL == "" {
		return fmt.Errorf("NATS_URL is required when NATS_EMBEDDED is false")
	}
	if n.EmbeddedServer && n.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required for the embedded server")
	}
	if n.Stream == "" {
		return fmt.Errorf("NATS_STREAM is required")
	}
	if n.Subject == "" {
		return fmt.Errorf("NATS_SUBJECT is required")
	}
	if n.DurableName == "" {
		return fmt.Errorf("NATS_DURABLE_NAME is required")
	}
	if n.AckWait <= 0 {
		return fmt.Errorf("NATS_ACK_WAIT must be positive")
	}
	if n.MaxDeliver < 1 {
		return fmt.Errorf("NATS_MAX_DELIVER must be at least 1, got %d", n.MaxDeliver)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled", "":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console", "":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateSupervisor() error {
	if c.Supervisor.FailureThreshold <= 0 {
		return fmt.Errorf("SUPERVISOR_FAILURE_THRESHOLD must be positive")
	}
	if c.Supervisor.ShutdownTimeout <= c.Consumer.DrainTimeout {
		return fmt.Errorf("SUPERVISOR_SHUTDOWN_TIMEOUT (%s) must exceed CONSUMER_DRAIN_TIMEOUT (%s)",
			c.Supervisor.ShutdownTimeout, c.Consumer.DrainTimeout)
	}
	return nil
}
