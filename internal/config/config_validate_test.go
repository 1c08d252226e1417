// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_Defaults(t *testing.T) {
	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"unknown backend", func(c *Config) { c.Database.Backend = "sqlite" }, "DATABASE_BACKEND"},
		{"empty path", func(c *Config) { c.Database.Path = " " }, "DATABASE_PATH"},
		{"zero queue", func(c *Config) { c.Queue.MaxSize = 0 }, "QUEUE_MAXSIZE"},
		{"negative retries", func(c *Config) { c.Consumer.PersistRetries = -1 }, "CONSUMER_PERSIST_RETRIES"},
		{"max below base", func(c *Config) { c.Consumer.RetryMaxDelay = time.Millisecond }, "CONSUMER_RETRY_MAX_DELAY"},
		{"zero breaker", func(c *Config) { c.Consumer.BreakerFailures = 0 }, "CONSUMER_BREAKER_FAILURES"},
		{"default above max", func(c *Config) { c.API.EventsDefault = 20000 }, "EVENTS_DEFAULT_LIMIT"},
		{"bad admin hash", func(c *Config) { c.API.AdminTokenHash = "plaintext" }, "ADMIN_TOKEN_HASH"},
		{"nats without subject", func(c *Config) { c.NATS.Enabled = true; c.NATS.Subject = "" }, "NATS_SUBJECT"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
		{"drain exceeds shutdown", func(c *Config) { c.Consumer.DrainTimeout = time.Minute }, "SUPERVISOR_SHUTDOWN_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %s", err, tt.wantMsg)
			}
		})
	}
}

func TestValidate_NATSDisabledSkipsChecks(t *testing.T) {
	cfg := defaultConfig()
	cfg.NATS.Subject = ""
	cfg.NATS.Stream = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled NATS should not be validated: %v", err)
	}
}
