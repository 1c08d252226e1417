// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

// Package config loads Aggregator configuration.
//
// Configuration is layered with Koanf v2, each layer overriding the previous:
//
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file: CONFIG_PATH, ./config.yaml or /etc/aggregator/config.yaml
//  3. Environment variables such as DATABASE_PATH and QUEUE_MAXSIZE
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("invalid configuration")
//	}
//	store, err := database.New(&cfg.Database)
package config

import "time"

// Config is the complete service configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Queue      QueueConfig      `koanf:"queue"`
	Consumer   ConsumerConfig   `koanf:"consumer"`
	API        APIConfig        `koanf:"api"`
	NATS       NATSConfig       `koanf:"nats"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Storage backends accepted by DatabaseConfig.Backend.
const (
	BackendDuckDB = "duckdb"
	BackendBadger = "badger"
)

// DatabaseConfig selects and tunes the durable dedup store.
type DatabaseConfig struct {
	// Backend is duckdb (single file, SQL) or badger (directory, LSM).
	Backend string `koanf:"backend"`

	// Path is the DuckDB file or the Badger directory.
	Path string `koanf:"path"`

	MaxMemory string `koanf:"max_memory"` // DuckDB memory_limit
	Threads   int    `koanf:"threads"`    // DuckDB threads (0 = NumCPU)
}

// QueueConfig sizes the admission queue.
type QueueConfig struct {
	MaxSize int `koanf:"max_size"`
}

// ConsumerConfig tunes the single-writer consumer loop.
type ConsumerConfig struct {
	PersistRetries  int           `koanf:"persist_retries"`
	RetryBaseDelay  time.Duration `koanf:"retry_base_delay"`
	RetryMaxDelay   time.Duration `koanf:"retry_max_delay"`
	StorageTimeout  time.Duration `koanf:"storage_timeout"`
	DrainTimeout    time.Duration `koanf:"drain_timeout"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// APIConfig holds gateway and query surface settings.
type APIConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	MaxBodyBytes      int64         `koanf:"max_body_bytes"`
	EventsDefault     int           `koanf:"events_default_limit"`
	EventsMax         int           `koanf:"events_max_limit"`

	// AdminTokenHash is a bcrypt hash of the bearer token accepted by the
	// admin routes. Empty disables them.
	AdminTokenHash string `koanf:"admin_token_hash"`

	// LiveFeed enables the websocket feed of persisted events.
	LiveFeed bool `koanf:"live_feed"`
}

// NATSConfig configures the optional JetStream ingress.
type NATSConfig struct {
	Enabled         bool          `koanf:"enabled"`
	URL             string        `koanf:"url"`
	EmbeddedServer  bool          `koanf:"embedded"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	StoreDir        string        `koanf:"store_dir"`
	MaxMemory       int64         `koanf:"max_memory"`
	MaxStore        int64         `koanf:"max_store"`
	Stream          string        `koanf:"stream"`
	Subject         string        `koanf:"subject"`
	DurableName     string        `koanf:"durable_name"`
	QueueGroup      string        `koanf:"queue_group"`
	AckWait         time.Duration `koanf:"ack_wait"`
	MaxDeliver      int           `koanf:"max_deliver"`
	MaxAge          time.Duration `koanf:"max_age"`
	DuplicateWindow time.Duration `koanf:"duplicate_window"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SupervisorConfig mirrors suture's restart tuning.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
