// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

// Package config loads and validates Parkdash configuration using
// Koanf v2 with layered sources: built-in defaults, an optional YAML
// config file, and environment variables (highest priority).
package config

import (
	"fmt"
	"time"

	"github.com/parkdash/parkdash/internal/validation"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	NATS     NATSConfig     `koanf:"nats"`
	API      APIConfig      `koanf:"api"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds DuckDB event store settings.
type DatabaseConfig struct {
	// Path is the database file location. ":memory:" opens an
	// in-memory store, useful for tests.
	Path string `koanf:"path" validate:"required"`

	// MaxMemory caps DuckDB memory usage (e.g. "512MB").
	MaxMemory string `koanf:"max_memory"`

	// Threads sets the DuckDB thread count. 0 = runtime.NumCPU().
	Threads int `koanf:"threads" validate:"min=0"`

	// PreserveInsertionOrder keeps result order stable at the cost of
	// memory. The change feed does not depend on it; queries are
	// unordered by contract.
	PreserveInsertionOrder bool `koanf:"preserve_insertion_order"`
}

// NATSConfig holds change feed transport settings.
type NATSConfig struct {
	// Enabled toggles the NATS-backed change feed. When false the feed
	// runs on an in-process channel pub/sub instead.
	Enabled bool `koanf:"enabled"`

	// URL of an external NATS server. Ignored when EmbeddedServer is true.
	URL string `koanf:"url"`

	// EmbeddedServer runs a NATS JetStream server inside this process
	// for single-binary deployments.
	EmbeddedServer bool `koanf:"embedded_server"`

	// StoreDir is the JetStream storage directory for the embedded server.
	StoreDir string `koanf:"store_dir"`

	// MaxMemory / MaxStore cap embedded JetStream resource usage.
	MaxMemory int64 `koanf:"max_memory"`
	MaxStore  int64 `koanf:"max_store"`

	// StreamName is the JetStream stream holding change notifications.
	StreamName string `koanf:"stream_name" validate:"required"`

	// Subject is the change feed subject.
	Subject string `koanf:"subject" validate:"required"`

	// DurableName prefixes JetStream consumer names.
	DurableName string `koanf:"durable_name"`

	// MaxReconnects / ReconnectWait tune client reconnection. A
	// reconnect resumes watching from "now"; inserts during the outage
	// are not replayed.
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// APIConfig holds REST surface settings.
type APIConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3001,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:                   "/data/parkdash.duckdb",
			MaxMemory:              "512MB",
			Threads:                0, // 0 = use runtime.NumCPU()
			PreserveInsertionOrder: true,
		},
		NATS: NATSConfig{
			Enabled:        true,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			StoreDir:       "/data/nats/jetstream",
			MaxMemory:      256 << 20, // 256MB
			MaxStore:       2 << 30,   // 2GB
			StreamName:     "CARPARK",
			Subject:        "carpark.events",
			DurableName:    "carpark-notifier",
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
		},
		API: APIConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if c.NATS.Enabled && !c.NATS.EmbeddedServer && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats is enabled without the embedded server")
	}
	return nil
}
