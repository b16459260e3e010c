// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

// Package database implements the append-only parking event store on
// DuckDB. Events are never updated or deleted through this package;
// every ingested reading becomes a new row, and reconciliation to the
// latest state per spot happens in consumers.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/parkdash/parkdash/internal/config"
	"github.com/parkdash/parkdash/internal/logging"
)

// DB wraps the DuckDB connection pool for the event store.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens (or creates) the event store at cfg.Path and ensures the
// schema exists. Use Path ":memory:" for an in-memory store.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is nil")
	}

	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}
	preserveOrder := "true"
	if !cfg.PreserveInsertionOrder {
		preserveOrder = "false"
	}
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&preserve_insertion_order=%s",
		cfg.Path, numThreads, cfg.MaxMemory, preserveOrder)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, &StoreError{Op: "ping", Err: err}
	}

	db := &DB{conn: conn, cfg: cfg}
	db.configurePool()

	if err := db.initialize(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", numThreads).
		Str("max_memory", cfg.MaxMemory).
		Msg("Event store opened")

	return db, nil
}

// configurePool sets connection pool parameters. DuckDB is embedded,
// so the pool only bounds in-process parallelism.
func (db *DB) configurePool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// initialize creates the events table if it does not exist.
func (db *DB) initialize() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS events (
			event_id        VARCHAR NOT NULL,
			parking_spot_id VARCHAR NOT NULL,
			device_id       VARCHAR NOT NULL,
			status          VARCHAR NOT NULL,
			plate_number    VARCHAR,
			timestamp       VARCHAR NOT NULL,
			ingested_at     TIMESTAMP DEFAULT current_timestamp
		)`
	if _, err := db.conn.Exec(schema); err != nil {
		return &StoreError{Op: "initialize", Err: err}
	}
	return nil
}

// Conn exposes the underlying pool for health checks.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping verifies the store is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return &StoreError{Op: "ping", Err: err}
	}
	return nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	if err := db.conn.Close(); err != nil {
		return &StoreError{Op: "close", Err: err}
	}
	return nil
}
