// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/parkdash/parkdash/internal/metrics"
	"github.com/parkdash/parkdash/internal/models"
)

const eventColumns = "event_id, parking_spot_id, device_id, status, plate_number, timestamp"

// InsertEvent appends a single event row. The store is append-only;
// re-ingesting an event with the same event_id produces another row.
func (db *DB) InsertEvent(ctx context.Context, event *models.Event) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO events (event_id, parking_spot_id, device_id, status, plate_number, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		event.EventID, event.ParkingSpotID, event.DeviceID, event.Status,
		nullable(event.PlateNumber), event.Timestamp,
	)
	metrics.StoreQueryDuration.WithLabelValues("insert").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreErrors.WithLabelValues("insert").Inc()
		return &StoreError{Op: "insert", Err: err}
	}
	return nil
}

// GetAllEvents returns every event in the store. Order is unspecified.
func (db *DB) GetAllEvents(ctx context.Context) ([]models.Event, error) {
	return db.queryEvents(ctx, "all",
		"SELECT "+eventColumns+" FROM events")
}

// GetEventsByPlate returns all events whose plate_number exactly
// matches the given value.
func (db *DB) GetEventsByPlate(ctx context.Context, plateNumber string) ([]models.Event, error) {
	return db.queryEvents(ctx, "by_plate",
		"SELECT "+eventColumns+" FROM events WHERE plate_number = ?", plateNumber)
}

// GetEventsByFilter returns events matching every non-empty filter
// field by exact equality. An empty filter matches all events.
func (db *DB) GetEventsByFilter(ctx context.Context, filter models.Filter) ([]models.Event, error) {
	query := "SELECT " + eventColumns + " FROM events WHERE 1=1"
	args := make([]interface{}, 0, 3)
	if filter.ParkingSpotID != "" {
		query += " AND parking_spot_id = ?"
		args = append(args, filter.ParkingSpotID)
	}
	if filter.DeviceID != "" {
		query += " AND device_id = ?"
		args = append(args, filter.DeviceID)
	}
	if filter.Timestamp != "" {
		query += " AND timestamp = ?"
		args = append(args, filter.Timestamp)
	}
	return db.queryEvents(ctx, "by_filter", query, args...)
}

// CountEvents returns the number of stored events.
func (db *DB) CountEvents(ctx context.Context) (int64, error) {
	start := time.Now()
	var count int64
	err := db.conn.QueryRowContext(ctx, "SELECT count(*) FROM events").Scan(&count)
	metrics.StoreQueryDuration.WithLabelValues("count").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreErrors.WithLabelValues("count").Inc()
		return 0, &StoreError{Op: "count", Err: err}
	}
	return count, nil
}

func (db *DB) queryEvents(ctx context.Context, op, query string, args ...interface{}) ([]models.Event, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.StoreQueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreErrors.WithLabelValues(op).Inc()
		return nil, &StoreError{Op: op, Err: err}
	}
	defer func() { _ = rows.Close() }()

	events := make([]models.Event, 0)
	for rows.Next() {
		var e models.Event
		var plate sql.NullString
		if err := rows.Scan(&e.EventID, &e.ParkingSpotID, &e.DeviceID, &e.Status, &plate, &e.Timestamp); err != nil {
			metrics.StoreErrors.WithLabelValues(op).Inc()
			return nil, &StoreError{Op: op, Err: err}
		}
		e.PlateNumber = plate.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		metrics.StoreErrors.WithLabelValues(op).Inc()
		return nil, &StoreError{Op: op, Err: err}
	}
	return events, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
