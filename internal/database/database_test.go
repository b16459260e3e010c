// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

package database

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/parkdash/parkdash/internal/config"
	"github.com/parkdash/parkdash/internal/logging"
	"github.com/parkdash/parkdash/internal/models"
)

func init() {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
}

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "256MB",
		Threads:   1,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleEvent(id, spot string) *models.Event {
	return &models.Event{
		EventID:       id,
		ParkingSpotID: spot,
		DeviceID:      "dev1",
		Status:        "occupied",
		PlateNumber:   "ABC123",
		Timestamp:     "2024-01-01T00:00:00Z",
	}
}

func TestInsertAndGetAll(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.InsertEvent(ctx, sampleEvent("e1", "S1")); err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}
	if err := db.InsertEvent(ctx, sampleEvent("e2", "S2")); err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}

	events, err := db.GetAllEvents(ctx)
	if err != nil {
		t.Fatalf("GetAllEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
}

func TestAppendOnlyDuplicateEventID(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	// Same event_id twice produces two rows. The store never
	// deduplicates; consumers reconcile.
	for i := 0; i < 2; i++ {
		if err := db.InsertEvent(ctx, sampleEvent("e1", "S1")); err != nil {
			t.Fatalf("InsertEvent() error = %v", err)
		}
	}
	count, err := db.CountEvents(ctx)
	if err != nil {
		t.Fatalf("CountEvents() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountEvents() = %d, want 2", count)
	}
}

func TestInsertEmptyPlateStoredAsNull(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	event := sampleEvent("e1", "S1")
	event.PlateNumber = ""
	if err := db.InsertEvent(ctx, event); err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}

	events, err := db.GetAllEvents(ctx)
	if err != nil {
		t.Fatalf("GetAllEvents() error = %v", err)
	}
	if len(events) != 1 || events[0].PlateNumber != "" {
		t.Errorf("events = %+v, want single event with empty plate", events)
	}

	// A NULL plate does not match any plate query.
	byPlate, err := db.GetEventsByPlate(ctx, "")
	if err != nil {
		t.Fatalf("GetEventsByPlate() error = %v", err)
	}
	if len(byPlate) != 0 {
		t.Errorf("GetEventsByPlate(\"\") returned %d events, want 0", len(byPlate))
	}
}

func TestGetEventsByPlate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	a := sampleEvent("e1", "S1")
	b := sampleEvent("e2", "S2")
	b.PlateNumber = "XYZ999"
	for _, e := range []*models.Event{a, b} {
		if err := db.InsertEvent(ctx, e); err != nil {
			t.Fatalf("InsertEvent() error = %v", err)
		}
	}

	events, err := db.GetEventsByPlate(ctx, "ABC123")
	if err != nil {
		t.Fatalf("GetEventsByPlate() error = %v", err)
	}
	if len(events) != 1 || events[0].EventID != "e1" {
		t.Errorf("GetEventsByPlate() = %+v, want only e1", events)
	}

	// Exact match only, no substring semantics.
	partial, err := db.GetEventsByPlate(ctx, "ABC")
	if err != nil {
		t.Fatalf("GetEventsByPlate() error = %v", err)
	}
	if len(partial) != 0 {
		t.Errorf("GetEventsByPlate(\"ABC\") returned %d events, want 0", len(partial))
	}
}

func TestGetEventsByFilter(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	e1 := sampleEvent("e1", "S1")
	e2 := sampleEvent("e2", "S1")
	e2.DeviceID = "dev2"
	e3 := sampleEvent("e3", "S2")
	e3.Timestamp = "2024-01-02T00:00:00Z"
	for _, e := range []*models.Event{e1, e2, e3} {
		if err := db.InsertEvent(ctx, e); err != nil {
			t.Fatalf("InsertEvent() error = %v", err)
		}
	}

	tests := []struct {
		name   string
		filter models.Filter
		want   int
	}{
		{"empty filter matches all", models.Filter{}, 3},
		{"by spot", models.Filter{ParkingSpotID: "S1"}, 2},
		{"by spot and device", models.Filter{ParkingSpotID: "S1", DeviceID: "dev2"}, 1},
		{"by timestamp", models.Filter{Timestamp: "2024-01-02T00:00:00Z"}, 1},
		{"no match", models.Filter{ParkingSpotID: "S3"}, 0},
		{"substring spot does not match", models.Filter{ParkingSpotID: "S"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := db.GetEventsByFilter(ctx, tt.filter)
			if err != nil {
				t.Fatalf("GetEventsByFilter() error = %v", err)
			}
			if len(events) != tt.want {
				t.Errorf("got %d events, want %d", len(events), tt.want)
			}
		})
	}
}

func TestQueriesReturnEmptySliceNotNil(t *testing.T) {
	db := testDB(t)
	events, err := db.GetAllEvents(context.Background())
	if err != nil {
		t.Fatalf("GetAllEvents() error = %v", err)
	}
	if events == nil {
		t.Error("GetAllEvents() = nil, want empty slice")
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.duckdb")
	cfg := &config.DatabaseConfig{Path: path, MaxMemory: "256MB", Threads: 1}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := db.InsertEvent(context.Background(), sampleEvent("e1", "S1")); err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := New(cfg)
	if err != nil {
		t.Fatalf("reopen New() error = %v", err)
	}
	defer func() { _ = reopened.Close() }()

	events, err := reopened.GetAllEvents(context.Background())
	if err != nil {
		t.Fatalf("GetAllEvents() error = %v", err)
	}
	if len(events) != 1 || events[0].EventID != "e1" {
		t.Errorf("after reopen events = %+v, want e1", events)
	}
}

func TestPing(t *testing.T) {
	db := testDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
