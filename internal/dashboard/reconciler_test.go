// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

package dashboard

import (
	"testing"

	"github.com/parkdash/parkdash/internal/models"
)

func event(id, spot, device, ts string) models.Event {
	return models.Event{
		EventID:       id,
		ParkingSpotID: spot,
		DeviceID:      device,
		Status:        "occupied",
		Timestamp:     ts,
	}
}

func TestSeedKeepsLatestPerSpot(t *testing.T) {
	r := NewReconciler()
	r.Seed([]models.Event{
		event("e1", "S1", "dev1", "2024-01-01T00:00:00Z"),
		event("e2", "S1", "dev1", "2024-01-03T00:00:00Z"),
		event("e3", "S1", "dev1", "2024-01-02T00:00:00Z"),
		event("e4", "S2", "dev2", "2024-01-01T00:00:00Z"),
	})

	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
	got, ok := r.LatestForSpot("S1")
	if !ok || got.EventID != "e2" {
		t.Errorf("LatestForSpot(S1) = %+v, want e2", got)
	}
}

func TestSeedEqualTimestampsKeepFirstProcessed(t *testing.T) {
	r := NewReconciler()
	r.Seed([]models.Event{
		event("first", "S1", "dev1", "2024-01-01T00:00:00Z"),
		event("second", "S1", "dev1", "2024-01-01T00:00:00Z"),
	})

	got, _ := r.LatestForSpot("S1")
	if got.EventID != "first" {
		t.Errorf("LatestForSpot(S1) = %q, want first-processed record", got.EventID)
	}
}

func TestSeedSkipsRecordsWithoutSpot(t *testing.T) {
	r := NewReconciler()
	r.Seed([]models.Event{
		event("e1", "", "dev1", "2024-01-01T00:00:00Z"),
		event("e2", "S1", "dev1", "2024-01-01T00:00:00Z"),
	})
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestApplyStrictlyGreaterReplaces(t *testing.T) {
	r := NewReconciler()
	r.Seed([]models.Event{event("e1", "S1", "dev1", "2024-01-02T00:00:00Z")})

	tests := []struct {
		name    string
		event   models.Event
		applied bool
		wantID  string
	}{
		{"older ignored", event("old", "S1", "dev1", "2024-01-01T00:00:00Z"), false, "e1"},
		{"equal ignored", event("tie", "S1", "dev1", "2024-01-02T00:00:00Z"), false, "e1"},
		{"newer replaces", event("new", "S1", "dev1", "2024-01-03T00:00:00Z"), true, "new"},
		{"unknown spot always applies", event("e9", "S9", "dev9", "2020-01-01T00:00:00Z"), true, "e9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.event
			if got := r.Apply(&e); got != tt.applied {
				t.Errorf("Apply() = %v, want %v", got, tt.applied)
			}
			latest, _ := r.LatestForSpot(e.ParkingSpotID)
			if latest.EventID != tt.wantID {
				t.Errorf("LatestForSpot(%s) = %q, want %q", e.ParkingSpotID, latest.EventID, tt.wantID)
			}
		})
	}
}

func TestApplyNotificationInsertOnly(t *testing.T) {
	r := NewReconciler()
	e := event("e1", "S1", "dev1", "2024-01-01T00:00:00Z")

	if r.ApplyNotification(&models.ChangeNotification{OperationType: models.OperationUpdate, Document: &e}) {
		t.Error("update notification applied, want ignored")
	}
	if !r.ApplyNotification(models.NewInsertNotification(&e)) {
		t.Error("insert notification ignored, want applied")
	}
	if r.ApplyNotification(nil) {
		t.Error("nil notification applied")
	}
}

func TestFilteredIsPureProjection(t *testing.T) {
	r := NewReconciler()
	r.Seed([]models.Event{
		event("e1", "Lot-A-1", "DEV-north", "2024-01-01T00:00:00Z"),
		event("e2", "Lot-A-2", "DEV-south", "2024-01-01T00:00:00Z"),
		event("e3", "Lot-B-1", "DEV-north", "2024-01-01T00:00:00Z"),
	})

	tests := []struct {
		name         string
		spot, device string
		want         int
	}{
		{"no criteria", "", "", 3},
		{"spot substring case-insensitive", "lot-a", "", 2},
		{"device substring", "", "north", 2},
		{"combined", "lot-a", "north", 1},
		{"no match", "lot-z", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Filtered(tt.spot, tt.device)
			if len(got) != tt.want {
				t.Errorf("Filtered(%q, %q) returned %d events, want %d", tt.spot, tt.device, len(got), tt.want)
			}
		})
	}

	// The projection never shrinks the underlying map.
	if r.Len() != 3 {
		t.Errorf("Len() = %d after filtering, want 3", r.Len())
	}
}

func TestLatestSortedBySpot(t *testing.T) {
	r := NewReconciler()
	r.Seed([]models.Event{
		event("e3", "S3", "dev", "2024-01-01T00:00:00Z"),
		event("e1", "S1", "dev", "2024-01-01T00:00:00Z"),
		event("e2", "S2", "dev", "2024-01-01T00:00:00Z"),
	})

	latest := r.Latest()
	for i, want := range []string{"S1", "S2", "S3"} {
		if latest[i].ParkingSpotID != want {
			t.Errorf("Latest()[%d] = %q, want %q", i, latest[i].ParkingSpotID, want)
		}
	}
}

func TestReseedReplacesState(t *testing.T) {
	r := NewReconciler()
	r.Seed([]models.Event{event("e1", "S1", "dev", "2024-01-01T00:00:00Z")})
	r.Seed([]models.Event{event("e2", "S2", "dev", "2024-01-01T00:00:00Z")})

	if _, ok := r.LatestForSpot("S1"); ok {
		t.Error("S1 survived reseed, want replaced state")
	}
	if _, ok := r.LatestForSpot("S2"); !ok {
		t.Error("S2 missing after reseed")
	}
}
