// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

// Package models defines the core data types shared across Parkdash:
// the parking occupancy Event record, the change notification envelope
// relayed to realtime clients, and the equality filter used by queries.
package models

import (
	"strings"
	"time"
)

// Event is one parking status observation reported by an IoT device.
//
// Records are created once on ingestion and never mutated or deleted.
// Fields are intentionally loose: producers vary, and the store accepts
// whatever shape they send. Only ParkingSpotID is required for a record
// to be considered valid.
type Event struct {
	// EventID is an opaque producer-assigned identifier. Optional, and
	// not guaranteed unique across the dataset.
	EventID string `json:"event_id,omitempty"`

	// ParkingSpotID identifies the physical spot. Never empty for valid
	// records.
	ParkingSpotID string `json:"parking_spot_id"`

	// DeviceID identifies the reporting sensor.
	DeviceID string `json:"device_id,omitempty"`

	// Status is an opaque occupancy value (e.g. "occupied", "vacant").
	// Not validated against a fixed set.
	Status string `json:"status,omitempty"`

	// PlateNumber is the observed vehicle plate. Empty for vacancy
	// events with no plate.
	PlateNumber string `json:"plate_number,omitempty"`

	// Timestamp is a string-encoded point in time. Ordering comparisons
	// parse this string; producers are expected to emit a comparable
	// date format (RFC3339 preferred).
	Timestamp string `json:"timestamp,omitempty"`
}

// timestampLayouts lists the formats accepted when parsing Timestamp,
// tried in order. RFC3339 is what well-behaved producers emit.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a string-encoded event timestamp.
// Returns false when the string matches none of the accepted layouts.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NewerThan reports whether e's timestamp is strictly greater than
// other's. Equal timestamps report false, so the first record processed
// at a given timestamp wins.
//
// When both timestamps parse, parsed times are compared. When either
// does not parse, the comparison falls back to lexicographic string
// order, which matches chronological order for ISO-formatted strings.
func (e *Event) NewerThan(other *Event) bool {
	et, eok := ParseTimestamp(e.Timestamp)
	ot, ook := ParseTimestamp(other.Timestamp)
	if eok && ook {
		return et.After(ot)
	}
	return e.Timestamp > other.Timestamp
}

// HasSpot reports whether the record carries a parking spot ID, the one
// field every valid record must have.
func (e *Event) HasSpot() bool {
	return e.ParkingSpotID != ""
}

// Filter is an equality filter over event records. Zero-value fields
// are unconstrained; set fields must match exactly (no substring or
// range semantics).
type Filter struct {
	ParkingSpotID string `json:"parking_spot_id,omitempty"`
	DeviceID      string `json:"device_id,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
}

// IsZero reports whether no filter fields are set.
func (f Filter) IsZero() bool {
	return f.ParkingSpotID == "" && f.DeviceID == "" && f.Timestamp == ""
}

// Matches reports whether the event satisfies every set filter field.
func (f Filter) Matches(e *Event) bool {
	if f.ParkingSpotID != "" && e.ParkingSpotID != f.ParkingSpotID {
		return false
	}
	if f.DeviceID != "" && e.DeviceID != f.DeviceID {
		return false
	}
	if f.Timestamp != "" && e.Timestamp != f.Timestamp {
		return false
	}
	return true
}

// Change notification operation types. Only inserts are relayed to
// clients; the store is treated as append-only.
const (
	OperationInsert = "insert"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// TopicCarParkUpdate is the realtime broadcast topic carrying change
// notifications to dashboard clients.
const TopicCarParkUpdate = "carParkUpdate"

// ChangeNotification describes one store mutation observed by the
// change feed. The realtime gateway relays insert notifications to all
// connected clients.
type ChangeNotification struct {
	OperationType string `json:"operationType"`
	Document      *Event `json:"document"`
}

// NewInsertNotification wraps a freshly appended event in the
// notification envelope relayed to clients.
func NewInsertNotification(e *Event) *ChangeNotification {
	return &ChangeNotification{
		OperationType: OperationInsert,
		Document:      e,
	}
}

// IsInsert reports whether the notification describes a store insert.
func (n *ChangeNotification) IsInsert() bool {
	return n.OperationType == OperationInsert && n.Document != nil
}

// MatchesSubstring reports whether the event's spot and device IDs
// contain the given substrings, case-insensitively. Empty criteria are
// unconstrained. This is the dashboard filter projection, distinct from
// the exact-match Filter used by store queries.
func (e *Event) MatchesSubstring(spotSubstr, deviceSubstr string) bool {
	if spotSubstr != "" && !containsFold(e.ParkingSpotID, spotSubstr) {
		return false
	}
	if deviceSubstr != "" && !containsFold(e.DeviceID, deviceSubstr) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
