// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

package dashboard

import (
	"sync"

	"github.com/parkdash/parkdash/internal/models"
)

// SpotLog holds the event history for a single parking spot. Bulk
// loads keep the order the store returned (no server-side sort
// guarantee); live events are prepended so the log reads newest-first
// as it grows.
type SpotLog struct {
	mu     sync.RWMutex
	spotID string
	events []models.Event
}

// NewSpotLog creates an empty log for one spot.
func NewSpotLog(spotID string) *SpotLog {
	return &SpotLog{spotID: spotID}
}

// SpotID returns the spot this log tracks.
func (l *SpotLog) SpotID() string {
	return l.spotID
}

// SeedBulk replaces the log with the matching records from a bulk
// query result, preserving their order as returned.
func (l *SpotLog) SeedBulk(events []models.Event) {
	filtered := make([]models.Event, 0, len(events))
	for _, event := range events {
		if event.ParkingSpotID == l.spotID {
			filtered = append(filtered, event)
		}
	}

	l.mu.Lock()
	l.events = filtered
	l.mu.Unlock()
}

// Prepend adds a live event to the front of the log. Events for other
// spots are ignored.
func (l *SpotLog) Prepend(event *models.Event) {
	if event == nil || event.ParkingSpotID != l.spotID {
		return
	}

	l.mu.Lock()
	l.events = append([]models.Event{*event}, l.events...)
	l.mu.Unlock()
}

// Events returns a copy of the log.
func (l *SpotLog) Events() []models.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of logged events.
func (l *SpotLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
