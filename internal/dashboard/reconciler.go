// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

// Package dashboard reconciles a bulk snapshot of parking events with
// the live change stream into a latest-state-per-spot view and
// per-spot logs. It is the client-side counterpart of the ingestion
// pipeline and backs dashboard state.
package dashboard

import (
	"sort"
	"sync"

	"github.com/parkdash/parkdash/internal/models"
)

// Reconciler maintains the latest-per-spot map: exactly one entry per
// distinct parking_spot_id seen so far. An incoming event replaces the
// current entry only when its timestamp is strictly greater; on equal
// timestamps the first-processed record wins.
type Reconciler struct {
	mu     sync.RWMutex
	latest map[string]models.Event
}

// NewReconciler creates an empty reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{latest: make(map[string]models.Event)}
}

// Seed reduces a bulk query result to the latest-per-spot map in a
// single pass. Previously reconciled state is replaced, not merged.
// Records without a parking_spot_id are skipped.
func (r *Reconciler) Seed(events []models.Event) {
	latest := make(map[string]models.Event, len(events))
	for _, event := range events {
		if !event.HasSpot() {
			continue
		}
		current, ok := latest[event.ParkingSpotID]
		if !ok || event.NewerThan(&current) {
			latest[event.ParkingSpotID] = event
		}
	}

	r.mu.Lock()
	r.latest = latest
	r.mu.Unlock()
}

// Apply folds one live event into the map. Reports whether the event
// became the latest state for its spot.
func (r *Reconciler) Apply(event *models.Event) bool {
	if event == nil || !event.HasSpot() {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.latest[event.ParkingSpotID]
	if ok && !event.NewerThan(&current) {
		return false
	}
	r.latest[event.ParkingSpotID] = *event
	return true
}

// ApplyNotification folds a change notification into the map. Only
// insert notifications carry state; everything else is ignored.
func (r *Reconciler) ApplyNotification(n *models.ChangeNotification) bool {
	if n == nil || !n.IsInsert() {
		return false
	}
	return r.Apply(n.Document)
}

// LatestForSpot returns the current entry for one spot.
func (r *Reconciler) LatestForSpot(spotID string) (models.Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	event, ok := r.latest[spotID]
	return event, ok
}

// Latest returns the latest-per-spot view sorted by spot ID.
func (r *Reconciler) Latest() []models.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedValues(r.latest, func(models.Event) bool { return true })
}

// Filtered projects the latest-per-spot view through case-insensitive
// substring criteria on spot ID and device ID. The projection never
// mutates the underlying map; an empty criterion matches everything.
func (r *Reconciler) Filtered(spotSubstr, deviceSubstr string) []models.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedValues(r.latest, func(e models.Event) bool {
		return e.MatchesSubstring(spotSubstr, deviceSubstr)
	})
}

// Len returns the number of distinct spots seen so far.
func (r *Reconciler) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.latest)
}

func sortedValues(m map[string]models.Event, keep func(models.Event) bool) []models.Event {
	out := make([]models.Event, 0, len(m))
	for _, event := range m {
		if keep(event) {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ParkingSpotID < out[j].ParkingSpotID
	})
	return out
}
