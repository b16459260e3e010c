// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

package dashboard

import (
	"context"
	"sync"

	"github.com/parkdash/parkdash/internal/logging"
	"github.com/parkdash/parkdash/internal/models"
)

// Fetcher loads the bulk snapshot the dashboard seeds itself from,
// typically backed by the events query endpoint.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]models.Event, error)
}

// Dashboard combines the latest-per-spot reconciler with per-spot
// logs and keeps both fed from one notification stream.
type Dashboard struct {
	fetcher    Fetcher
	reconciler *Reconciler

	mu   sync.RWMutex
	logs map[string]*SpotLog
}

// New creates a dashboard seeded via fetcher.
func New(fetcher Fetcher) *Dashboard {
	return &Dashboard{
		fetcher:    fetcher,
		reconciler: NewReconciler(),
		logs:       make(map[string]*SpotLog),
	}
}

// Refresh reloads the bulk snapshot and reseeds all views. A fetch
// failure leaves empty state rather than stale or broken state; the
// dashboard renders "no data" and the next refresh retries.
func (d *Dashboard) Refresh(ctx context.Context) error {
	events, err := d.fetcher.FetchAll(ctx)
	if err != nil {
		logger := logging.Ctx(ctx)
		logger.Error().Err(err).Msg("Dashboard snapshot fetch failed, showing no data")
		events = nil
	}

	d.reconciler.Seed(events)

	d.mu.RLock()
	for _, log := range d.logs {
		log.SeedBulk(events)
	}
	d.mu.RUnlock()

	return err
}

// HandleNotification folds one live notification into every view.
func (d *Dashboard) HandleNotification(n *models.ChangeNotification) {
	if !d.reconciler.ApplyNotification(n) {
		// Stale or non-insert for the latest view, but the log still
		// records every insert.
		if n == nil || !n.IsInsert() {
			return
		}
	}

	d.mu.RLock()
	if log, ok := d.logs[n.Document.ParkingSpotID]; ok {
		log.Prepend(n.Document)
	}
	d.mu.RUnlock()
}

// OpenLog returns the log for a spot, creating and bulk-seeding it on
// first use.
func (d *Dashboard) OpenLog(ctx context.Context, spotID string) *SpotLog {
	d.mu.Lock()
	if log, ok := d.logs[spotID]; ok {
		d.mu.Unlock()
		return log
	}
	log := NewSpotLog(spotID)
	d.logs[spotID] = log
	d.mu.Unlock()

	events, err := d.fetcher.FetchAll(ctx)
	if err != nil {
		logger := logging.Ctx(ctx)
		logger.Error().Err(err).Str("parking_spot_id", spotID).
			Msg("Spot log fetch failed, starting empty")
		return log
	}
	log.SeedBulk(events)
	return log
}

// CloseLog stops tracking a spot's log.
func (d *Dashboard) CloseLog(spotID string) {
	d.mu.Lock()
	delete(d.logs, spotID)
	d.mu.Unlock()
}

// Latest exposes the latest-per-spot view.
func (d *Dashboard) Latest() []models.Event {
	return d.reconciler.Latest()
}

// Filtered exposes the filtered latest-per-spot projection.
func (d *Dashboard) Filtered(spotSubstr, deviceSubstr string) []models.Event {
	return d.reconciler.Filtered(spotSubstr, deviceSubstr)
}
