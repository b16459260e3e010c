// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

package ingest

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/parkdash/parkdash/internal/feed"
	"github.com/parkdash/parkdash/internal/logging"
	"github.com/parkdash/parkdash/internal/metrics"
	"github.com/parkdash/parkdash/internal/models"
)

// EventAppender is the slice of the event store the ingestor needs.
type EventAppender interface {
	InsertEvent(ctx context.Context, event *models.Event) error
}

// Ingestor appends decoded events to the store and publishes an
// insert notification for each successful append.
type Ingestor struct {
	store     EventAppender
	publisher message.Publisher
	topic     string
}

// New creates an ingestor publishing notifications on topic.
// publisher may be nil, in which case appends happen without
// notifications.
func New(store EventAppender, publisher message.Publisher, topic string) *Ingestor {
	return &Ingestor{store: store, publisher: publisher, topic: topic}
}

// Ingest decodes raw, appends the event, and publishes an insert
// notification. Exactly one append happens per successful call.
//
// A publish failure does not fail the call: the record is durable once
// appended, and live consumers tolerate gaps (they reconcile from the
// query surface). The failure is logged and counted instead.
func (i *Ingestor) Ingest(ctx context.Context, raw []byte) (*models.Event, error) {
	event, err := DecodePayload(raw)
	if err != nil {
		metrics.EventsRejected.WithLabelValues("decode").Inc()
		return nil, err
	}

	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	if err := i.store.InsertEvent(ctx, event); err != nil {
		return nil, &IngestionError{Reason: "append", Err: err}
	}
	metrics.EventsIngested.WithLabelValues(event.Status).Inc()

	i.notify(ctx, event)
	return event, nil
}

// IngestEvent appends an already-decoded event. Used by callers that
// construct events directly rather than from a wire payload.
func (i *Ingestor) IngestEvent(ctx context.Context, event *models.Event) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if err := i.store.InsertEvent(ctx, event); err != nil {
		return &IngestionError{Reason: "append", Err: err}
	}
	metrics.EventsIngested.WithLabelValues(event.Status).Inc()

	i.notify(ctx, event)
	return nil
}

func (i *Ingestor) notify(ctx context.Context, event *models.Event) {
	if i.publisher == nil {
		return
	}

	logger := logging.Ctx(ctx)
	msg, err := feed.EncodeNotification(models.NewInsertNotification(event))
	if err != nil {
		logger.Error().Err(err).
			Str("event_id", event.EventID).
			Msg("Failed to encode change notification")
		return
	}
	if err := i.publisher.Publish(i.topic, msg); err != nil {
		logger.Error().Err(err).
			Str("event_id", event.EventID).
			Str("parking_spot_id", event.ParkingSpotID).
			Msg("Failed to publish change notification")
	}
}
