// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

// Package notifier bridges the change feed to the realtime gateway.
// It consumes feed messages, keeps only insert notifications, and
// forwards them to the hub for fan-out.
package notifier

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/parkdash/parkdash/internal/feed"
	"github.com/parkdash/parkdash/internal/logging"
	"github.com/parkdash/parkdash/internal/metrics"
	"github.com/parkdash/parkdash/internal/models"
)

// Broadcaster is the slice of the hub the notifier needs.
type Broadcaster interface {
	BroadcastInsert(n *models.ChangeNotification)
}

// Subscriber abstracts the change feed consumer side.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// Notifier runs one watch session over the change feed topic and
// forwards insert notifications to the broadcaster.
//
// A session ends when the feed channel closes or ctx is canceled. The
// notifier itself does not reconnect; supervision restarts it, and the
// new session watches from "now". Inserts that happened in between are
// not replayed.
type Notifier struct {
	subscriber Subscriber
	hub        Broadcaster
	topic      string
}

// New creates a notifier for the given feed topic.
func New(subscriber Subscriber, hub Broadcaster, topic string) *Notifier {
	return &Notifier{subscriber: subscriber, hub: hub, topic: topic}
}

// Run consumes the feed until ctx is canceled or the feed channel
// closes. Returns nil on a closed channel so a supervisor treats it
// as a restartable stop rather than a crash loop with backoff reset.
func (n *Notifier) Run(ctx context.Context) error {
	messages, err := n.subscriber.Subscribe(ctx, n.topic)
	if err != nil {
		logging.Error().Err(err).Str("topic", n.topic).Msg("Change feed subscribe failed")
		return err
	}

	logging.Info().Str("topic", n.topic).Msg("Change feed watch started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				logging.Warn().Str("topic", n.topic).Msg("Change feed channel closed, watch session ended")
				return nil
			}
			n.handle(msg)
		}
	}
}

// handle decodes one feed message and forwards it if it is an insert.
// Malformed or non-insert messages are acked and dropped; redelivering
// them cannot make them forwardable.
func (n *Notifier) handle(msg *message.Message) {
	defer msg.Ack()

	notification, err := feed.DecodeNotification(msg)
	if err != nil {
		logging.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable feed message")
		metrics.NotificationsFiltered.Inc()
		return
	}

	if !notification.IsInsert() {
		logging.Debug().
			Str("operation_type", notification.OperationType).
			Msg("Suppressing non-insert change notification")
		metrics.NotificationsFiltered.Inc()
		return
	}

	n.hub.BroadcastInsert(notification)
	metrics.NotificationsForwarded.Inc()
}
