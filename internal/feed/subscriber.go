// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

package feed

import (
	"context"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/parkdash/parkdash/internal/logging"
)

// NATSSubscriber consumes change notifications from JetStream.
//
// Consumers are created with DeliverNew: a subscription observes
// inserts from the moment it attaches, and a reconnect resumes from
// "now" rather than replaying the gap.
type NATSSubscriber struct {
	subscriber message.Subscriber
}

// NewNATSSubscriber connects a durable JetStream subscriber bound to
// the configured stream.
func NewNATSSubscriber(cfg SubscriberConfig) (*NATSSubscriber, error) {
	logger := NewLoggerAdapter(logging.Logger())

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logging.Error().Err(err).Msg("Feed subscriber disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("Feed subscriber reconnected")
		}),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(3),
		natsgo.MaxAckPending(256),
		natsgo.AckWait(cfg.AckWaitTimeout),
		natsgo.DeliverNew(),
	}
	autoProvision := true
	if cfg.StreamName != "" {
		subOpts = append(subOpts, natsgo.BindStream(cfg.StreamName))
		autoProvision = false
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:            cfg.URL,
		AckWaitTimeout: cfg.AckWaitTimeout,
		CloseTimeout:   cfg.CloseTimeout,
		NatsOptions:    natsOpts,
		Unmarshaler:    &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    autoProvision,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, &ChannelError{Op: "connect subscriber", Err: err}
	}

	return &NATSSubscriber{subscriber: sub}, nil
}

// Subscribe returns a channel of messages for the topic. The channel
// closes when ctx is canceled or the subscriber is closed.
func (s *NATSSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	messages, err := s.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, &ChannelError{Op: "subscribe", Err: err}
	}
	return messages, nil
}

// Close shuts down the subscriber and closes open message channels.
func (s *NATSSubscriber) Close() error {
	if err := s.subscriber.Close(); err != nil {
		return &ChannelError{Op: "close subscriber", Err: err}
	}
	return nil
}
