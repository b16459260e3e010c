// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

// Package feed implements the change feed carrying insert
// notifications from the ingestion path to realtime consumers.
//
// The feed is transport-agnostic through Watermill's message.Publisher
// and message.Subscriber interfaces. Production deployments run on
// NATS JetStream (embedded or external); tests and NATS-disabled
// deployments run on an in-process Go channel pub/sub.
//
// Delivery is best-effort from the consumer's point of view:
// subscribers watch from "now" and inserts that happen while a
// consumer is down are not replayed to it.
package feed

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/parkdash/parkdash/internal/config"
	"github.com/parkdash/parkdash/internal/logging"
)

// ChannelError wraps a change feed failure with the operation name.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("change feed %s: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// PublisherConfig holds NATS publisher settings.
type PublisherConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// SubscriberConfig holds NATS subscriber settings.
type SubscriberConfig struct {
	URL            string
	StreamName     string
	DurableName    string
	MaxReconnects  int
	ReconnectWait  time.Duration
	AckWaitTimeout time.Duration
	CloseTimeout   time.Duration
}

// NewInProcess returns a connected publisher/subscriber pair backed by
// an in-process Go channel. Used when NATS is disabled and in tests.
// Both ends must be closed by closing the returned pub/sub once.
func NewInProcess() (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		NewLoggerAdapter(logging.Logger()),
	)
	return pubSub, pubSub
}

// PublisherConfigFromNATS maps application NATS settings to publisher
// settings against the given server URL.
func PublisherConfigFromNATS(cfg *config.NATSConfig, url string) PublisherConfig {
	return PublisherConfig{
		URL:           url,
		MaxReconnects: cfg.MaxReconnects,
		ReconnectWait: cfg.ReconnectWait,
	}
}

// SubscriberConfigFromNATS maps application NATS settings to
// subscriber settings against the given server URL.
func SubscriberConfigFromNATS(cfg *config.NATSConfig, url string) SubscriberConfig {
	return SubscriberConfig{
		URL:            url,
		StreamName:     cfg.StreamName,
		DurableName:    cfg.DurableName,
		MaxReconnects:  cfg.MaxReconnects,
		ReconnectWait:  cfg.ReconnectWait,
		AckWaitTimeout: 30 * time.Second,
		CloseTimeout:   10 * time.Second,
	}
}
