// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

package feed

import (
	"errors"
	"sync"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/parkdash/parkdash/internal/logging"
	"github.com/parkdash/parkdash/internal/metrics"
)

var errPublisherClosed = errors.New("publisher is closed")

// NATSPublisher publishes change notifications to JetStream behind a
// circuit breaker. A tripped breaker fails publishes fast so the
// ingestion path never blocks on a sick feed; the store append has
// already succeeded by the time Publish is called.
type NATSPublisher struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[interface{}]
	mu        sync.RWMutex
	closed    bool
}

// NewNATSPublisher connects a JetStream publisher. The stream must
// already exist (see StreamManager.EnsureStream).
func NewNATSPublisher(cfg PublisherConfig) (*NATSPublisher, error) {
	logger := NewLoggerAdapter(logging.Logger())

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logging.Error().Err(err).Msg("Feed publisher disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("Feed publisher reconnected")
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, &ChannelError{Op: "connect publisher", Err: err}
	}

	breaker := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "feed-publisher",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Feed publisher breaker state changed")
		},
	})

	return &NATSPublisher{publisher: pub, breaker: breaker}, nil
}

// Publish sends a message to the topic. The message UUID doubles as
// Nats-Msg-Id for JetStream deduplication.
func (p *NATSPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return &ChannelError{Op: "publish", Err: errPublisherClosed}
	}
	p.mu.RUnlock()

	for _, msg := range messages {
		if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
			msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
		}
	}

	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.publisher.Publish(topic, messages...)
	})
	if err != nil {
		metrics.NotificationsPublishFailed.Inc()
		return &ChannelError{Op: "publish", Err: err}
	}
	metrics.NotificationsPublished.Inc()
	return nil
}

// Close shuts down the underlying publisher. Subsequent publishes fail.
func (p *NATSPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	if err := p.publisher.Close(); err != nil {
		return &ChannelError{Op: "close publisher", Err: err}
	}
	return nil
}
