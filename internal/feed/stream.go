// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

package feed

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/parkdash/parkdash/internal/config"
)

var errServerNotReady = errors.New("server not ready within timeout")

// StreamManager owns the JetStream stream holding change
// notifications.
type StreamManager struct {
	js  jetstream.JetStream
	nc  *nats.Conn
	cfg *config.NATSConfig
}

// NewStreamManager dials the NATS server at url and prepares a
// JetStream context. Close the manager when done.
func NewStreamManager(url string, cfg *config.NATSConfig) (*StreamManager, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
	)
	if err != nil {
		return nil, &ChannelError{Op: "connect stream manager", Err: err}
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, &ChannelError{Op: "jetstream context", Err: err}
	}

	return &StreamManager{js: js, nc: nc, cfg: cfg}, nil
}

// EnsureStream creates or updates the change feed stream. Retention is
// limits-based; the feed is a live channel, not a system of record,
// so old notifications age out.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	streamCfg := jetstream.StreamConfig{
		Name:        m.cfg.StreamName,
		Subjects:    []string{m.cfg.Subject},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      24 * time.Hour,
		MaxBytes:    m.cfg.MaxStore,
		Duplicates:  2 * time.Minute,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		AllowDirect: true,
	}

	if _, err := m.js.Stream(ctx, m.cfg.StreamName); err == nil {
		if _, err := m.js.UpdateStream(ctx, streamCfg); err != nil {
			return &ChannelError{Op: "update stream", Err: err}
		}
		return nil
	}

	if _, err := m.js.CreateStream(ctx, streamCfg); err != nil {
		return &ChannelError{Op: "create stream", Err: err}
	}
	return nil
}

// Info returns current stream state.
func (m *StreamManager) Info(ctx context.Context) (*jetstream.StreamInfo, error) {
	stream, err := m.js.Stream(ctx, m.cfg.StreamName)
	if err != nil {
		return nil, &ChannelError{Op: "stream info", Err: err}
	}
	info, err := stream.Info(ctx)
	if err != nil {
		return nil, &ChannelError{Op: "stream info", Err: err}
	}
	return info, nil
}

// Close releases the NATS connection.
func (m *StreamManager) Close() {
	m.nc.Close()
}
