// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

// Package metrics defines Prometheus collectors for the ingestion
// pipeline, the change feed, and the HTTP/WebSocket surfaces. All
// collectors register themselves via promauto at init time and are
// exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion pipeline metrics.
var (
	// EventsIngested counts events appended to the store, by status.
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkdash_events_ingested_total",
			Help: "Total number of parking events appended to the store",
		},
		[]string{"status"},
	)

	// EventsRejected counts ingestion requests rejected before the
	// store append, by reason (decode, validation).
	EventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkdash_events_rejected_total",
			Help: "Total number of ingestion requests rejected before the store append",
		},
		[]string{"reason"},
	)

	// StoreErrors counts failed store operations by operation name.
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkdash_store_errors_total",
			Help: "Total number of failed event store operations",
		},
		[]string{"operation"},
	)

	// StoreQueryDuration observes event store query latency.
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parkdash_store_query_duration_seconds",
			Help:    "Event store query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Change feed metrics.
var (
	// NotificationsPublished counts change notifications published to
	// the feed after a successful append.
	NotificationsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parkdash_notifications_published_total",
			Help: "Total number of change notifications published to the feed",
		},
	)

	// NotificationsPublishFailed counts publish attempts that failed or
	// were short-circuited by the breaker. The append still succeeds.
	NotificationsPublishFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parkdash_notifications_publish_failed_total",
			Help: "Total number of change notification publishes that failed",
		},
	)

	// NotificationsForwarded counts insert notifications forwarded to
	// the WebSocket hub.
	NotificationsForwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parkdash_notifications_forwarded_total",
			Help: "Total number of insert notifications forwarded to connected clients",
		},
	)

	// NotificationsFiltered counts feed messages dropped by the
	// insert-only filter.
	NotificationsFiltered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parkdash_notifications_filtered_total",
			Help: "Total number of feed messages dropped by the insert-only filter",
		},
	)
)

// WebSocket metrics.
var (
	// WebSocketConnections tracks currently connected clients.
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "parkdash_websocket_connections",
			Help: "Number of currently connected WebSocket clients",
		},
	)

	// WebSocketMessagesSent counts messages delivered to clients.
	WebSocketMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parkdash_websocket_messages_sent_total",
			Help: "Total number of messages sent to WebSocket clients",
		},
	)

	// WebSocketMessagesDropped counts messages dropped because a client
	// send buffer was full.
	WebSocketMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parkdash_websocket_messages_dropped_total",
			Help: "Total number of messages dropped due to slow WebSocket clients",
		},
	)
)

// HTTP metrics.
var (
	// HTTPRequestsTotal counts API requests by method, path and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkdash_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes API request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parkdash_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
