// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

// Package websocket implements the realtime gateway. A single hub
// relays every insert notification to every connected client,
// unfiltered. Clients receive notifications from the moment they
// connect; history is served by the query surface, never replayed
// over this channel.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/parkdash/parkdash/internal/logging"
	"github.com/parkdash/parkdash/internal/metrics"
	"github.com/parkdash/parkdash/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown
	// path (e.g. SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was
	// exceeded, possibly a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Hub maintains the set of active clients and broadcasts change
// notifications to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *models.ChangeNotification
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan *models.ChangeNotification, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext runs the hub until ctx is canceled, then closes all
// connected clients and returns ctx.Err(). Designed for suture
// supervision: a restart never leaves orphaned connections.
//
// Selection is priority-based because Go's select picks randomly among
// ready channels: shutdown first, then client lifecycle, then
// broadcasts. Client state is always settled before a message fans
// out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case n := <-h.broadcast:
			h.broadcastToClients(n)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WebSocketConnections.Inc()
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	removed := false
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		removed = true
	}
	total := len(h.clients)
	h.mu.Unlock()
	if removed {
		metrics.WebSocketConnections.Dec()
		logging.Info().Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// BroadcastInsert queues an insert notification for fan-out to all
// connected clients. A full broadcast queue drops the notification;
// clients reconcile missed state from the query surface.
func (h *Hub) BroadcastInsert(n *models.ChangeNotification) {
	select {
	case h.broadcast <- n:
	default:
		metrics.WebSocketMessagesDropped.Inc()
		logging.Warn().Msg("broadcast channel full, dropping change notification")
	}
}

// broadcastToClients fans a notification out to every client in
// ascending client ID order. Clients are sorted so delivery order is
// reproducible; map iteration order is not. A client whose send
// buffer is full is disconnected rather than blocking the hub.
func (h *Hub) broadcastToClients(n *models.ChangeNotification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- n:
			metrics.WebSocketMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.WebSocketConnections.Dec()
		metrics.WebSocketMessagesDropped.Inc()
		logging.Warn().Uint64("client_id", client.id).Msg("disconnecting slow websocket client")
	}
}

// closeAllClients closes all connected clients in ID order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
		metrics.WebSocketConnections.Dec()
	}
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	// ctx.Err() is expected during graceful shutdown, not an error.
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
