// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

package api

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/parkdash/parkdash/internal/config"
	"github.com/parkdash/parkdash/internal/ingest"
	"github.com/parkdash/parkdash/internal/models"
	"github.com/parkdash/parkdash/internal/websocket"
)

func TestWebSocketReceivesBroadcasts(t *testing.T) {
	store := &fakeStore{}
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	cfg := &config.APIConfig{CORSOrigins: []string{"*"}, RateLimitDisabled: true, RateLimitReqs: 1000, RateLimitWindow: time.Minute}
	handler := NewHandler(store, ingest.New(store, nil, models.TopicCarParkUpdate), hub, cfg.CORSOrigins)
	server := httptest.NewServer(NewRouter(handler, cfg).Setup())
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer func() { _ = conn.Close() }()
	if resp != nil {
		_ = resp.Body.Close()
	}

	// Wait for the hub to register the client before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.GetClientCount() != 1 {
		t.Fatal("client never registered with hub")
	}

	hub.BroadcastInsert(models.NewInsertNotification(&models.Event{
		EventID:       "e1",
		ParkingSpotID: "S1",
		Status:        "occupied",
		Timestamp:     "2024-01-01T00:00:00Z",
	}))

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline() error = %v", err)
	}
	var n models.ChangeNotification
	if err := conn.ReadJSON(&n); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if n.OperationType != models.OperationInsert {
		t.Errorf("OperationType = %q, want insert", n.OperationType)
	}
	if n.Document == nil || n.Document.EventID != "e1" {
		t.Errorf("Document = %+v, want event e1", n.Document)
	}
}

func TestWebSocketDisconnectReleasesClient(t *testing.T) {
	store := &fakeStore{}
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	cfg := &config.APIConfig{CORSOrigins: []string{"*"}, RateLimitDisabled: true, RateLimitReqs: 1000, RateLimitWindow: time.Minute}
	handler := NewHandler(store, ingest.New(store, nil, models.TopicCarParkUpdate), hub, cfg.CORSOrigins)
	server := httptest.NewServer(NewRouter(handler, cfg).Setup())
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	_ = conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := hub.GetClientCount(); got != 0 {
		t.Errorf("GetClientCount() = %d after disconnect, want 0", got)
	}
}
