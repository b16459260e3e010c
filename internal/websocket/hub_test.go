// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

package websocket

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/parkdash/parkdash/internal/logging"
	"github.com/parkdash/parkdash/internal/models"
)

func init() {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
}

// waitFor polls until cond returns true or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func insertNotification(eventID, spot string) *models.ChangeNotification {
	return models.NewInsertNotification(&models.Event{
		EventID:       eventID,
		ParkingSpotID: spot,
		Status:        "occupied",
		Timestamp:     "2024-01-01T00:00:00Z",
	})
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()

	client := NewClient(hub, nil)
	hub.Register <- client
	waitFor(t, func() bool { return hub.GetClientCount() == 1 }, "client not registered")

	hub.Unregister <- client
	waitFor(t, func() bool { return hub.GetClientCount() == 0 }, "client not unregistered")

	// Closed send channel signals the client was released.
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected send channel closed, got message")
		}
	case <-time.After(time.Second):
		t.Error("send channel not closed after unregister")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("RunWithContext() = %v, want context.Canceled", err)
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	clients := make([]*Client, 3)
	for i := range clients {
		clients[i] = NewClient(hub, nil)
		hub.Register <- clients[i]
	}
	waitFor(t, func() bool { return hub.GetClientCount() == 3 }, "clients not registered")

	hub.BroadcastInsert(insertNotification("e1", "S1"))

	for i, client := range clients {
		select {
		case n := <-client.send:
			if n.Document.EventID != "e1" {
				t.Errorf("client %d got event %q, want e1", i, n.Document.EventID)
			}
			if n.OperationType != models.OperationInsert {
				t.Errorf("client %d got operation %q, want insert", i, n.OperationType)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("client %d did not receive notification", i)
		}
	}
}

func TestClientsSeeNotificationsInAppendOrder(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	client := NewClient(hub, nil)
	hub.Register <- client
	waitFor(t, func() bool { return hub.GetClientCount() == 1 }, "client not registered")

	for _, id := range []string{"e1", "e2", "e3"} {
		hub.BroadcastInsert(insertNotification(id, "S1"))
	}

	for _, want := range []string{"e1", "e2", "e3"} {
		select {
		case n := <-client.send:
			if n.Document.EventID != want {
				t.Errorf("got event %q, want %q", n.Document.EventID, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("did not receive event %q", want)
		}
	}
}

func TestSlowClientIsDisconnected(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	slow := NewClient(hub, nil)
	healthy := NewClient(hub, nil)
	hub.Register <- slow
	hub.Register <- healthy
	waitFor(t, func() bool { return hub.GetClientCount() == 2 }, "clients not registered")

	// Saturate the slow client's buffer so the next fan-out drops it.
	for i := 0; i < cap(slow.send); i++ {
		slow.send <- insertNotification("fill", "S1")
	}
	hub.BroadcastInsert(insertNotification("overflow", "S1"))

	waitFor(t, func() bool { return hub.GetClientCount() == 1 }, "slow client not removed")

	// The healthy client still receives the notification.
	select {
	case n := <-healthy.send:
		if n.Document.EventID != "overflow" {
			t.Errorf("healthy client got %q, want overflow", n.Document.EventID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("healthy client did not receive notification")
	}
}

func TestDisconnectDoesNotAffectOtherClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	leaving := NewClient(hub, nil)
	staying := NewClient(hub, nil)
	hub.Register <- leaving
	hub.Register <- staying
	waitFor(t, func() bool { return hub.GetClientCount() == 2 }, "clients not registered")

	hub.Unregister <- leaving
	waitFor(t, func() bool { return hub.GetClientCount() == 1 }, "client not removed")

	hub.BroadcastInsert(insertNotification("after", "S1"))
	select {
	case n := <-staying.send:
		if n.Document.EventID != "after" {
			t.Errorf("got %q, want after", n.Document.EventID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("remaining client did not receive notification")
	}
}

func TestShutdownClosesAllClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()

	client := NewClient(hub, nil)
	hub.Register <- client
	waitFor(t, func() bool { return hub.GetClientCount() == 1 }, "client not registered")

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("RunWithContext() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	if hub.GetClientCount() != 0 {
		t.Errorf("GetClientCount() = %d after shutdown, want 0", hub.GetClientCount())
	}
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected closed send channel")
		}
	default:
		t.Error("send channel not closed after shutdown")
	}
}

func TestBroadcastInsertDropsWhenQueueFull(t *testing.T) {
	// Hub not running; the broadcast queue fills and further
	// notifications are dropped without blocking.
	hub := NewHub()
	for i := 0; i < cap(hub.broadcast)+10; i++ {
		hub.BroadcastInsert(insertNotification("e", "S1"))
	}
}

func TestClientIDsAreMonotonic(t *testing.T) {
	hub := NewHub()
	a := NewClient(hub, nil)
	b := NewClient(hub, nil)
	if a.ID() >= b.ID() {
		t.Errorf("client IDs not increasing: %d then %d", a.ID(), b.ID())
	}
}
