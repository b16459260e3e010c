// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(NotificationsPublished)
	NotificationsPublished.Inc()
	after := testutil.ToFloat64(NotificationsPublished)
	if after != before+1 {
		t.Errorf("NotificationsPublished = %v, want %v", after, before+1)
	}
}

func TestLabeledCounters(t *testing.T) {
	before := testutil.ToFloat64(EventsIngested.WithLabelValues("occupied"))
	EventsIngested.WithLabelValues("occupied").Inc()
	after := testutil.ToFloat64(EventsIngested.WithLabelValues("occupied"))
	if after != before+1 {
		t.Errorf("EventsIngested{status=occupied} = %v, want %v", after, before+1)
	}
}

func TestConnectionGauge(t *testing.T) {
	WebSocketConnections.Set(0)
	WebSocketConnections.Inc()
	WebSocketConnections.Inc()
	WebSocketConnections.Dec()
	if got := testutil.ToFloat64(WebSocketConnections); got != 1 {
		t.Errorf("WebSocketConnections = %v, want 1", got)
	}
}
