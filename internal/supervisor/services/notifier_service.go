// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

package services

import (
	"context"
)

// FeedWatcher matches *notifier.Notifier's Run method.
type FeedWatcher interface {
	Run(ctx context.Context) error
}

// NotifierService supervises the change feed watcher. When a watch
// session ends (feed error or closed channel) the supervisor restarts
// it; the new session watches from "now" without replaying the gap.
type NotifierService struct {
	watcher FeedWatcher
	name    string
}

// NewNotifierService wraps a feed watcher as a supervised service.
func NewNotifierService(watcher FeedWatcher) *NotifierService {
	return &NotifierService{watcher: watcher, name: "change-notifier"}
}

// Serve implements suture.Service.
func (n *NotifierService) Serve(ctx context.Context) error {
	return n.watcher.Run(ctx)
}

// String implements fmt.Stringer for supervisor logging.
func (n *NotifierService) String() string {
	return n.name
}
