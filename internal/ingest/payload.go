// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

// Package ingest accepts normalized parking event payloads, appends
// them to the event store, and publishes an insert notification to
// the change feed.
package ingest

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/parkdash/parkdash/internal/models"
)

// IngestionError reports a rejected or failed ingestion. The producer
// is expected to retry; no record is written on failure.
type IngestionError struct {
	Reason string
	Err    error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed (%s): %v", e.Reason, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// envelope captures the wrapper fields a payload may arrive in.
type envelope struct {
	Payload json.RawMessage `json:"payload"`
	Body    json.RawMessage `json:"body"`
}

// DecodePayload unwraps and decodes an incoming payload into an
// event. Device gateways deliver events in several shapes, unwrapped
// in this order:
//
//  1. an object with a "payload" field (object or stringified JSON)
//  2. the whole input as a JSON string containing the event
//  3. an object with a "body" field (object or stringified JSON)
//  4. the object itself as the event
//
// Fields absent from the payload stay empty on the returned event; no
// schema is enforced at this layer.
func DecodePayload(raw []byte) (*models.Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		if len(env.Payload) > 0 && string(env.Payload) != "null" {
			return decodeMaybeString(env.Payload)
		}
	}

	var inner string
	if err := json.Unmarshal(raw, &inner); err == nil {
		return decodeEvent([]byte(inner))
	}

	if len(env.Body) > 0 && string(env.Body) != "null" {
		return decodeMaybeString(env.Body)
	}

	return decodeEvent(raw)
}

// decodeMaybeString decodes a value that is either an event object or
// a JSON string containing one.
func decodeMaybeString(raw json.RawMessage) (*models.Event, error) {
	var inner string
	if err := json.Unmarshal(raw, &inner); err == nil {
		return decodeEvent([]byte(inner))
	}
	return decodeEvent(raw)
}

func decodeEvent(raw []byte) (*models.Event, error) {
	var event models.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, &IngestionError{Reason: "decode", Err: err}
	}
	return &event, nil
}
