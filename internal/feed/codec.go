// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

package feed

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/parkdash/parkdash/internal/models"
)

// metadata keys carried on feed messages.
const (
	MetadataOperationType = "operation_type"
	MetadataSpotID        = "parking_spot_id"
)

// EncodeNotification serializes a change notification into a Watermill
// message. The operation type is duplicated into metadata so consumers
// can filter without decoding the payload.
func EncodeNotification(n *models.ChangeNotification) (*message.Message, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, &ChannelError{Op: "encode", Err: err}
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataOperationType, n.OperationType)
	if n.Document != nil {
		msg.Metadata.Set(MetadataSpotID, n.Document.ParkingSpotID)
	}
	return msg, nil
}

// DecodeNotification deserializes a feed message back into a change
// notification.
func DecodeNotification(msg *message.Message) (*models.ChangeNotification, error) {
	var n models.ChangeNotification
	if err := json.Unmarshal(msg.Payload, &n); err != nil {
		return nil, &ChannelError{Op: "decode", Err: err}
	}
	return &n, nil
}
