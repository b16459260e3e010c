// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	gorillaws "github.com/gorilla/websocket"

	"github.com/parkdash/parkdash/internal/ingest"
	"github.com/parkdash/parkdash/internal/logging"
	"github.com/parkdash/parkdash/internal/models"
	"github.com/parkdash/parkdash/internal/validation"
	"github.com/parkdash/parkdash/internal/websocket"
)

// maxIngestBody caps ingestion request bodies.
const maxIngestBody = 1 << 20 // 1MB

// Store is the read surface the query handlers need.
type Store interface {
	GetAllEvents(ctx context.Context) ([]models.Event, error)
	GetEventsByPlate(ctx context.Context, plateNumber string) ([]models.Event, error)
	GetEventsByFilter(ctx context.Context, filter models.Filter) ([]models.Event, error)
	Ping(ctx context.Context) error
}

// Ingestor is the ingestion surface the POST handler needs.
type Ingestor interface {
	Ingest(ctx context.Context, raw []byte) (*models.Event, error)
}

// Handler holds dependencies for all HTTP handlers.
type Handler struct {
	store    Store
	ingestor Ingestor
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
}

// NewHandler creates a handler. allowedOrigins follows the CORS
// configuration; a "*" entry admits any websocket origin.
func NewHandler(store Store, ingestor Ingestor, hub *websocket.Hub, allowedOrigins []string) *Handler {
	return &Handler{
		store:    store,
		ingestor: ingestor,
		hub:      hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	allowedSet := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		allowedSet[origin] = true
	}
	return func(r *http.Request) bool {
		return allowedSet[r.Header.Get("Origin")]
	}
}

// Events handles GET /api/events.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	events, err := h.store.GetAllEvents(r.Context())
	if err != nil {
		rw.StoreError(err)
		return
	}
	rw.SuccessWithCount(events, len(events))
}

// EventsByPlate handles GET /api/events/plate/{plate_number}.
func (h *Handler) EventsByPlate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	plate := chi.URLParam(r, "plate_number")
	if plate == "" {
		rw.BadRequest("plate_number is required")
		return
	}

	events, err := h.store.GetEventsByPlate(r.Context(), plate)
	if err != nil {
		rw.StoreError(err)
		return
	}
	rw.SuccessWithCount(events, len(events))
}

// filterRequest captures the query parameters of the filter endpoint.
type filterRequest struct {
	ParkingSpotID string `validate:"omitempty,max=256"`
	DeviceID      string `validate:"omitempty,max=256"`
	Timestamp     string `validate:"omitempty,event_timestamp"`
}

// EventsByFilter handles GET /api/events/filter. All provided fields
// must match exactly; absent fields are unconstrained.
func (h *Handler) EventsByFilter(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	q := r.URL.Query()
	req := filterRequest{
		ParkingSpotID: q.Get("parking_spot_id"),
		DeviceID:      q.Get("device_id"),
		Timestamp:     q.Get("timestamp"),
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		details := make([]string, 0, len(verr.Errors()))
		for _, fieldErr := range verr.Errors() {
			details = append(details, fieldErr.Error())
		}
		rw.ValidationError("invalid filter parameters", details)
		return
	}

	events, err := h.store.GetEventsByFilter(r.Context(), models.Filter{
		ParkingSpotID: req.ParkingSpotID,
		DeviceID:      req.DeviceID,
		Timestamp:     req.Timestamp,
	})
	if err != nil {
		rw.StoreError(err)
		return
	}
	rw.SuccessWithCount(events, len(events))
}

// IngestEvent handles POST /api/events. The body may be a bare event
// object, a JSON string, or a payload/body wrapper; see
// ingest.DecodePayload.
func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBody))
	if err != nil {
		rw.BadRequest("failed to read request body")
		return
	}

	event, err := h.ingestor.Ingest(r.Context(), body)
	if err != nil {
		var ingErr *ingest.IngestionError
		if errors.As(err, &ingErr) && ingErr.Reason == "decode" {
			rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeIngestionError, "malformed event payload", nil)
			return
		}
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("Event ingestion failed")
		rw.Error(http.StatusInternalServerError, ErrCodeIngestionError, "event ingestion failed")
		return
	}

	rw.Created(event)
}

// WebSocket handles GET /ws, upgrading the connection and attaching
// the client to the hub. The client receives all insert notifications
// from this moment on; no history is replayed.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error to the client.
		logger := logging.Ctx(r.Context())
		logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()
}

// healthStatus is the payload of the health endpoint.
type healthStatus struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Clients   int    `json:"websocket_clients"`
	Timestamp string `json:"timestamp"`
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := healthStatus{
		Status:    "ok",
		Database:  "ok",
		Clients:   h.hub.GetClientCount(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.store.Ping(ctx); err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("Health check store ping failed")
		status.Status = "degraded"
		status.Database = "unreachable"
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{Success: false, Data: status, Meta: rw.meta()})
		return
	}
	rw.Success(status)
}
