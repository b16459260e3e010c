// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parkdash/parkdash/internal/config"
	"github.com/parkdash/parkdash/internal/middleware"
)

// Router assembles the HTTP surface.
type Router struct {
	handler *Handler
	cfg     *config.APIConfig
}

// NewRouter creates a router around the given handler.
func NewRouter(handler *Handler, cfg *config.APIConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup configures all routes and middleware.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   router.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		if !router.cfg.RateLimitDisabled {
			r.Use(httprate.LimitByIP(router.cfg.RateLimitReqs, router.cfg.RateLimitWindow))
		}
		r.Use(middleware.PrometheusMetrics)

		r.Get("/health", router.handler.Health)

		r.Get("/events", router.handler.Events)
		r.Post("/events", router.handler.IngestEvent)
		r.Get("/events/plate/{plate_number}", router.handler.EventsByPlate)
		r.Get("/events/filter", router.handler.EventsByFilter)
	})

	// The websocket endpoint sits outside the rate limiter; a client
	// holds one long-lived connection, not repeated requests.
	r.Get("/ws", router.handler.WebSocket)

	r.Handle("/metrics", promhttp.Handler())

	return r
}
