// Parkdash - Parking Occupancy Tracking and Realtime Dashboard
// Copyright 2026 Parkdash contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parkdash/parkdash

// Command server runs the Parkdash backend: event ingestion, the
// DuckDB event store, the change feed, the websocket gateway, and the
// query API, all under a suture supervision tree.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/parkdash/parkdash/internal/api"
	"github.com/parkdash/parkdash/internal/config"
	"github.com/parkdash/parkdash/internal/database"
	"github.com/parkdash/parkdash/internal/feed"
	"github.com/parkdash/parkdash/internal/ingest"
	"github.com/parkdash/parkdash/internal/logging"
	"github.com/parkdash/parkdash/internal/models"
	"github.com/parkdash/parkdash/internal/notifier"
	"github.com/parkdash/parkdash/internal/supervisor"
	"github.com/parkdash/parkdash/internal/supervisor/services"
	"github.com/parkdash/parkdash/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting Parkdash")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event store")
		}
	}()
	logging.Info().Msg("Event store initialized")

	// Change feed transport. With NATS enabled the feed rides JetStream
	// (optionally on an embedded server); otherwise an in-process
	// channel pub/sub carries notifications within this binary.
	publisher, subscriber, topic, feedCleanup, err := setupFeed(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize change feed")
	}
	defer feedCleanup()

	ingestor := ingest.New(db, publisher, topic)
	hub := websocket.NewHub()
	watcher := notifier.New(subscriber, hub, topic)

	handler := api.NewHandler(db, ingestor, hub, cfg.API.CORSOrigins)
	router := api.NewRouter(handler, &cfg.API)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeCfg)

	tree.AddFeedService(services.NewWebSocketHubService(hub))
	tree.AddFeedService(services.NewNotifierService(watcher))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor finishes shutting down.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Parkdash stopped gracefully")
}

// setupFeed wires the change feed transport from configuration and
// returns the publisher/subscriber pair, the feed topic, and a cleanup
// function that tears the transport down in reverse order.
func setupFeed(cfg *config.Config) (message.Publisher, message.Subscriber, string, func(), error) {
	if !cfg.NATS.Enabled {
		pub, sub := feed.NewInProcess()
		cleanup := func() {
			if err := pub.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing in-process feed")
			}
		}
		logging.Info().Msg("Change feed running on in-process channel")
		return pub, sub, models.TopicCarParkUpdate, cleanup, nil
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	url := cfg.NATS.URL
	if cfg.NATS.EmbeddedServer {
		srv, err := feed.NewEmbeddedServer(&cfg.NATS)
		if err != nil {
			return nil, nil, "", nil, err
		}
		cleanups = append(cleanups, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
			}
		})
		url = srv.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	streamMgr, err := feed.NewStreamManager(url, &cfg.NATS)
	if err != nil {
		cleanup()
		return nil, nil, "", nil, err
	}
	cleanups = append(cleanups, streamMgr.Close)

	ensureCtx, ensureCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer ensureCancel()
	if err := streamMgr.EnsureStream(ensureCtx); err != nil {
		cleanup()
		return nil, nil, "", nil, err
	}

	pub, err := feed.NewNATSPublisher(feed.PublisherConfigFromNATS(&cfg.NATS, url))
	if err != nil {
		cleanup()
		return nil, nil, "", nil, err
	}
	cleanups = append(cleanups, func() {
		if err := pub.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing feed publisher")
		}
	})

	sub, err := feed.NewNATSSubscriber(feed.SubscriberConfigFromNATS(&cfg.NATS, url))
	if err != nil {
		cleanup()
		return nil, nil, "", nil, err
	}
	cleanups = append(cleanups, func() {
		if err := sub.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing feed subscriber")
		}
	})

	logging.Info().
		Str("url", url).
		Str("stream", cfg.NATS.StreamName).
		Str("subject", cfg.NATS.Subject).
		Msg("Change feed running on NATS JetStream")
	return pub, sub, cfg.NATS.Subject, cleanup, nil
}
