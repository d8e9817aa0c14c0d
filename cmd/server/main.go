// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

// Package main is the entry point for the Roadscan server.
//
// Roadscan assembles road-inspection survey sessions from a metadata
// provider into a synchronized review timeline and serves it over a REST
// API with websocket push for playback state.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered Koanf v2 sources (defaults, YAML file, env)
//  2. Provider client: HTTP client wrapped in a circuit breaker
//  3. Session manager: aggregation and timeline synthesis
//  4. Playback controller and ticker
//  5. WebSocket hub for real-time state pushes
//  6. HTTP server: chi router with the REST surface
//
// The websocket hub, playback ticker, and HTTP server run as services
// under a suture supervisor tree; a crash in one layer restarts only
// that layer.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - ROADSCAN_* environment variables
//   - Config file (config.yaml, or ROADSCAN_CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Closes websocket clients and stops the playback ticker
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkarlsen/roadscan/internal/api"
	"github.com/mkarlsen/roadscan/internal/config"
	"github.com/mkarlsen/roadscan/internal/logging"
	"github.com/mkarlsen/roadscan/internal/models"
	"github.com/mkarlsen/roadscan/internal/playback"
	"github.com/mkarlsen/roadscan/internal/provider"
	"github.com/mkarlsen/roadscan/internal/session"
	"github.com/mkarlsen/roadscan/internal/supervisor"
	ws "github.com/mkarlsen/roadscan/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available).
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("provider_url", cfg.Provider.BaseURL).
		Str("listen", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Msg("Starting Roadscan")

	// Provider client with circuit breaker so a flapping provider does
	// not stall the review UI.
	client := provider.NewBreakerClient(&cfg.Provider)
	if err := client.Ping(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Provider not reachable at startup (will retry on load)")
	} else {
		logging.Info().Msg("Connected to provider")
	}

	manager := session.NewManager(client, cfg.Timeline)
	controller := playback.NewController(cfg.Playback)
	hub := ws.NewHub()

	// Every published session rebinds the playback controller and tells
	// connected clients to refetch. Registration happens before any Load.
	manager.OnReplace(func(snapshot *models.SessionSnapshot) {
		controller.Reset(snapshot)
		hub.BroadcastSessionReplaced(snapshot)
		hub.BroadcastPlayback(controller.State())
	})

	handler := api.NewHandler(manager, controller, hub, client)
	router := api.NewRouter(handler, &cfg.Server)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Bridge zerolog to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddRealtimeService(hub)
	tree.AddRealtimeService(playback.NewTickerService(controller, hub.BroadcastPlayback))
	tree.AddAPIService(supervisor.NewHTTPServerService(httpServer, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Best-effort initial load; the configured session (or the provider's
	// first session when unset) is fetched in the background so startup
	// never blocks on the provider.
	go func() {
		snapshot, err := manager.Load(ctx, cfg.Provider.Session)
		if err != nil {
			logging.Warn().Err(err).Msg("Initial session load failed; load via API when ready")
			return
		}
		logging.Info().
			Str("session", snapshot.SessionName).
			Int("frames", len(snapshot.Timeline)).
			Msg("Initial session loaded")
	}()

	logging.Info().Msg("Supervisor tree starting")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("Supervisor tree terminated")
	}

	logging.Info().Msg("Shutdown complete")
}
