// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkarlsen/roadscan/internal/config"
	"github.com/mkarlsen/roadscan/internal/middleware"
)

// Router wires the handler set into the chi routing tree.
type Router struct {
	handler *Handler
	cfg     *config.ServerConfig
}

// NewRouter creates the router over the given handlers.
func NewRouter(handler *Handler, cfg *config.ServerConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup builds the full routing tree.
//
// Write endpoints (session load, playback control) get a tighter rate
// limit than the read endpoints; a reviewer scrubbing through frames
// should never be throttled by someone hammering load.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(router.cfg.RateLimitReqs, router.cfg.RateLimitWindow))
			r.Get("/sessions", router.handler.Sessions)
			r.Get("/session", router.handler.Session)
			r.Get("/session/frames", router.handler.Frames)
			r.Get("/session/frames/{index}", router.handler.Frame)
			r.Get("/session/gps", router.handler.GPSTrace)
			r.Get("/session/telemetry", router.handler.Telemetry)
			r.Get("/session/cameras", router.handler.Cameras)
			r.Get("/playback", router.handler.PlaybackState)
		})

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(30, time.Minute))
			r.Post("/session/load", router.handler.LoadSession)
		})

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(120, time.Minute))
			r.Post("/playback/play", router.handler.PlaybackPlay)
			r.Post("/playback/pause", router.handler.PlaybackPause)
			r.Post("/playback/seek", router.handler.PlaybackSeek)
			r.Post("/playback/speed", router.handler.PlaybackSpeed)
		})

		r.Get("/ws", router.handler.WebSocket(newUpgrader(router.cfg.CORSOrigins)))
	})

	return r
}
