// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mkarlsen/roadscan/internal/logging"
	"github.com/mkarlsen/roadscan/internal/models"
	"github.com/mkarlsen/roadscan/internal/playback"
	"github.com/mkarlsen/roadscan/internal/provider"
	"github.com/mkarlsen/roadscan/internal/session"
	"github.com/mkarlsen/roadscan/internal/websocket"
)

// Frame paging bounds for the timeline listing endpoint.
const (
	defaultFrameLimit = 100
	maxFrameLimit     = 500
)

// Handler holds the dependencies shared by all endpoint handlers.
type Handler struct {
	manager    *session.Manager
	controller *playback.Controller
	hub        *websocket.Hub
	client     provider.Client
}

// NewHandler creates the API handler set.
func NewHandler(manager *session.Manager, controller *playback.Controller,
	hub *websocket.Hub, client provider.Client) *Handler {
	return &Handler{
		manager:    manager,
		controller: controller,
		hub:        hub,
		client:     client,
	}
}

// HealthLive reports process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady reports readiness: the data provider must answer.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if err := h.client.Ping(r.Context()); err != nil {
		rw.ServiceUnavailable("survey data provider unreachable")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}

// Health reports overall status plus whether a session is loaded.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	snapshot := h.manager.Current()
	status := map[string]interface{}{
		"status":         "ok",
		"session_loaded": snapshot != nil,
		"clients":        h.hub.GetClientCount(),
	}
	if snapshot != nil {
		status["session"] = snapshot.SessionName
		status["frames"] = snapshot.FrameCount()
	}
	NewResponseWriter(w, r).Success(status)
}

// LoadSession assembles and publishes a snapshot for the requested session.
func (h *Handler) LoadSession(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req LoadSessionRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	snapshot, err := h.manager.Load(r.Context(), req.Session)
	switch {
	case errors.Is(err, session.ErrLoadSuperseded):
		rw.Conflict("a newer session load already completed")
		return
	case errors.Is(err, session.ErrManifestUnavailable):
		rw.ProviderError(err)
		return
	case err != nil:
		logging.Error().Err(err).Str("session", req.Session).Msg("Session load failed")
		rw.InternalError("session load failed")
		return
	}

	rw.Success(snapshot.Summarize())
}

// Sessions lists the sessions known to the provider, with per-camera
// anomaly counts, so a reviewer can pick one to load.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	summary, err := h.client.Dashboard(r.Context())
	if err != nil {
		rw.ProviderError(err)
		return
	}
	rw.Success(summary)
}

// Session returns the summary of the currently loaded session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	snapshot := h.manager.Current()
	if snapshot == nil {
		rw.NotFound("no session loaded")
		return
	}
	rw.Success(snapshot.Summarize())
}

// framePage is the paged timeline listing payload.
type framePage struct {
	Frames []models.TimelineFrame `json:"frames"`
	Offset int                    `json:"offset"`
	Limit  int                    `json:"limit"`
	Total  int                    `json:"total"`
}

// Frames returns a page of timeline frames.
func (h *Handler) Frames(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	snapshot := h.manager.Current()
	if snapshot == nil {
		rw.NotFound("no session loaded")
		return
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", defaultFrameLimit)
	if offset < 0 || limit <= 0 {
		rw.BadRequest("offset must be >= 0 and limit > 0")
		return
	}
	if limit > maxFrameLimit {
		limit = maxFrameLimit
	}

	total := snapshot.FrameCount()
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	rw.Success(framePage{
		Frames: snapshot.Timeline[offset:end],
		Offset: offset,
		Limit:  limit,
		Total:  total,
	})
}

// Frame returns a single timeline frame by index.
func (h *Handler) Frame(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	snapshot := h.manager.Current()
	if snapshot == nil {
		rw.NotFound("no session loaded")
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		rw.BadRequest("frame index must be an integer")
		return
	}

	frame := snapshot.FrameAt(index)
	if frame == nil {
		rw.NotFound("frame index out of range")
		return
	}
	rw.Success(frame)
}

// GPSTrace returns the full GPS trace with per-fix source tags.
func (h *Handler) GPSTrace(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	snapshot := h.manager.Current()
	if snapshot == nil {
		rw.NotFound("no session loaded")
		return
	}
	rw.Success(map[string]interface{}{
		"fixes": snapshot.GPSTrace,
		"stats": snapshot.GPSStats,
	})
}

// Telemetry returns the session's system telemetry samples.
func (h *Handler) Telemetry(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	snapshot := h.manager.Current()
	if snapshot == nil {
		rw.NotFound("no session loaded")
		return
	}
	rw.Success(snapshot.SystemSamples)
}

// Cameras returns the per-camera aggregates.
func (h *Handler) Cameras(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	snapshot := h.manager.Current()
	if snapshot == nil {
		rw.NotFound("no session loaded")
		return
	}
	rw.Success(snapshot.Cameras)
}

// PlaybackState returns the current playback state.
func (h *Handler) PlaybackState(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.controller.State())
}

// PlaybackPlay starts playback.
func (h *Handler) PlaybackPlay(w http.ResponseWriter, r *http.Request) {
	state := h.controller.Play()
	h.hub.BroadcastPlayback(state)
	NewResponseWriter(w, r).Success(state)
}

// PlaybackPause pauses playback in place.
func (h *Handler) PlaybackPause(w http.ResponseWriter, r *http.Request) {
	state := h.controller.Pause()
	h.hub.BroadcastPlayback(state)
	NewResponseWriter(w, r).Success(state)
}

// PlaybackSeek jumps to a frame index, clamped into range.
func (h *Handler) PlaybackSeek(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req SeekRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	state := h.controller.Seek(*req.Index)
	h.hub.BroadcastPlayback(state)
	rw.Success(state)
}

// PlaybackSpeed changes the playback rate.
func (h *Handler) PlaybackSpeed(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req SpeedRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	state := h.controller.SetSpeed(req.Speed)
	h.hub.BroadcastPlayback(state)
	rw.Success(state)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}
