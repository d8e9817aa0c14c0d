// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package api

import (
	"net/http"

	gorilla "github.com/gorilla/websocket"

	"github.com/mkarlsen/roadscan/internal/logging"
	"github.com/mkarlsen/roadscan/internal/websocket"
)

// newUpgrader builds the websocket upgrader with the configured origin
// allowlist. A "*" entry allows any origin.
func newUpgrader(allowedOrigins []string) gorilla.Upgrader {
	allowAll := false
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		origins[o] = true
	}

	return gorilla.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			// Non-browser clients send no Origin header.
			return origin == "" || origins[origin]
		},
	}
}

// WebSocket upgrades the connection and hands it to the hub. The client
// immediately receives playback pushes on every tick and session_replaced
// events when a new snapshot lands.
func (h *Handler) WebSocket(upgrader gorilla.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		client := websocket.NewClient(h.hub, conn)
		h.hub.Register <- client
		client.Start()
	}
}
