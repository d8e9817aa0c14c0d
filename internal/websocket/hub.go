// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

// Package websocket pushes playback position and session lifecycle events
// to connected review clients.
package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mkarlsen/roadscan/internal/logging"
	"github.com/mkarlsen/roadscan/internal/metrics"
	"github.com/mkarlsen/roadscan/internal/models"
)

// Message types pushed to clients.
const (
	MessageTypePlayback        = "playback_state"
	MessageTypeSessionReplaced = "session_replaced"
	MessageTypePing            = "ping"
	MessageTypePong            = "pong"
)

// Message is the wire envelope for every push.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of active clients and fans broadcasts out to them.
// Clients are iterated in ID order so delivery order is reproducible.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an empty hub. Run it under the supervisor with
// RunWithContext before registering clients.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext runs the hub's event loop until the context is canceled,
// then closes every connected client and returns ctx.Err().
//
// Lifecycle events take priority over broadcasts so the client set is
// consistent before any message is fanned out; Go's select picks randomly
// among ready channels, so the priority is enforced with staged selects.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// Serve implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	return h.RunWithContext(ctx)
}

// String implements fmt.Stringer for supervisor logs.
func (h *Hub) String() string {
	return "websocket-hub"
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	metrics.WebSocketConnections.Set(float64(count))
	logging.Info().Int("total_clients", count).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	metrics.WebSocketConnections.Set(float64(count))
	logging.Info().Int("total_clients", count).Msg("websocket client disconnected")
}

// broadcastToClients fans one message out in client-ID order. A client
// whose send buffer is full is dropped; a reviewer UI that cannot keep up
// with position pushes reconnects rather than stalling everyone else.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
			metrics.WebSocketMessagesSent.WithLabelValues(message.Type).Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
	if len(toRemove) > 0 {
		metrics.WebSocketConnections.Set(float64(len(h.clients)))
		logging.Warn().Int("dropped", len(toRemove)).Msg("dropped slow websocket clients")
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	metrics.WebSocketConnections.Set(0)
	logging.Info().
		Str("component", "websocket-hub").
		AnErr("reason", ctx.Err()).
		Int("clients_closed", len(clients)).
		Msg("websocket hub stopped")
}

// BroadcastPlayback pushes the playback state to every client. Dropped
// silently when the broadcast queue is full; the next tick supersedes it
// anyway.
func (h *Hub) BroadcastPlayback(state models.PlaybackState) {
	select {
	case h.broadcast <- Message{Type: MessageTypePlayback, Data: state}:
	default:
		logging.Warn().Msg("broadcast channel full, dropping playback message")
	}
}

// SessionReplacedData announces a newly published session snapshot.
type SessionReplacedData struct {
	Timestamp   string `json:"timestamp"`
	SessionName string `json:"session_name"`
	Generation  uint64 `json:"generation"`
	FrameCount  int    `json:"frame_count"`
}

// BroadcastSessionReplaced notifies clients that a new snapshot replaced
// the session they were viewing.
func (h *Hub) BroadcastSessionReplaced(snapshot *models.SessionSnapshot) {
	data := SessionReplacedData{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		SessionName: snapshot.SessionName,
		Generation:  snapshot.Generation,
		FrameCount:  snapshot.FrameCount(),
	}

	select {
	case h.broadcast <- Message{Type: MessageTypeSessionReplaced, Data: data}:
		logging.Info().Int("clients", h.GetClientCount()).Str("session", snapshot.SessionName).Msg("broadcast session_replaced")
	default:
		logging.Warn().Msg("broadcast channel full, dropping session_replaced message")
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
