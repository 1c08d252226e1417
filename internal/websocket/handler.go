// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/aggregator/internal/logging"
	"github.com/tomtom215/aggregator/internal/metrics"
)

const (
	handshakeTimeout = 10 * time.Second
	registerTimeout  = 5 * time.Second
)

// Handler upgrades HTTP requests to live feed connections.
type Handler struct {
	hub      *Hub
	origins  map[string]struct{}
	wildcard bool
	upgrader websocket.Upgrader
}

// NewHandler returns an http.Handler serving the live feed for hub.
// allowedOrigins follows the CORS origin list; "*" accepts any origin,
// including clients that send no Origin header.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	h := &Handler{
		hub:     hub,
		origins: make(map[string]struct{}, len(allowedOrigins)),
	}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			h.wildcard = true
			continue
		}
		h.origins[origin] = struct{}{}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: handshakeTimeout,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.wildcard {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("websocket connection rejected: missing Origin header")
		return false
	}
	if _, ok := h.origins[origin]; ok {
		return true
	}
	logging.Warn().Str("origin", origin).Msg("websocket connection rejected from unauthorized origin")
	return false
}

// ServeHTTP upgrades the connection and registers the client with the hub.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		metrics.WSErrors.WithLabelValues("upgrade").Inc()
		logging.Ctx(r.Context()).Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn)
	select {
	case h.hub.Register <- client:
	case <-time.After(registerTimeout):
		metrics.WSErrors.WithLabelValues("register_timeout").Inc()
		_ = conn.Close()
		return
	}
	client.Start()
}
