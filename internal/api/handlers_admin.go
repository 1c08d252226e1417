// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package api

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/aggregator/internal/logging"
)

// requireAdminToken checks the bearer token against the configured bcrypt
// hash.
func (h *Handler) requireAdminToken(next http.Handler) http.Handler {
	hash := []byte(h.cfg.AdminTokenHash)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			NewResponseWriter(w, r).Unauthorized("missing bearer token")
			return
		}
		if err := bcrypt.CompareHashAndPassword(hash, []byte(token)); err != nil {
			logging.Ctx(r.Context()).Warn().Str("remote_addr", r.RemoteAddr).Msg("Admin token rejected")
			NewResponseWriter(w, r).Unauthorized("invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AdminReset clears persisted events, claims and counters.
//
// Events still queued or in flight are processed against the empty store,
// so a reset under load is not a clean zero.
//
// @Summary Reset storage and counters
// @Tags Admin
// @Security BearerAuth
// @Success 204 "Reset complete"
// @Failure 401 {object} ErrorResponse "Missing or invalid token"
// @Failure 500 {object} ErrorResponse "Storage error"
// @Router /admin/reset [post]
func (h *Handler) AdminReset(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if err := h.store.ClearAll(r.Context()); err != nil {
		rw.DatabaseError(err)
		return
	}
	h.counters.Reset()

	logging.Ctx(r.Context()).Info().Msg("Storage and counters reset")
	rw.NoContent()
}
