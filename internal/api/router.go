// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/aggregator/internal/config"
	"github.com/tomtom215/aggregator/internal/metrics"
	"github.com/tomtom215/aggregator/internal/middleware"
)

// compressionLevel is the gzip level for query responses.
const compressionLevel = 5

// Router builds the chi route tree around a Handler.
type Router struct {
	handler *Handler
	cfg     *config.APIConfig
	feed    http.Handler
}

// NewRouter creates a router. feed serves /ws/events and may be nil when
// the live feed is disabled.
func NewRouter(handler *Handler, feed http.Handler) *Router {
	return &Router{
		handler: handler,
		cfg:     handler.cfg,
		feed:    feed,
	}
}

// SetupChi returns the complete HTTP handler.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.corsHandler())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	// ========================
	// Probes & Observability
	// ========================
	r.Get("/health/live", h.HealthLive)
	r.Get("/health/ready", h.HealthReady)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	// ========================
	// Rate limited API
	// ========================
	r.Group(func(r chi.Router) {
		r.Use(router.rateLimit())

		r.Post("/publish", h.Publish)
		r.Post("/api/v1/publish", h.Publish)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Compress(compressionLevel, "application/json"))
			r.Get("/events", h.Events)
			r.Get("/stats", h.Stats)
		})

		if router.cfg.AdminTokenHash != "" {
			r.With(h.requireAdminToken).Post("/admin/reset", h.AdminReset)
		}

		if router.feed != nil {
			r.Method(http.MethodGet, "/ws/events", router.feed)
		}
	})

	return r
}

func (router *Router) corsHandler() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   router.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposedHeaders:   []string{middleware.HeaderRequestID, "Retry-After"},
		AllowCredentials: false,
		MaxAge:           86400,
	})
}

// rateLimit is a per-client-IP limiter. RATE_LIMIT_REQUESTS=0 disables it.
func (router *Router) rateLimit() func(http.Handler) http.Handler {
	if router.cfg.RateLimitRequests <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return httprate.Limit(
		router.cfg.RateLimitRequests,
		router.cfg.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.RecordRateLimitHit(middleware.RoutePattern(r))
			NewResponseWriter(w, r).TooManyRequests("rate limit exceeded")
		}),
	)
}
