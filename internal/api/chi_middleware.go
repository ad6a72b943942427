// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/stride/internal/config"
)

// healthRateMultiplier scales the API limit for health checks.
const healthRateMultiplier = 10

// MiddlewareConfig holds CORS and rate limit settings.
type MiddlewareConfig struct {
	CORSAllowedOrigins []string
	CORSMaxAge         int // seconds

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// MiddlewareConfigFromServer derives middleware settings from server config.
// A non-positive request limit disables rate limiting.
func MiddlewareConfigFromServer(cfg config.ServerConfig) *MiddlewareConfig {
	return &MiddlewareConfig{
		CORSAllowedOrigins: cfg.CORSOrigins,
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.RateLimitReqs,
		RateLimitWindow:    cfg.RateLimitWindow,
		RateLimitDisabled:  cfg.RateLimitReqs <= 0 || cfg.RateLimitWindow <= 0,
	}
}

// Middleware builds the chi middleware shared by the router.
type Middleware struct {
	config *MiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewMiddleware creates the middleware set. A nil config disables rate
// limiting. Empty CORS origins fall back to the cors package default of any
// origin.
func NewMiddleware(cfg *MiddlewareConfig) *Middleware {
	if cfg == nil {
		cfg = &MiddlewareConfig{RateLimitDisabled: true}
	}
	return &Middleware{
		config: cfg,
		cors: cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "If-None-Match", "X-Request-ID"},
			ExposedHeaders: []string{"ETag", "X-Request-ID", "X-Total-Count"},
			MaxAge:         cfg.CORSMaxAge,
		}),
	}
}

// CORS handles preflight and origin checks.
func (m *Middleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit limits data endpoints per client IP.
func (m *Middleware) RateLimit() func(http.Handler) http.Handler {
	return m.limitByIP(m.config.RateLimitRequests)
}

// RateLimitHealth is a permissive per-IP limit for health checks.
func (m *Middleware) RateLimitHealth() func(http.Handler) http.Handler {
	return m.limitByIP(m.config.RateLimitRequests * healthRateMultiplier)
}

func (m *Middleware) limitByIP(requests int) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.Limit(
		requests,
		m.config.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests", nil)
		}),
	)
}
