// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/gatekeeper/internal/audit"
	"github.com/tomtom215/gatekeeper/internal/dispatch"
	"github.com/tomtom215/gatekeeper/internal/models"
	"github.com/tomtom215/gatekeeper/internal/pipeline"
)

// Decider evaluates one attempt.
type Decider interface {
	Decide(ctx context.Context, req pipeline.Request) (models.Decision, error)
}

// AuditReader is the read side of the audit store.
type AuditReader interface {
	Get(ctx context.Context, attemptID string) (*models.AuditEntry, error)
	Query(ctx context.Context, filter audit.QueryFilter) ([]models.AuditEntry, error)
	Count(ctx context.Context, filter audit.QueryFilter) (int64, error)
}

// BaselineStore is the operator view of the trust registry.
type BaselineStore interface {
	GetBaseline(ctx context.Context, principal string) (*models.TrustBaseline, error)
	Forget(ctx context.Context, principal string) error
	Count(ctx context.Context) (int, error)
}

// AuditStatus reports the background audit writer.
type AuditStatus interface {
	Pending() int
	BreakerState() string
}

// HandlerConfig wires the handler.
type HandlerConfig struct {
	Decider   Decider
	Audit     AuditReader
	Baselines BaselineStore
	Hub       *dispatch.Hub
	Writer    AuditStatus

	// AllowedOrigins are accepted WebSocket origins. "*" accepts any.
	AllowedOrigins []string

	// GeoProviders are reported by the health endpoint.
	GeoProviders []string

	Version string
}

// Handler serves the decision API.
type Handler struct {
	decider      Decider
	audit        AuditReader
	baselines    BaselineStore
	hub          *dispatch.Hub
	writer       AuditStatus
	upgrader     websocket.Upgrader
	geoProviders []string
	version      string
	startTime    time.Time
}

// NewHandler creates a handler from cfg.
func NewHandler(cfg HandlerConfig) *Handler {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	h := &Handler{
		decider:      cfg.Decider,
		audit:        cfg.Audit,
		baselines:    cfg.Baselines,
		hub:          cfg.Hub,
		writer:       cfg.Writer,
		geoProviders: cfg.GeoProviders,
		version:      version,
		startTime:    time.Now(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

// originChecker accepts requests without an Origin header (non-browser
// clients) and origins on the allow-list.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	allowAll := false
	for _, o := range allowed {
		o = strings.TrimRight(strings.ToLower(strings.TrimSpace(o)), "/")
		if o == "*" {
			allowAll = true
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		_, ok := set[strings.TrimRight(strings.ToLower(origin), "/")]
		return ok
	}
}
