// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package api

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/gatekeeper/internal/breaker"
)

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status            string   `json:"status"`
	Version           string   `json:"version"`
	Uptime            float64  `json:"uptime"`
	RegistryConnected bool     `json:"registryConnected"`
	Baselines         int      `json:"baselines"`
	AuditPending      int      `json:"auditPending"`
	AuditBreaker      string   `json:"auditBreaker,omitempty"`
	Subscribers       int      `json:"subscribers"`
	GeoProviders      []string `json:"geoProviders"`
}

// Health reports component status. It is "degraded" when the registry is
// unreachable or the audit store breaker is not closed; decisions are still
// served in both cases.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{
		Status:            "healthy",
		Version:           h.version,
		Uptime:            time.Since(h.startTime).Seconds(),
		RegistryConnected: true,
		GeoProviders:      h.geoProviders,
	}
	if health.GeoProviders == nil {
		health.GeoProviders = []string{}
	}

	if h.baselines != nil {
		n, err := h.baselines.Count(r.Context())
		if err != nil {
			health.RegistryConnected = false
			health.Status = "degraded"
		}
		health.Baselines = n
	}
	if h.writer != nil {
		health.AuditPending = h.writer.Pending()
		health.AuditBreaker = h.writer.BreakerState()
		if health.AuditBreaker != breaker.StateString(gobreaker.StateClosed) {
			health.Status = "degraded"
		}
	}
	if h.hub != nil {
		health.Subscribers = h.hub.SubscriberCount()
	}

	respondSuccess(w, r, http.StatusOK, health, 0)
}
