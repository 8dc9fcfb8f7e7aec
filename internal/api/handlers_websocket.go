// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package api

import (
	"net/http"

	"github.com/tomtom215/gatekeeper/internal/dispatch"
	"github.com/tomtom215/gatekeeper/internal/logging"
)

// WebSocket handles GET /api/v1/ws?principals=a,b. The connection receives
// decision events for the listed principals; "*" subscribes to all.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "WebSocket service unavailable", nil)
		return
	}

	filter := dispatch.ParseFilter(r.URL.Query().Get("principals"))
	if len(filter.Principals) == 0 {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "principals must list at least one principal or *", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the error response.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := dispatch.NewClient(h.hub, conn, filter)
	logging.Ctx(r.Context()).Info().
		Uint64("subscription", client.ID()).
		Int("principals", len(filter.Principals)).
		Msg("Decision stream subscribed")
	client.Start()
}
