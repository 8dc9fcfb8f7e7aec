// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/gatekeeper/internal/registry"
)

// BaselineGet handles GET /api/v1/baselines/{principal}.
func (h *Handler) BaselineGet(w http.ResponseWriter, r *http.Request) {
	principal := strings.TrimSpace(chi.URLParam(r, "principal"))
	baseline, err := h.baselines.GetBaseline(r.Context(), principal)
	if errors.Is(err, registry.ErrEmptyPrincipal) {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Principal is required", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to load baseline", err)
		return
	}
	if baseline == nil {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "No baseline recorded for principal", nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, baseline, 1)
}

// BaselineDelete handles DELETE /api/v1/baselines/{principal}. The
// principal's next attempt is treated as a first login.
func (h *Handler) BaselineDelete(w http.ResponseWriter, r *http.Request) {
	principal := strings.TrimSpace(chi.URLParam(r, "principal"))
	if err := h.baselines.Forget(r.Context(), principal); err != nil {
		if errors.Is(err, registry.ErrEmptyPrincipal) {
			respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Principal is required", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to reset baseline", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"principal": strings.ToLower(principal),
		"reset":     true,
	}, 1)
}
