// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/gatekeeper/internal/pipeline"
	"github.com/tomtom215/gatekeeper/internal/validation"
)

// Decide handles POST /api/v1/decisions. Any well-formed attempt yields 200
// with a decision; degraded signals never surface as errors.
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Request body must be a valid decision request", nil)
		return
	}
	req.normalize()
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, r, verr)
		return
	}

	decision, err := h.decider.Decide(r.Context(), req.toPipeline())
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidRequest) {
			respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
			return
		}
		if errors.Is(err, pipeline.ErrAttemptConflict) {
			respondError(w, r, http.StatusConflict, ErrCodeConflict, "Attempt ID has already been used by another principal", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to evaluate attempt", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, decision, len(decision.RiskFactors))
}
