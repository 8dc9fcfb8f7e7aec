// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/gatekeeper/internal/audit"
	"github.com/tomtom215/gatekeeper/internal/models"
)

// AuditPage is one page of audit entries.
type AuditPage struct {
	Entries []models.AuditEntry `json:"entries"`
	Total   int64               `json:"total"`
	Limit   int                 `json:"limit"`
	Offset  int                 `json:"offset"`
	HasMore bool                `json:"hasMore"`
}

// AuditList handles GET /api/v1/audit, most recent first.
func (h *Handler) AuditList(w http.ResponseWriter, r *http.Request) {
	req, verr, msg := parseAuditQuery(r)
	if msg != "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, msg, nil)
		return
	}
	if verr != nil {
		respondValidationError(w, r, verr)
		return
	}

	filter := req.filter()
	entries, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to query audit log", err)
		return
	}
	total, err := h.audit.Count(r.Context(), filter)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to count audit entries", err)
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = audit.DefaultQueryLimit
	}
	page := AuditPage{
		Entries: entries,
		Total:   total,
		Limit:   limit,
		Offset:  req.Offset,
		HasMore: int64(req.Offset+len(entries)) < total,
	}
	respondSuccess(w, r, http.StatusOK, page, len(entries))
}

// AuditGet handles GET /api/v1/audit/{attemptID}.
func (h *Handler) AuditGet(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attemptID")
	entry, err := h.audit.Get(r.Context(), attemptID)
	if errors.Is(err, audit.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Audit entry not found", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to load audit entry", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, entry, 1)
}
