// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/gatekeeper/internal/audit"
	"github.com/tomtom215/gatekeeper/internal/models"
	"github.com/tomtom215/gatekeeper/internal/pipeline"
	"github.com/tomtom215/gatekeeper/internal/validation"
)

// LocationRequest is a caller-resolved location.
type LocationRequest struct {
	City      string   `json:"city" validate:"max=128"`
	Country   string   `json:"country" validate:"required,iso3166_1_alpha2"`
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

// DecisionRequest is the body of POST /api/v1/decisions.
type DecisionRequest struct {
	AttemptID         string           `json:"attemptId" validate:"omitempty,max=128,fingerprint"`
	Principal         string           `json:"principal" validate:"required,email,max=320"`
	DeviceFingerprint string           `json:"deviceFingerprint" validate:"omitempty,fingerprint"`
	IP                string           `json:"ip" validate:"required,ip"`
	UserAgent         string           `json:"userAgent" validate:"max=1024"`
	AcceptLanguage    string           `json:"acceptLanguage" validate:"max=256"`
	Timestamp         *time.Time       `json:"timestamp"`
	Location          *LocationRequest `json:"location"`
}

func (req *DecisionRequest) normalize() {
	req.AttemptID = strings.TrimSpace(req.AttemptID)
	req.Principal = strings.TrimSpace(req.Principal)
	req.DeviceFingerprint = strings.TrimSpace(req.DeviceFingerprint)
	req.IP = strings.TrimSpace(req.IP)
	if req.Location != nil {
		req.Location.City = strings.TrimSpace(req.Location.City)
		req.Location.Country = strings.ToUpper(strings.TrimSpace(req.Location.Country))
	}
}

func (req *DecisionRequest) toPipeline() pipeline.Request {
	out := pipeline.Request{
		AttemptID:         req.AttemptID,
		Principal:         req.Principal,
		DeviceFingerprint: req.DeviceFingerprint,
		IP:                req.IP,
		UserAgent:         req.UserAgent,
		AcceptLanguage:    req.AcceptLanguage,
	}
	if req.Timestamp != nil {
		out.Timestamp = *req.Timestamp
	}
	if req.Location != nil {
		out.Location = &models.Location{
			City:      req.Location.City,
			Country:   req.Location.Country,
			Latitude:  *req.Location.Latitude,
			Longitude: *req.Location.Longitude,
		}
	}
	return out
}

// AuditQueryRequest holds the validated query string of GET /api/v1/audit.
type AuditQueryRequest struct {
	Principal string `json:"principal" validate:"omitempty,max=320"`
	Outcome   string `json:"outcome" validate:"omitempty,oneof=GRANTED CHALLENGE BLOCKED"`
	Limit     int    `json:"limit" validate:"min=0,max=500"`
	Offset    int    `json:"offset" validate:"min=0,max=1000000"`
	Since     time.Time
	Until     time.Time
}

func (q AuditQueryRequest) filter() audit.QueryFilter {
	return audit.QueryFilter{
		Principal: q.Principal,
		Outcome:   models.Outcome(q.Outcome),
		Since:     q.Since,
		Until:     q.Until,
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
}

// parseAuditQuery reads and validates the audit query string.
func parseAuditQuery(r *http.Request) (AuditQueryRequest, *validation.RequestValidationError, string) {
	q := r.URL.Query()
	req := AuditQueryRequest{
		Principal: strings.TrimSpace(q.Get("principal")),
		Outcome:   strings.ToUpper(strings.TrimSpace(q.Get("outcome"))),
		Limit:     audit.DefaultQueryLimit,
	}

	var ok bool
	if req.Limit, ok = intParam(q.Get("limit"), audit.DefaultQueryLimit); !ok {
		return req, nil, "limit must be an integer"
	}
	if req.Offset, ok = intParam(q.Get("offset"), 0); !ok {
		return req, nil, "offset must be an integer"
	}
	if req.Since, ok = timeParam(q.Get("since")); !ok {
		return req, nil, "since must be an RFC 3339 timestamp"
	}
	if req.Until, ok = timeParam(q.Get("until")); !ok {
		return req, nil, "until must be an RFC 3339 timestamp"
	}
	if !req.Since.IsZero() && !req.Until.IsZero() && req.Until.Before(req.Since) {
		return req, nil, "until must not be before since"
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		return req, verr, ""
	}
	return req, nil, ""
}

func intParam(value string, def int) (int, bool) {
	if value == "" {
		return def, true
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}

func timeParam(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
