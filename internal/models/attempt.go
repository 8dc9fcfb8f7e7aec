// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package models

import "time"

// LoginAttempt is one inbound access request as seen by the decision engine.
// Location is nil when geolocation was unavailable.
type LoginAttempt struct {
	ID                string    `json:"attemptId"`
	Principal         string    `json:"principal"`
	DeviceFingerprint string    `json:"deviceFingerprint"`
	IP                string    `json:"ip"`
	UserAgent         string    `json:"userAgent"`
	DeviceName        string    `json:"deviceName,omitempty"`
	Location          *Location `json:"location,omitempty"`
	Timestamp         time.Time `json:"timestamp"`

	// GeoError records why Location is missing, for degraded labels.
	GeoError string `json:"geoError,omitempty"`
}

// TrustBaseline is what the registry remembers about a principal's last
// trusted access. A nil *TrustBaseline means the principal has never been
// seen.
type TrustBaseline struct {
	Principal          string    `json:"principal"`
	TrustedFingerprint string    `json:"trustedFingerprint,omitempty"`
	LastLocation       *Location `json:"lastLocation,omitempty"`
	LastSeen           time.Time `json:"lastSeen"`
	LastAttemptID      string    `json:"lastAttemptId,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// BaselineFromAttempt builds the baseline an accepted attempt establishes.
// A missing fingerprint or location keeps the previous value.
func BaselineFromAttempt(prev *TrustBaseline, attempt *LoginAttempt, now time.Time) *TrustBaseline {
	next := &TrustBaseline{
		Principal:          attempt.Principal,
		TrustedFingerprint: attempt.DeviceFingerprint,
		LastLocation:       attempt.Location,
		LastSeen:           attempt.Timestamp,
		LastAttemptID:      attempt.ID,
		UpdatedAt:          now,
	}
	if prev != nil {
		if next.TrustedFingerprint == "" {
			next.TrustedFingerprint = prev.TrustedFingerprint
		}
		if !next.LastLocation.HasCoordinates() {
			next.LastLocation = prev.LastLocation
			next.LastSeen = prev.LastSeen
		}
	}
	return next
}
