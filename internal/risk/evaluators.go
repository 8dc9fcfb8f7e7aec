// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package risk

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/gatekeeper/internal/models"
	"github.com/tomtom215/gatekeeper/internal/travel"
)

var (
	// ErrNoFingerprint means the attempt carried no device fingerprint and
	// none could be derived.
	ErrNoFingerprint = errors.New("device fingerprint unavailable")

	// ErrNoGeolocation means the attempt's source IP could not be located.
	ErrNoGeolocation = errors.New("geolocation unavailable")
)

// Evaluator scores one trust pillar. Implementations must be pure and safe
// for concurrent use. A nil baseline means the principal has no history.
type Evaluator interface {
	Pillar() string
	Evaluate(attempt *models.LoginAttempt, baseline *models.TrustBaseline) (models.RiskFactor, error)
}

// IdentityEvaluator trusts the upstream identity provider's verification.
type IdentityEvaluator struct{}

func (IdentityEvaluator) Pillar() string { return models.PillarIdentity }

func (IdentityEvaluator) Evaluate(_ *models.LoginAttempt, _ *models.TrustBaseline) (models.RiskFactor, error) {
	return models.RiskFactor{
		Name:   models.PillarIdentity,
		Status: models.StatusOK,
		Points: IdentityVerifiedPoints,
		Label:  "Identity verified by identity provider",
	}, nil
}

// DeviceEvaluator compares fingerprints exactly.
type DeviceEvaluator struct{}

func (DeviceEvaluator) Pillar() string { return models.PillarDevice }

func (DeviceEvaluator) Evaluate(attempt *models.LoginAttempt, baseline *models.TrustBaseline) (models.RiskFactor, error) {
	if attempt.DeviceFingerprint == "" {
		return models.RiskFactor{}, ErrNoFingerprint
	}

	device := "device"
	if attempt.DeviceName != "" {
		device = attempt.DeviceName
	}

	switch {
	case baseline == nil || baseline.TrustedFingerprint == "":
		return models.RiskFactor{
			Name:   models.PillarDevice,
			Status: models.StatusWarning,
			Points: DeviceNoBaselinePoints,
			Label:  fmt.Sprintf("No trusted device on record (%s)", device),
		}, nil
	case baseline.TrustedFingerprint == attempt.DeviceFingerprint:
		return models.RiskFactor{
			Name:   models.PillarDevice,
			Status: models.StatusOK,
			Points: DeviceTrustedPoints,
			Label:  fmt.Sprintf("Trusted device (%s)", device),
		}, nil
	default:
		return models.RiskFactor{
			Name:   models.PillarDevice,
			Status: models.StatusDanger,
			Points: DeviceMismatchPoints,
			Label:  fmt.Sprintf("New or unknown device (%s)", device),
		}, nil
	}
}

// LocationEvaluator grades how far the attempt strays from the last known
// city and country.
type LocationEvaluator struct{}

func (LocationEvaluator) Pillar() string { return models.PillarLocation }

func (LocationEvaluator) Evaluate(attempt *models.LoginAttempt, baseline *models.TrustBaseline) (models.RiskFactor, error) {
	if attempt.Location == nil || attempt.Location.Country == "" {
		return models.RiskFactor{}, geoError(attempt)
	}

	current := attempt.Location
	if baseline == nil || baseline.LastLocation == nil || baseline.LastLocation.Country == "" {
		return models.RiskFactor{
			Name:   models.PillarLocation,
			Status: models.StatusOK,
			Points: LocationNoHistoryPoints,
			Label:  fmt.Sprintf("No location history; now %s", current),
		}, nil
	}

	last := baseline.LastLocation
	switch {
	case current.SameCity(last):
		return models.RiskFactor{
			Name:   models.PillarLocation,
			Status: models.StatusOK,
			Points: LocationSameCityPoints,
			Label:  fmt.Sprintf("Usual location (%s)", current),
		}, nil
	case current.SameCountry(last):
		return models.RiskFactor{
			Name:   models.PillarLocation,
			Status: models.StatusWarning,
			Points: LocationSameCountryPoints,
			Label:  fmt.Sprintf("New city in usual country (%s, last %s)", current, last),
		}, nil
	default:
		return models.RiskFactor{
			Name:   models.PillarLocation,
			Status: models.StatusDanger,
			Points: LocationNewCountryPoints,
			Label:  fmt.Sprintf("Different country (%s, last %s)", current, last),
		}, nil
	}
}

// BehaviorEvaluator applies the travel physics check between the last
// trusted login and this attempt.
type BehaviorEvaluator struct {
	Limits travel.Limits
}

func (BehaviorEvaluator) Pillar() string { return models.PillarBehavior }

func (b BehaviorEvaluator) Evaluate(attempt *models.LoginAttempt, baseline *models.TrustBaseline) (models.RiskFactor, error) {
	if baseline == nil || !baseline.LastLocation.HasCoordinates() || baseline.LastSeen.IsZero() {
		return models.RiskFactor{
			Name:   models.PillarBehavior,
			Status: models.StatusOK,
			Points: BehaviorFirstLoginPoints,
			Label:  "First login: no prior activity to compare",
		}, nil
	}
	if !attempt.Location.HasCoordinates() {
		return models.RiskFactor{}, geoError(attempt)
	}

	limits := b.Limits
	if limits.MaxSpeedKmH <= 0 {
		limits = travel.DefaultLimits()
	}

	last := baseline.LastLocation
	assessment := limits.Assess(
		travel.Point{Latitude: last.Latitude, Longitude: last.Longitude}, baseline.LastSeen,
		travel.Point{Latitude: attempt.Location.Latitude, Longitude: attempt.Location.Longitude}, attempt.Timestamp,
	)

	if assessment.Impossible {
		return models.RiskFactor{
			Name:   models.PillarBehavior,
			Status: models.StatusDanger,
			Points: BehaviorImpossiblePoints,
			Label: fmt.Sprintf("Impossible travel: %.0f km from %s in %s (requires %s)",
				assessment.DistanceKm, last, formatElapsed(assessment.ElapsedHours), formatSpeed(assessment.RequiredKmH)),
		}, nil
	}

	return models.RiskFactor{
		Name:   models.PillarBehavior,
		Status: models.StatusOK,
		Points: BehaviorNormalPoints,
		Label: fmt.Sprintf("Normal pattern: %.0f km since last login %s ago",
			assessment.DistanceKm, formatElapsed(assessment.ElapsedHours)),
	}, nil
}

func geoError(attempt *models.LoginAttempt) error {
	if attempt.GeoError != "" {
		return fmt.Errorf("%w: %s", ErrNoGeolocation, attempt.GeoError)
	}
	return ErrNoGeolocation
}

func formatElapsed(hours float64) string {
	d := time.Duration(hours * float64(time.Hour)).Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%dm", h, m)
	}
}

func formatSpeed(kmh float64) string {
	if math.IsInf(kmh, 1) {
		return "instant travel"
	}
	return fmt.Sprintf("%.0f km/h", kmh)
}

// DefaultEvaluators returns the four pillars in scoring order.
func DefaultEvaluators() []Evaluator {
	return []Evaluator{
		IdentityEvaluator{},
		DeviceEvaluator{},
		LocationEvaluator{},
		BehaviorEvaluator{Limits: travel.DefaultLimits()},
	}
}
