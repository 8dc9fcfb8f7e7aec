// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package risk

import "github.com/tomtom215/gatekeeper/internal/models"

// Score bounds and decision thresholds.
const (
	MinScore = 0
	MaxScore = 100

	// GrantCeiling is the highest score still granted.
	GrantCeiling = 30

	// ChallengeCeiling is the highest score still challenged.
	ChallengeCeiling = 60
)

// Pillar contributions.
const (
	IdentityVerifiedPoints = 5

	DeviceTrustedPoints    = 0
	DeviceNoBaselinePoints = 10
	DeviceMismatchPoints   = 35

	LocationSameCityPoints    = 0
	LocationSameCountryPoints = 15
	LocationNewCountryPoints  = 30
	LocationNoHistoryPoints   = 5

	BehaviorImpossiblePoints = 60
	BehaviorFirstLoginPoints = 5
	BehaviorNormalPoints     = 0

	// DegradedPoints replaces any pillar whose signal was unavailable.
	DegradedPoints = 5
)

// UnknownPrincipalReason is returned for principals the directory does not
// know. It does not reveal which check failed.
const UnknownPrincipalReason = "Access denied: identity could not be verified."

// Clamp bounds a raw point total to [MinScore, MaxScore].
func Clamp(total int) int {
	if total < MinScore {
		return MinScore
	}
	if total > MaxScore {
		return MaxScore
	}
	return total
}

// Classify maps a clamped score to its decision.
func Classify(score int) models.Outcome {
	switch {
	case score <= GrantCeiling:
		return models.OutcomeGranted
	case score <= ChallengeCeiling:
		return models.OutcomeChallenge
	default:
		return models.OutcomeBlocked
	}
}

// UnknownPrincipalDecision is the fixed decision for an unenrolled principal:
// blocked at the maximum score with no pillar breakdown.
func UnknownPrincipalDecision(attemptID string) models.Decision {
	return models.Decision{
		AttemptID:   attemptID,
		Outcome:     models.OutcomeBlocked,
		RiskScore:   MaxScore,
		Reason:      UnknownPrincipalReason,
		RiskFactors: []models.RiskFactor{},
	}
}
