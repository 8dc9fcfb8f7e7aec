// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package models

import "time"

// Outcome is the ternary access decision.
type Outcome string

const (
	OutcomeGranted   Outcome = "GRANTED"
	OutcomeChallenge Outcome = "CHALLENGE"
	OutcomeBlocked   Outcome = "BLOCKED"
)

// FactorStatus grades a single pillar.
type FactorStatus string

const (
	StatusOK      FactorStatus = "ok"
	StatusWarning FactorStatus = "warning"
	StatusDanger  FactorStatus = "danger"
)

// Pillar names, in evaluation order.
const (
	PillarIdentity = "Identity"
	PillarDevice   = "Device"
	PillarLocation = "Location"
	PillarBehavior = "Behavior"
)

// RiskFactor is one pillar's contribution to the score.
type RiskFactor struct {
	Name     string       `json:"name"`
	Status   FactorStatus `json:"status"`
	Points   int          `json:"points"`
	Label    string       `json:"label"`
	Degraded bool         `json:"degraded,omitempty"`
}

// Decision is the immutable result of evaluating one attempt.
type Decision struct {
	AttemptID   string       `json:"attemptId"`
	Outcome     Outcome      `json:"decision"`
	RiskScore   int          `json:"riskScore"`
	Reason      string       `json:"reason"`
	RiskFactors []RiskFactor `json:"riskFactors"`
}

// AuditEntry is the durable record of one decided attempt.
type AuditEntry struct {
	AttemptID  string       `json:"attemptId"`
	Principal  string       `json:"principal"`
	Attempt    LoginAttempt `json:"attempt"`
	Decision   Decision     `json:"decision"`
	RecordedAt time.Time    `json:"recordedAt"`
}
