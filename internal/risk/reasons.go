// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package risk

import "github.com/tomtom215/gatekeeper/internal/models"

type reasonKey struct {
	pillar string
	status models.FactorStatus
}

var reasonPools = map[reasonKey][]string{
	{models.PillarIdentity, models.StatusOK}: {
		"Identity verified and all trust signals are consistent.",
		"Credentials verified with no anomalies detected.",
		"Access pattern matches the established trust baseline.",
	},
	{models.PillarDevice, models.StatusWarning}: {
		"No trusted device is on record for this account yet.",
		"Device has not yet been established as trusted.",
	},
	{models.PillarDevice, models.StatusDanger}: {
		"Unrecognized device for this account.",
		"Login from a device that has not been trusted before.",
		"Device fingerprint does not match the trusted device.",
	},
	{models.PillarLocation, models.StatusOK}: {
		"No location history is on record for this account yet.",
	},
	{models.PillarLocation, models.StatusWarning}: {
		"Login from a new city within the usual country.",
		"Location differs from the last known city.",
	},
	{models.PillarLocation, models.StatusDanger}: {
		"Login from a country not previously seen for this account.",
		"Unusual country for this account.",
	},
	{models.PillarBehavior, models.StatusOK}: {
		"First recorded login for this account.",
	},
	{models.PillarBehavior, models.StatusDanger}: {
		"Impossible travel detected between consecutive logins.",
		"Location changed faster than physically possible.",
	},
}

var degradedReasons = []string{
	"Some trust signals were unavailable; decision made with reduced context.",
	"Decision made without full signal coverage.",
}

const fallbackReason = "Risk evaluated across identity, device, location and behavior."

// selectReason picks the phrase for the dominant factor. The choice depends
// only on the factor and the score.
func selectReason(dominant models.RiskFactor, score int) string {
	pool := reasonPools[reasonKey{dominant.Name, dominant.Status}]
	if dominant.Degraded {
		pool = degradedReasons
	}
	if len(pool) == 0 {
		return fallbackReason
	}
	return pool[score%len(pool)]
}
