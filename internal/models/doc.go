// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

/*
Package models holds the data types shared across Gatekeeper's decision
pipeline, stores and API.

# Lifecycle

A LoginAttempt is built once per inbound request and never mutated. The risk
package turns it, together with the principal's TrustBaseline, into a
Decision. The pair is then wrapped in an AuditEntry, which is persisted and
broadcast to live subscribers.

# JSON

Field names are camelCase to match the decision API contract:

	{
	  "decision": "CHALLENGE",
	  "riskScore": 45,
	  "reason": "Unrecognized device for this account.",
	  "riskFactors": [{"name": "Identity", "status": "ok", "points": 5, "label": "..."}]
	}
*/
package models
