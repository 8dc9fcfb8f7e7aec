// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

/*
Package api provides the HTTP surface of the decision engine.

Endpoints:

	POST   /api/v1/decisions              evaluate one login attempt
	GET    /api/v1/audit                  query the audit log (principal, outcome,
	                                      since, until, limit, offset)
	GET    /api/v1/audit/{attemptID}      one audit entry
	GET    /api/v1/baselines/{principal}  current trust baseline
	DELETE /api/v1/baselines/{principal}  reset a principal to first-login state
	GET    /api/v1/ws?principals=a,b      live decision stream (WebSocket)
	GET    /api/v1/health                 component status
	GET    /metrics                       Prometheus exposition

Every JSON response uses the models.APIResponse envelope. Everything under
/api/v1 except health is rate limited per IP and, when security.api_secret is
set, requires an HS256 bearer token. WebSocket clients that cannot set
headers may pass the token as access_token.

A well-formed attempt always yields 200 with a decision: unavailable signals
degrade the affected pillar instead of failing the request. Only malformed
input produces 400.
*/
package api
