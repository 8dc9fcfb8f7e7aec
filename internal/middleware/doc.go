// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

/*
Package middleware provides the chi-compatible HTTP middleware of the decision
API.

Key Components:

  - RequestID: X-Request-ID propagation into the logging context
  - PrometheusMetrics: request counters and latency histograms labeled by
    route pattern
  - BearerAuth: HS256 bearer tokens presented by the access gateway

Middleware Stack:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(middleware.BearerAuth(secret))
	    ...
	})

Endpoint labels use the matched chi route pattern ("/api/v1/audit/{attemptID}")
rather than the raw path so principal names and attempt IDs never become label
values.
*/
package middleware
