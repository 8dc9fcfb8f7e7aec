// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto and are
exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

Decision Metrics:
  - gatekeeper_decisions_total: Decisions by outcome (counter)
  - gatekeeper_decision_duration_seconds: Pipeline latency (histogram)
  - gatekeeper_decision_risk_score: Aggregated score distribution (histogram)
  - gatekeeper_pillar_degradations_total: Degraded evaluations by pillar (counter)
  - gatekeeper_impossible_travel_total: Impossible travel detections (counter)

Storage Metrics:
  - gatekeeper_registry_baselines: Stored trust baselines (gauge)
  - gatekeeper_registry_errors_total: Registry failures by operation (counter)
  - gatekeeper_audit_writes_total: Audit writes by result (counter)
  - gatekeeper_audit_retries_total, gatekeeper_audit_dropped_total (counters)
  - gatekeeper_audit_queue_depth: Pending audit entries (gauge)

Dispatch Metrics:
  - gatekeeper_dispatch_subscribers: Live subscribers (gauge)
  - gatekeeper_dispatch_delivered_total, gatekeeper_dispatch_dropped_total (counters)
  - gatekeeper_bus_published_total: Bus forwards by result (counter)

Geolocation Metrics:
  - gatekeeper_geoip_lookups_total: Lookups by provider and result (counter)
  - gatekeeper_geoip_lookup_duration_seconds: Provider latency (histogram)
  - gatekeeper_geoip_cache_hits_total, gatekeeper_geoip_cache_misses_total (counters)

Circuit breakers and the HTTP API use the generic circuit_breaker_* and api_*
families shared with other services.
*/
package metrics
