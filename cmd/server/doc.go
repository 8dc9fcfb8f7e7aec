// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

/*
Package main is the entry point for the Gatekeeper server.

Gatekeeper decides whether a login attempt is GRANTED, challenged or
BLOCKED. Each attempt is scored on four pillars (identity, device,
location and behavior) against the principal's trust baseline, the
decision is audited asynchronously and streamed to live observers.

# Application Architecture

	RootSupervisor ("gatekeeper")
	├── DataSupervisor ("data-layer")
	│   └── audit-writer (DuckDB or memory)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── dispatch-hub (WebSocket subscribers)
	│   └── bus-forwarder (Watermill, BUS_ENABLED=true)
	└── APISupervisor ("api-layer")
	    └── decision-api (chi router)

Initialization order:

 1. Configuration: koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog, level hot-reloaded from the config file
 3. Trust registry: BadgerDB or memory
 4. Audit store and writer: DuckDB or memory
 5. Identity directory: Casbin enrollment policy
 6. Geolocation: MaxMind database and ip-api.com, in that order
 7. Dispatch hub and optional bus forwarder
 8. Supervisor tree and HTTP server

# Configuration

	HTTP_PORT=8080
	LOG_LEVEL=info                 # trace, debug, info, warn, error
	API_SECRET=<hs256 secret>      # empty disables caller authentication
	IDENTITY_PRINCIPALS=alice@example.com,bob@example.com
	IDENTITY_POLICY_PATH=/etc/gatekeeper/policy.csv
	BASELINE_UPDATE_POLICY=on_grant
	REGISTRY_STORE=badger  REGISTRY_PATH=/data/registry
	AUDIT_STORE=duckdb     AUDIT_PATH=/data/audit.duckdb
	GEOIP_PROVIDERS=maxmind,ipapi
	GEOIP_DATABASE_PATH=/data/GeoLite2-City.mmdb
	BUS_ENABLED=true       BUS_NATS_URL=nats://nats:4222

# Signal Handling

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server finishes
in-flight requests, the audit writer persists queued entries, and every
WebSocket subscription is closed before the stores are released.
*/
package main
