// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

/*
Package supervisor runs Gatekeeper's long-lived components under a suture v4
supervision tree.

# Tree Layout

	gatekeeper (root)
	├── data-layer
	│   └── audit-writer
	├── messaging-layer
	│   ├── dispatch-hub
	│   └── bus-forwarder (bus.enabled)
	└── api-layer
	    └── decision-api (HTTP server)

A service that returns an error is restarted by its layer supervisor with
backoff once FailureThreshold is exceeded. Supervisor events are logged
through sutureslog into the zerolog-backed slog adapter.

# Shutdown

Canceling the context passed to Serve stops every layer. The audit writer
persists queued entries before returning, and the HTTP server finishes
in-flight requests within ShutdownTimeout. Services that do not stop in
time are reported by UnstoppedServiceReport.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewAuditWriterService(writer))
	tree.AddMessagingService(services.NewDispatchHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	return tree.Serve(ctx)
*/
package supervisor
