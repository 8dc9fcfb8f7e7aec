// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

/*
Package services adapts Gatekeeper components to suture.Service.

HTTPServerService translates http.Server's blocking ListenAndServe into a
context-aware Serve with graceful Shutdown. Components that already expose
Serve(ctx) (the audit writer, the dispatch hub and the bus forwarder) are
wrapped by NamedService so that supervisor events carry a stable name.
*/
package services
