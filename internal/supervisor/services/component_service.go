// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package services

import "context"

// Service names reported in supervisor events.
const (
	AuditWriterName  = "audit-writer"
	DispatchHubName  = "dispatch-hub"
	BusForwarderName = "bus-forwarder"
)

// ContextService is satisfied by components that already follow the
// suture Serve pattern:
//   - *audit.Writer
//   - *dispatch.Hub
//   - *dispatch.Forwarder
type ContextService interface {
	Serve(ctx context.Context) error
}

// NamedService gives a ContextService a stable name for supervisor logs.
type NamedService struct {
	svc  ContextService
	name string
}

// NewNamedService wraps svc under name.
func NewNamedService(name string, svc ContextService) *NamedService {
	return &NamedService{svc: svc, name: name}
}

// NewAuditWriterService wraps the audit writer. Its Serve drains queued
// entries before returning.
func NewAuditWriterService(writer ContextService) *NamedService {
	return NewNamedService(AuditWriterName, writer)
}

// NewDispatchHubService wraps the dispatch hub, which closes every
// subscription when stopped and accepts new ones after a restart.
func NewDispatchHubService(hub ContextService) *NamedService {
	return NewNamedService(DispatchHubName, hub)
}

// NewBusForwarderService wraps the hub-to-bus forwarder.
func NewBusForwarderService(forwarder ContextService) *NamedService {
	return NewNamedService(BusForwarderName, forwarder)
}

// Serve implements suture.Service.
func (n *NamedService) Serve(ctx context.Context) error {
	return n.svc.Serve(ctx)
}

// String implements fmt.Stringer.
func (n *NamedService) String() string {
	return n.name
}
