// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/tomtom215/gatekeeper/internal/audit"
	"github.com/tomtom215/gatekeeper/internal/config"
	"github.com/tomtom215/gatekeeper/internal/dispatch"
	"github.com/tomtom215/gatekeeper/internal/logging"
	"github.com/tomtom215/gatekeeper/internal/registry"
	"github.com/tomtom215/gatekeeper/internal/supervisor"
	"github.com/tomtom215/gatekeeper/internal/supervisor/services"
)

// openRegistry opens the trust registry on the configured backend.
func openRegistry(cfg config.RegistryConfig) (*registry.Registry, error) {
	switch cfg.Store {
	case config.StoreBadger:
		store, err := registry.OpenBadgerStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		logging.Info().Str("path", cfg.Path).Msg("Trust registry opened (badger)")
		return registry.New(store), nil
	case config.StoreMemory:
		logging.Warn().Msg("Trust registry is in memory, baselines are lost on restart")
		return registry.New(registry.NewMemoryStore()), nil
	}
	return nil, fmt.Errorf("unknown registry store %q", cfg.Store)
}

// openAuditStore opens the audit store and returns a closer for it.
func openAuditStore(cfg config.AuditConfig) (audit.Store, func(), error) {
	var store audit.Store
	switch cfg.Store {
	case config.StoreDuckDB:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		duck, err := audit.OpenDuckDBStore(ctx, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		logging.Info().Str("path", cfg.Path).Msg("Audit store opened (duckdb)")
		store = duck
	case config.StoreMemory:
		logging.Warn().Msg("Audit store is in memory, entries are lost on restart")
		store = audit.NewMemoryStore()
	default:
		return nil, nil, fmt.Errorf("unknown audit store %q", cfg.Store)
	}

	closeFn := func() {
		c, ok := store.(io.Closer)
		if !ok {
			return
		}
		if err := c.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing audit store")
		}
	}
	return store, closeFn, nil
}

// newAuditWriter builds the asynchronous writer. The drain window matches
// the HTTP shutdown timeout.
func newAuditWriter(store audit.Store, cfg *config.Config) *audit.Writer {
	wcfg := audit.DefaultWriterConfig()
	wcfg.BufferSize = cfg.Audit.BufferSize
	wcfg.MaxRetries = cfg.Audit.MaxRetries
	wcfg.RetryBackoff = cfg.Audit.RetryBackoff
	wcfg.WriteTimeout = cfg.Audit.WriteTimeout
	wcfg.DrainTimeout = cfg.Server.ShutdownTimeout
	return audit.NewWriter(store, wcfg)
}

// addBusForwarder republishes decided attempts to the Watermill bus:
// NATS JetStream when a URL is configured, otherwise an in-process channel.
func addBusForwarder(tree *supervisor.SupervisorTree, hub *dispatch.Hub, cfg config.BusConfig, buffer int) error {
	publisher, err := dispatch.NewPublisher(dispatch.BusConfig{
		NATSURL:      cfg.NATSURL,
		OutputBuffer: int64(buffer),
	}, dispatch.NewLogger())
	if err != nil {
		return err
	}

	tree.AddMessagingService(services.NewBusForwarderService(dispatch.NewForwarder(hub, publisher, cfg.Topic)))
	logging.Info().
		Str("topic", cfg.Topic).
		Bool("nats", cfg.NATSURL != "").
		Msg("Decision bus forwarder added to supervisor tree")
	return nil
}
