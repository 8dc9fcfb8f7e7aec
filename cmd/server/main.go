// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/gatekeeper/internal/api"
	"github.com/tomtom215/gatekeeper/internal/config"
	"github.com/tomtom215/gatekeeper/internal/dispatch"
	"github.com/tomtom215/gatekeeper/internal/geoip"
	"github.com/tomtom215/gatekeeper/internal/identity"
	"github.com/tomtom215/gatekeeper/internal/logging"
	"github.com/tomtom215/gatekeeper/internal/pipeline"
	"github.com/tomtom215/gatekeeper/internal/risk"
	"github.com/tomtom215/gatekeeper/internal/supervisor"
	"github.com/tomtom215/gatekeeper/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("version", version).Msg("Starting Gatekeeper")

	watchLogLevel()

	// === DATA LAYER ===

	reg, err := openRegistry(cfg.Registry)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open trust registry")
	}
	defer func() {
		if err := reg.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing trust registry")
		}
	}()

	auditStore, closeAudit, err := openAuditStore(cfg.Audit)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open audit store")
	}
	defer closeAudit()

	writer := newAuditWriter(auditStore, cfg)

	directory, err := identity.NewDirectory(identity.Config{
		Principals:     cfg.Identity.Principals,
		PolicyPath:     cfg.Identity.PolicyPath,
		ReloadInterval: cfg.Identity.PolicyReloadInterval,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load identity directory")
	}
	defer directory.Close()

	resolver, err := geoip.NewResolverFromConfig(cfg.GeoIP)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to configure geolocation")
	}
	defer func() {
		if err := resolver.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing geolocation providers")
		}
	}()

	// === MESSAGING LAYER ===

	hub := dispatch.NewHub(cfg.Dispatch.SubscriberBuffer)

	// === DECISION PIPELINE ===

	decider, err := pipeline.New(pipeline.Config{
		Directory:    directory,
		Locator:      resolver,
		Baselines:    reg,
		Recorder:     writer,
		Publisher:    hub,
		Engine:       risk.NewEngine(),
		Attempts:     auditStore,
		UpdatePolicy: cfg.Risk.BaselineUpdatePolicy,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create decision pipeline")
	}

	handler := api.NewHandler(api.HandlerConfig{
		Decider:        decider,
		Audit:          auditStore,
		Baselines:      reg,
		Hub:            hub,
		Writer:         writer,
		AllowedOrigins: cfg.Dispatch.AllowedOrigins,
		GeoProviders:   resolver.Providers(),
		Version:        version,
	})
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(cfg.Security)), cfg.Security.APISecret)
	if cfg.Security.APISecret == "" {
		logging.Warn().Msg("API_SECRET is empty, decision API accepts unauthenticated callers")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		// Leaves room for the audit drain after the HTTP server stops.
		ShutdownTimeout: cfg.Server.ShutdownTimeout + 5*time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(services.NewAuditWriterService(writer))
	tree.AddMessagingService(services.NewDispatchHubService(hub))
	if cfg.Bus.Enabled {
		if err := addBusForwarder(tree, hub, cfg.Bus, cfg.Dispatch.SubscriberBuffer); err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize decision bus")
		}
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Gatekeeper stopped")
}

// watchLogLevel applies logging.level changes from the config file without
// a restart. Other settings still need one.
func watchLogLevel() {
	path := config.FindConfigFile()
	if path == "" {
		return
	}
	err := config.WatchConfigFile(path, func(next *config.Config) {
		if next.Logging.Level == logging.GetLevel().String() {
			return
		}
		logging.SetLevelString(next.Logging.Level)
		logging.Info().Str("level", next.Logging.Level).Msg("Log level reloaded")
	}, func(err error) {
		logging.Warn().Err(err).Str("path", path).Msg("Ignoring invalid config file change")
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
	}
}
