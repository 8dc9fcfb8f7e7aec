// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/gatekeeper/internal/logging"
)

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateLogging,
		c.validateSecurity,
		c.validateRisk,
		c.validateRegistry,
		c.validateAudit,
		c.validateDispatch,
		c.validateGeoIP,
		c.validateBus,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP read and write timeouts must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, panic, disabled; got %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.APISecret != "" && len(c.Security.APISecret) < 32 {
		return fmt.Errorf("API_SECRET must be at least 32 characters")
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitRequests <= 0 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}
	return nil
}

func (c *Config) validateRisk() error {
	switch c.Risk.BaselineUpdatePolicy {
	case UpdatePolicyOnGrant, UpdatePolicyAlways:
		return nil
	}
	return fmt.Errorf("BASELINE_UPDATE_POLICY must be %s or %s, got %q",
		UpdatePolicyOnGrant, UpdatePolicyAlways, c.Risk.BaselineUpdatePolicy)
}

func (c *Config) validateRegistry() error {
	switch c.Registry.Store {
	case StoreMemory:
		return nil
	case StoreBadger:
		if c.Registry.Path == "" {
			return fmt.Errorf("REGISTRY_PATH is required when REGISTRY_STORE=badger")
		}
		return nil
	}
	return fmt.Errorf("REGISTRY_STORE must be memory or badger, got %q", c.Registry.Store)
}

func (c *Config) validateAudit() error {
	switch c.Audit.Store {
	case StoreMemory:
	case StoreDuckDB:
		if c.Audit.Path == "" {
			return fmt.Errorf("AUDIT_PATH is required when AUDIT_STORE=duckdb")
		}
	default:
		return fmt.Errorf("AUDIT_STORE must be memory or duckdb, got %q", c.Audit.Store)
	}
	if c.Audit.BufferSize <= 0 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE must be positive")
	}
	if c.Audit.MaxRetries < 0 {
		return fmt.Errorf("AUDIT_MAX_RETRIES cannot be negative")
	}
	if c.Audit.WriteTimeout <= 0 {
		return fmt.Errorf("AUDIT_WRITE_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateDispatch() error {
	if c.Dispatch.SubscriberBuffer <= 0 {
		return fmt.Errorf("DISPATCH_SUBSCRIBER_BUFFER must be positive")
	}
	return nil
}

func (c *Config) validateGeoIP() error {
	for _, p := range c.GeoIP.Providers {
		switch p {
		case GeoIPProviderMaxMind, GeoIPProviderIPAPI, GeoIPProviderNone:
		default:
			return fmt.Errorf("GEOIP_PROVIDERS contains unknown provider %q", p)
		}
	}
	if c.GeoIP.Timeout <= 0 {
		return fmt.Errorf("GEOIP_TIMEOUT must be positive")
	}
	if c.HasGeoIPProvider(GeoIPProviderIPAPI) {
		if err := validateHTTPURL(c.GeoIP.IPAPIURL); err != nil {
			return fmt.Errorf("GEOIP_IPAPI_URL is invalid: %w", err)
		}
		if c.GeoIP.IPAPIRate <= 0 {
			return fmt.Errorf("GEOIP_IPAPI_RATE must be positive")
		}
	}
	return nil
}

func (c *Config) validateBus() error {
	if !c.Bus.Enabled {
		return nil
	}
	if c.Bus.Topic == "" {
		return fmt.Errorf("BUS_TOPIC is required when BUS_ENABLED=true")
	}
	if c.Bus.NATSURL != "" && !strings.HasPrefix(c.Bus.NATSURL, "nats://") && !strings.HasPrefix(c.Bus.NATSURL, "tls://") {
		return fmt.Errorf("BUS_NATS_URL must use nats:// or tls://, got %q", c.Bus.NATSURL)
	}
	return nil
}

// HasGeoIPProvider reports whether name is in the provider chain.
func (c *Config) HasGeoIPProvider(name string) bool {
	for _, p := range c.GeoIP.Providers {
		if p == name {
			return true
		}
	}
	return false
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
