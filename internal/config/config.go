// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

// Package config loads Gatekeeper configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import "time"

// Baseline update policies.
const (
	UpdatePolicyOnGrant = "on_grant"
	UpdatePolicyAlways  = "always"
)

// Geolocation provider names.
const (
	GeoIPProviderMaxMind = "maxmind"
	GeoIPProviderIPAPI   = "ipapi"
	GeoIPProviderNone    = "none"
)

// Registry store backends.
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
	StoreDuckDB = "duckdb"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Security SecurityConfig `koanf:"security"`
	Identity IdentityConfig `koanf:"identity"`
	Risk     RiskConfig     `koanf:"risk"`
	Registry RegistryConfig `koanf:"registry"`
	Audit    AuditConfig    `koanf:"audit"`
	Dispatch DispatchConfig `koanf:"dispatch"`
	GeoIP    GeoIPConfig    `koanf:"geoip"`
	Bus      BusConfig      `koanf:"bus"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

type SecurityConfig struct {
	// APISecret signs HS256 bearer tokens presented by decision API callers.
	// Empty disables caller authentication.
	APISecret         string        `koanf:"api_secret"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

type IdentityConfig struct {
	// Principals are enrolled at startup.
	Principals []string `koanf:"principals"`

	// PolicyPath is an optional Casbin CSV policy file with further enrollments.
	PolicyPath string `koanf:"policy_path"`

	// PolicyReloadInterval re-reads PolicyPath periodically. Zero disables it.
	PolicyReloadInterval time.Duration `koanf:"policy_reload_interval"`
}

type RiskConfig struct {
	// BaselineUpdatePolicy is on_grant or always.
	BaselineUpdatePolicy string `koanf:"baseline_update_policy"`
}

type RegistryConfig struct {
	Store string `koanf:"store"`
	Path  string `koanf:"path"`
}

type AuditConfig struct {
	Store        string        `koanf:"store"`
	Path         string        `koanf:"path"`
	BufferSize   int           `koanf:"buffer_size"`
	MaxRetries   int           `koanf:"max_retries"`
	RetryBackoff time.Duration `koanf:"retry_backoff"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type DispatchConfig struct {
	// SubscriberBuffer is the per-subscriber channel capacity. A full
	// subscriber misses events rather than stalling the publisher.
	SubscriberBuffer int      `koanf:"subscriber_buffer"`
	AllowedOrigins   []string `koanf:"allowed_origins"`
}

type GeoIPConfig struct {
	Providers    []string      `koanf:"providers"`
	DatabasePath string        `koanf:"database_path"`
	IPAPIURL     string        `koanf:"ipapi_url"`
	IPAPIRate    float64       `koanf:"ipapi_rate"`
	Timeout      time.Duration `koanf:"timeout"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
}

type BusConfig struct {
	Enabled bool   `koanf:"enabled"`
	Topic   string `koanf:"topic"`

	// NATSURL selects the NATS JetStream publisher; empty keeps the
	// in-process channel.
	NATSURL string `koanf:"nats_url"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
		Risk: RiskConfig{
			BaselineUpdatePolicy: UpdatePolicyOnGrant,
		},
		Registry: RegistryConfig{
			Store: StoreBadger,
			Path:  "/data/registry",
		},
		Audit: AuditConfig{
			Store:        StoreDuckDB,
			Path:         "/data/audit.duckdb",
			BufferSize:   1000,
			MaxRetries:   5,
			RetryBackoff: 200 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
		},
		Dispatch: DispatchConfig{
			SubscriberBuffer: 64,
		},
		GeoIP: GeoIPConfig{
			Providers: []string{GeoIPProviderMaxMind, GeoIPProviderIPAPI},
			IPAPIURL:  "http://ip-api.com/json/",
			IPAPIRate: 0.75,
			Timeout:   2 * time.Second,
			CacheTTL:  time.Hour,
		},
		Bus: BusConfig{
			Topic: "gatekeeper.decisions",
		},
	}
}
