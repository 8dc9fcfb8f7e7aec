// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package geoip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tomtom215/gatekeeper/internal/breaker"
	"github.com/tomtom215/gatekeeper/internal/cache"
	"github.com/tomtom215/gatekeeper/internal/config"
	"github.com/tomtom215/gatekeeper/internal/logging"
	"github.com/tomtom215/gatekeeper/internal/metrics"
	"github.com/tomtom215/gatekeeper/internal/models"
)

// ResolverConfig tunes the Resolver.
type ResolverConfig struct {
	// Timeout bounds one Resolve call across the whole provider chain.
	Timeout time.Duration

	CacheTTL  time.Duration
	CacheSize int
}

// DefaultResolverConfig returns production defaults.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		Timeout:   2 * time.Second,
		CacheTTL:  time.Hour,
		CacheSize: 10000,
	}
}

// Resolver handles geolocation with provider fallback and caching.
type Resolver struct {
	providers []Provider
	breakers  []*breaker.Breaker[*models.Location]
	cache     *cache.LRU[models.Location]
	timeout   time.Duration
}

// NewResolver creates a resolver trying providers in order.
func NewResolver(cfg ResolverConfig, providers ...Provider) *Resolver {
	def := DefaultResolverConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = def.CacheSize
	}

	breakers := make([]*breaker.Breaker[*models.Location], len(providers))
	for i, p := range providers {
		bc := breaker.DefaultConfig("geoip-" + p.Name())
		bc.Benign = []error{ErrAddressNotFound}
		breakers[i] = breaker.New[*models.Location](bc)
	}

	return &Resolver{
		providers: providers,
		breakers:  breakers,
		cache:     cache.NewLRU[models.Location](cfg.CacheSize, cfg.CacheTTL),
		timeout:   cfg.Timeout,
	}
}

// NewResolverFromConfig builds the provider chain named in cfg. A MaxMind
// entry without a database path is skipped with a warning.
func NewResolverFromConfig(cfg config.GeoIPConfig) (*Resolver, error) {
	var providers []Provider
	for _, name := range cfg.Providers {
		switch name {
		case config.GeoIPProviderMaxMind:
			if cfg.DatabasePath == "" {
				logging.Warn().Msg("MaxMind provider configured without GEOIP_DATABASE_PATH, skipping")
				continue
			}
			p, err := OpenMaxMind(cfg.DatabasePath)
			if err != nil {
				return nil, err
			}
			providers = append(providers, p)
		case config.GeoIPProviderIPAPI:
			providers = append(providers, NewIPAPIProvider(cfg.IPAPIURL, cfg.IPAPIRate))
		case config.GeoIPProviderNone:
		default:
			return nil, fmt.Errorf("unknown geoip provider %q", name)
		}
	}

	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}
	logging.Info().Strs("providers", names).Dur("timeout", cfg.Timeout).Msg("Geolocation resolver configured")

	return NewResolver(ResolverConfig{Timeout: cfg.Timeout, CacheTTL: cfg.CacheTTL}, providers...), nil
}

// Resolve returns the location of addr. Private, invalid and unlocatable
// addresses return an error; so does exhausting the timeout.
func (r *Resolver) Resolve(ctx context.Context, addr string) (*models.Location, error) {
	ip, err := ParseAddress(addr)
	if err != nil {
		metrics.RecordGeoIPLookup("resolver", "invalid", 0)
		return nil, fmt.Errorf("%w: %q", err, addr)
	}
	if IsPrivateIP(ip) {
		metrics.RecordGeoIPLookup("resolver", "private", 0)
		return nil, ErrPrivateAddress
	}

	key := ip.String()
	if loc, ok := r.cache.Get(key); ok {
		metrics.GeoIPCacheHits.Inc()
		return &loc, nil
	}
	metrics.GeoIPCacheMisses.Inc()

	if len(r.providers) == 0 {
		return nil, ErrNoProviders
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var lastErr error
	for i, provider := range r.providers {
		start := time.Now()
		loc, err := r.breakers[i].Execute(func() (*models.Location, error) {
			return provider.Lookup(ctx, ip)
		})
		if err == nil && !loc.HasCoordinates() {
			err = ErrAddressNotFound
		}
		if err != nil {
			metrics.RecordGeoIPLookup(provider.Name(), lookupResult(err), time.Since(start))
			logging.Debug().Err(err).Str("provider", provider.Name()).Str("ip", key).Msg("GeoIP provider failed")
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		metrics.RecordGeoIPLookup(provider.Name(), "hit", time.Since(start))
		r.cache.Add(key, *loc)
		result := *loc
		return &result, nil
	}

	return nil, fmt.Errorf("all geolocation providers failed for %s: %w", key, lastErr)
}

// Close releases providers holding resources.
func (r *Resolver) Close() error {
	var errs []error
	for _, p := range r.providers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Providers returns the provider names in chain order.
func (r *Resolver) Providers() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

func lookupResult(err error) string {
	switch {
	case errors.Is(err, ErrAddressNotFound):
		return "miss"
	case breaker.IsRejected(err):
		return "rejected"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
