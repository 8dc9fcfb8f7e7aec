// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

// Package geoip resolves source IP addresses to locations.
//
// Providers are tried in configured order: a local MaxMind GeoLite2 City
// database and the ip-api.com HTTP service. The Resolver adds a TTL cache,
// a per-lookup timeout and a circuit breaker per provider. Every failure is
// returned as an error so the caller can degrade the affected risk pillars
// instead of failing the attempt.
package geoip

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/tomtom215/gatekeeper/internal/models"
)

var (
	// ErrInvalidAddress is returned for strings that are not IP addresses.
	ErrInvalidAddress = errors.New("invalid IP address")

	// ErrPrivateAddress is returned for loopback, private and link-local
	// addresses, which have no geographic position.
	ErrPrivateAddress = errors.New("private network address")

	// ErrAddressNotFound is returned when a provider has no record.
	ErrAddressNotFound = errors.New("address not found")

	// ErrNoProviders is returned when the chain is empty.
	ErrNoProviders = errors.New("no geolocation providers configured")
)

// Provider looks up a single IP address.
type Provider interface {
	// Lookup returns the location for ip. It returns ErrAddressNotFound
	// when the provider has no usable record.
	Lookup(ctx context.Context, ip net.IP) (*models.Location, error)

	// Name returns the provider name for logging and metrics.
	Name() string
}

// Locator is the Resolver's consumer-facing contract.
type Locator interface {
	Resolve(ctx context.Context, ip string) (*models.Location, error)
}

var privateRanges = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"100.64.0.0/10", // carrier-grade NAT
	"127.0.0.0/8",
	"169.254.0.0/16",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(err)
		}
		nets = append(nets, network)
	}
	return nets
}

// IsPrivateIP reports whether ip is in a private, loopback or link-local
// range.
func IsPrivateIP(ip net.IP) bool {
	for _, network := range privateRanges {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ParseAddress normalizes "host:port" and bracketed IPv6 forms and parses
// the result.
func ParseAddress(addr string) (net.IP, error) {
	addr = normalizeIPAddress(strings.TrimSpace(addr))
	ip := net.ParseIP(addr)
	if ip == nil || ip.IsUnspecified() {
		return nil, ErrInvalidAddress
	}
	return ip, nil
}

// normalizeIPAddress strips a port if present.
func normalizeIPAddress(addr string) string {
	if strings.HasPrefix(addr, "[") {
		// [::1]:8080 -> ::1
		if idx := strings.LastIndex(addr, "]:"); idx != -1 {
			return addr[1:idx]
		}
		return strings.Trim(addr, "[]")
	}
	// Only host:port has exactly one colon; bare IPv6 has several.
	if strings.Count(addr, ":") == 1 {
		return addr[:strings.LastIndex(addr, ":")]
	}
	return addr
}
