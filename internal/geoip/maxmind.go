// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package geoip

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/tomtom215/gatekeeper/internal/models"
)

// cityReader is the subset of *geoip2.Reader used here.
type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

// MaxMindProvider reads a local GeoLite2/GeoIP2 City database.
type MaxMindProvider struct {
	reader cityReader
}

// OpenMaxMind opens the .mmdb file at path.
func OpenMaxMind(path string) (*MaxMindProvider, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open maxmind database %s: %w", path, err)
	}
	return &MaxMindProvider{reader: reader}, nil
}

// Name returns the provider name.
func (p *MaxMindProvider) Name() string {
	return "maxmind"
}

// Lookup returns the city-level location of ip.
func (p *MaxMindProvider) Lookup(_ context.Context, ip net.IP) (*models.Location, error) {
	record, err := p.reader.City(ip)
	if err != nil {
		return nil, fmt.Errorf("maxmind lookup: %w", err)
	}
	return convertCityRecord(record)
}

// Close releases the database.
func (p *MaxMindProvider) Close() error {
	return p.reader.Close()
}

func convertCityRecord(record *geoip2.City) (*models.Location, error) {
	if record == nil || record.Country.IsoCode == "" {
		return nil, ErrAddressNotFound
	}
	return &models.Location{
		City:      record.City.Names["en"],
		Country:   record.Country.IsoCode,
		Latitude:  record.Location.Latitude,
		Longitude: record.Location.Longitude,
	}, nil
}
