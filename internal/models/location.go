// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package models

import (
	"math"
	"strings"
)

// CoordinateEpsilon is the tolerance below which a coordinate counts as zero.
// (0, 0) is the sentinel providers return when they could not place an IP.
const CoordinateEpsilon = 1e-7

// Location is a resolved geographic position. Country is an ISO 3166-1
// alpha-2 code when the provider supplies one.
type Location struct {
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// HasCoordinates reports whether the location carries a usable position.
func (l *Location) HasCoordinates() bool {
	if l == nil {
		return false
	}
	return !(math.Abs(l.Latitude) < CoordinateEpsilon && math.Abs(l.Longitude) < CoordinateEpsilon)
}

// SameCountry compares ISO codes case-insensitively. Empty never matches.
func (l *Location) SameCountry(other *Location) bool {
	if l == nil || other == nil || l.Country == "" || other.Country == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(l.Country), strings.TrimSpace(other.Country))
}

// SameCity requires the same country and a case-insensitive city match.
func (l *Location) SameCity(other *Location) bool {
	if !l.SameCountry(other) || l.City == "" || other.City == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(l.City), strings.TrimSpace(other.City))
}

// String renders "City, CC" for labels and logs.
func (l *Location) String() string {
	if l == nil {
		return "unknown location"
	}
	switch {
	case l.City != "" && l.Country != "":
		return l.City + ", " + l.Country
	case l.Country != "":
		return l.Country
	case l.City != "":
		return l.City
	default:
		return "unknown location"
	}
}
