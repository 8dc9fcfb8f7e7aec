// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

// Package travel decides whether two geolocated logins could have been made
// by the same person given the time between them.
//
// The check is pure: it performs no I/O and depends only on its arguments.
package travel

import (
	"math"
	"time"
)

const (
	// EarthRadiusKm is the mean Earth radius used by Distance.
	EarthRadiusKm = 6371.0

	// MaxSpeedKmH is the fastest plausible ground-to-ground speed
	// (commercial air travel).
	MaxSpeedKmH = 900.0

	// MinDistanceKm is the displacement below which travel is never flagged.
	// IP geolocation routinely jitters by tens of kilometres.
	MinDistanceKm = 100.0
)

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Limits parameterizes the physics check.
type Limits struct {
	MaxSpeedKmH   float64
	MinDistanceKm float64
}

// DefaultLimits returns the 900 km/h, 100 km limits.
func DefaultLimits() Limits {
	return Limits{MaxSpeedKmH: MaxSpeedKmH, MinDistanceKm: MinDistanceKm}
}

// Assessment is the full result of a travel check, kept for labels and logs.
type Assessment struct {
	DistanceKm     float64
	ElapsedHours   float64
	MaxReachableKm float64
	RequiredKmH    float64
	Impossible     bool
}

// Distance returns the great-circle distance in kilometres between two
// points using the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lon1Rad := lon1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	lon2Rad := lon2 * math.Pi / 180.0

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// IsImpossible reports whether moving between loc1 at t1 and loc2 at t2
// exceeds DefaultLimits. Argument order does not matter.
func IsImpossible(loc1 Point, t1 time.Time, loc2 Point, t2 time.Time) bool {
	return DefaultLimits().Assess(loc1, t1, loc2, t2).Impossible
}

// Assess evaluates the displacement between two timestamped points.
// Travel is impossible only when the distance exceeds both what MaxSpeedKmH
// covers in the elapsed time and MinDistanceKm.
func (l Limits) Assess(loc1 Point, t1 time.Time, loc2 Point, t2 time.Time) Assessment {
	distance := Distance(loc1.Latitude, loc1.Longitude, loc2.Latitude, loc2.Longitude)

	elapsed := t2.Sub(t1)
	if elapsed < 0 {
		elapsed = -elapsed
	}
	hours := elapsed.Hours()
	maxReachable := l.MaxSpeedKmH * hours

	required := math.Inf(1)
	if hours > 0 {
		required = distance / hours
	} else if distance == 0 {
		required = 0
	}

	return Assessment{
		DistanceKm:     distance,
		ElapsedHours:   hours,
		MaxReachableKm: maxReachable,
		RequiredKmH:    required,
		Impossible:     distance > maxReachable && distance > l.MinDistanceKm,
	}
}
