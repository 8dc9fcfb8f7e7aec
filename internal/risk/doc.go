// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

/*
Package risk scores a login attempt across four trust pillars and turns the
total into an access decision.

# Pillars

Each pillar is an Evaluator. Evaluators are pure: they read the attempt and
the principal's baseline and return one RiskFactor.

  - Identity: fixed base score for a verified upstream identity
  - Device: exact fingerprint match against the trusted device
  - Location: city/country comparison against the last known location
  - Behavior: impossible-travel physics against the last login

# Scoring

Points are summed in pillar order and clamped to [0, 100]:

	score <= 30   GRANTED
	31..60        CHALLENGE
	score >= 61   BLOCKED

An evaluator that cannot obtain its signal returns an error; the engine
substitutes DegradedPoints and marks the factor degraded instead of failing
the attempt.

# Reasons

The reason string comes from a fixed phrase pool chosen by the dominant
pillar (highest points, ties to the earlier pillar). The phrase within the
pool is picked by score, so identical inputs always produce identical text.
*/
package risk
