// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package risk

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/gatekeeper/internal/models"
)

var (
	t0       = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	lagos    = &models.Location{City: "Lagos", Country: "NG", Latitude: 6.5244, Longitude: 3.3792}
	london   = &models.Location{City: "London", Country: "GB", Latitude: 51.5074, Longitude: -0.1278}
	westmin  = &models.Location{City: "London", Country: "GB", Latitude: 51.4975, Longitude: -0.1357}
	leeds    = &models.Location{City: "Leeds", Country: "GB", Latitude: 53.8008, Longitude: -1.5491}
	trusted  = "fp-trusted-laptop"
	stranger = "fp-unknown-phone"
)

func baselineAt(loc *models.Location, at time.Time) *models.TrustBaseline {
	return &models.TrustBaseline{
		Principal:          "ada@example.com",
		TrustedFingerprint: trusted,
		LastLocation:       loc,
		LastSeen:           at,
	}
}

func attemptAt(fp string, loc *models.Location, at time.Time) *models.LoginAttempt {
	return &models.LoginAttempt{
		ID:                "attempt-1",
		Principal:         "ada@example.com",
		DeviceFingerprint: fp,
		IP:                "203.0.113.10",
		Location:          loc,
		Timestamp:         at,
	}
}

func factorByName(t *testing.T, d models.Decision, name string) models.RiskFactor {
	t.Helper()
	for _, f := range d.RiskFactors {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("factor %s not found in %+v", name, d.RiskFactors)
	return models.RiskFactor{}
}

func TestEngineScenarios(t *testing.T) {
	t.Parallel()

	engine := NewEngine()

	tests := []struct {
		name      string
		attempt   *models.LoginAttempt
		baseline  *models.TrustBaseline
		outcome   models.Outcome
		score     int
		dominant  string
		reasonHas string
	}{
		{
			name:     "impossible travel lagos to london",
			attempt:  attemptAt(trusted, london, t0.Add(45*time.Minute)),
			baseline: baselineAt(lagos, t0),
			outcome:  models.OutcomeBlocked,
			score:    IdentityVerifiedPoints + DeviceTrustedPoints + LocationNewCountryPoints + BehaviorImpossiblePoints,
		},
		{
			name:     "trusted device same city eight hours later",
			attempt:  attemptAt(trusted, westmin, t0.Add(8*time.Hour)),
			baseline: baselineAt(london, t0),
			outcome:  models.OutcomeGranted,
			score:    IdentityVerifiedPoints,
		},
		{
			name:     "unknown device known city",
			attempt:  attemptAt(stranger, london, t0.Add(8*time.Hour)),
			baseline: baselineAt(london, t0),
			outcome:  models.OutcomeChallenge,
			score:    IdentityVerifiedPoints + DeviceMismatchPoints,
		},
		{
			name:     "first login ever",
			attempt:  attemptAt(stranger, lagos, t0),
			baseline: nil,
			outcome:  models.OutcomeGranted,
			score:    IdentityVerifiedPoints + DeviceNoBaselinePoints + LocationNoHistoryPoints + BehaviorFirstLoginPoints,
		},
		{
			name:     "new city same country plausible travel",
			attempt:  attemptAt(trusted, leeds, t0.Add(3*time.Hour)),
			baseline: baselineAt(london, t0),
			outcome:  models.OutcomeGranted,
			score:    IdentityVerifiedPoints + LocationSameCountryPoints,
		},
		{
			name:     "unknown device and new city",
			attempt:  attemptAt(stranger, leeds, t0.Add(3*time.Hour)),
			baseline: baselineAt(london, t0),
			outcome:  models.OutcomeChallenge,
			score:    IdentityVerifiedPoints + DeviceMismatchPoints + LocationSameCountryPoints,
		},
		{
			name:     "everything wrong clamps to max",
			attempt:  attemptAt(stranger, london, t0.Add(45*time.Minute)),
			baseline: baselineAt(lagos, t0),
			outcome:  models.OutcomeBlocked,
			score:    MaxScore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := engine.Evaluate(tt.attempt, tt.baseline)
			if d.Outcome != tt.outcome {
				t.Errorf("outcome = %s, want %s (factors %+v)", d.Outcome, tt.outcome, d.RiskFactors)
			}
			if d.RiskScore != tt.score {
				t.Errorf("score = %d, want %d", d.RiskScore, tt.score)
			}
			if d.AttemptID != "attempt-1" {
				t.Errorf("attempt ID not propagated: %q", d.AttemptID)
			}
			if d.Reason == "" {
				t.Error("expected a reason")
			}
		})
	}
}

func TestFactorOrderPreserved(t *testing.T) {
	t.Parallel()

	d := NewEngine().Evaluate(attemptAt(trusted, london, t0), baselineAt(london, t0.Add(-time.Hour)))
	want := []string{models.PillarIdentity, models.PillarDevice, models.PillarLocation, models.PillarBehavior}
	if len(d.RiskFactors) != len(want) {
		t.Fatalf("expected %d factors, got %d", len(want), len(d.RiskFactors))
	}
	for i, name := range want {
		if d.RiskFactors[i].Name != name {
			t.Errorf("factor %d = %s, want %s", i, d.RiskFactors[i].Name, name)
		}
	}
}

func TestImpossibleTravelDominatesReason(t *testing.T) {
	t.Parallel()

	d := NewEngine().Evaluate(attemptAt(trusted, london, t0.Add(45*time.Minute)), baselineAt(lagos, t0))
	behavior := factorByName(t, d, models.PillarBehavior)
	if behavior.Status != models.StatusDanger || behavior.Points != BehaviorImpossiblePoints {
		t.Errorf("unexpected behavior factor %+v", behavior)
	}
	if !strings.Contains(behavior.Label, "Impossible travel") || !strings.Contains(behavior.Label, "Lagos, NG") {
		t.Errorf("unexpected label %q", behavior.Label)
	}

	pool := reasonPools[reasonKey{models.PillarBehavior, models.StatusDanger}]
	found := false
	for _, r := range pool {
		if r == d.Reason {
			found = true
		}
	}
	if !found {
		t.Errorf("reason %q not drawn from the impossible-travel pool", d.Reason)
	}
}

func TestFirstLoginNeverImpossible(t *testing.T) {
	t.Parallel()

	for _, loc := range []*models.Location{lagos, london, leeds} {
		d := NewEngine().Evaluate(attemptAt(trusted, loc, t0), nil)
		b := factorByName(t, d, models.PillarBehavior)
		if b.Points != BehaviorFirstLoginPoints || b.Status != models.StatusOK {
			t.Errorf("first login at %s scored %+v", loc, b)
		}
	}
}

func TestDegradedPillars(t *testing.T) {
	t.Parallel()

	attempt := attemptAt("", nil, t0.Add(time.Hour))
	attempt.GeoError = "provider timeout"

	d := NewEngine().Evaluate(attempt, baselineAt(london, t0))

	for _, name := range []string{models.PillarDevice, models.PillarLocation, models.PillarBehavior} {
		f := factorByName(t, d, name)
		if !f.Degraded || f.Points != DegradedPoints {
			t.Errorf("%s should be degraded, got %+v", name, f)
		}
		if !strings.Contains(f.Label, "degraded") {
			t.Errorf("%s label should record degradation: %q", name, f.Label)
		}
	}
	loc := factorByName(t, d, models.PillarLocation)
	if !strings.Contains(loc.Label, "provider timeout") {
		t.Errorf("location label should carry geo error, got %q", loc.Label)
	}
	if d.Outcome != models.OutcomeGranted {
		t.Errorf("degradation alone should not block, got %s (%d)", d.Outcome, d.RiskScore)
	}
}

func TestEvaluateWithoutBaseline(t *testing.T) {
	t.Parallel()

	attempt := attemptAt(trusted, london, t0)
	d := NewEngine().EvaluateWithoutBaseline(attempt, errors.New("trust registry unavailable"))

	if id := factorByName(t, d, models.PillarIdentity); id.Degraded || id.Points != IdentityVerifiedPoints {
		t.Errorf("identity should still be scored, got %+v", id)
	}
	for _, name := range []string{models.PillarDevice, models.PillarLocation, models.PillarBehavior} {
		f := factorByName(t, d, name)
		if !f.Degraded || f.Points != DegradedPoints {
			t.Errorf("%s should be degraded, got %+v", name, f)
		}
		if !strings.Contains(f.Label, "trust registry unavailable") {
			t.Errorf("%s label should carry the cause, got %q", name, f.Label)
		}
	}
	if d.AttemptID != attempt.ID {
		t.Errorf("attempt ID = %q, want %q", d.AttemptID, attempt.ID)
	}
	if d.RiskScore != IdentityVerifiedPoints+3*DegradedPoints || d.Outcome != models.OutcomeGranted {
		t.Errorf("unexpected decision %s (%d)", d.Outcome, d.RiskScore)
	}
	if d.Reason != degradedReasons[d.RiskScore%len(degradedReasons)] {
		t.Errorf("reason should report missing signals, got %q", d.Reason)
	}
}

type panickyEvaluator struct{}

func (panickyEvaluator) Pillar() string { return "Custom" }
func (panickyEvaluator) Evaluate(*models.LoginAttempt, *models.TrustBaseline) (models.RiskFactor, error) {
	panic("boom")
}

type failingEvaluator struct{}

func (failingEvaluator) Pillar() string { return "Compliance" }
func (failingEvaluator) Evaluate(*models.LoginAttempt, *models.TrustBaseline) (models.RiskFactor, error) {
	return models.RiskFactor{}, errors.New("mdm unreachable")
}

func TestEvaluatorFailuresDegrade(t *testing.T) {
	t.Parallel()

	d := NewEngine(IdentityEvaluator{}, panickyEvaluator{}, failingEvaluator{}).Evaluate(attemptAt(trusted, london, t0), nil)
	if len(d.RiskFactors) != 3 {
		t.Fatalf("expected 3 factors, got %d", len(d.RiskFactors))
	}
	if !d.RiskFactors[1].Degraded || !strings.Contains(d.RiskFactors[1].Label, "panic") {
		t.Errorf("panicking evaluator should degrade: %+v", d.RiskFactors[1])
	}
	if !d.RiskFactors[2].Degraded || !strings.Contains(d.RiskFactors[2].Label, "mdm unreachable") {
		t.Errorf("failing evaluator should degrade: %+v", d.RiskFactors[2])
	}
	if d.RiskScore != IdentityVerifiedPoints+2*DegradedPoints {
		t.Errorf("unexpected score %d", d.RiskScore)
	}
}

func TestUnknownPrincipalDecision(t *testing.T) {
	t.Parallel()

	d := UnknownPrincipalDecision("a-9")
	if d.Outcome != models.OutcomeBlocked || d.RiskScore != 100 || d.Reason != UnknownPrincipalReason {
		t.Errorf("unexpected decision %+v", d)
	}
	if d.RiskFactors == nil || len(d.RiskFactors) != 0 {
		t.Errorf("expected empty, non-nil factors, got %#v", d.RiskFactors)
	}
}
