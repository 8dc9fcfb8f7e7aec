// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package risk

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/gatekeeper/internal/models"
)

// Engine runs the pillar evaluators and aggregates their factors.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	evaluators []Evaluator
}

// NewEngine builds an engine over evaluators, which are scored in the order
// given. With no arguments the four default pillars are used.
func NewEngine(evaluators ...Evaluator) *Engine {
	if len(evaluators) == 0 {
		evaluators = DefaultEvaluators()
	}
	return &Engine{evaluators: evaluators}
}

// Evaluate scores attempt against baseline. Evaluators run concurrently; the
// resulting factors keep evaluator order. It never fails: an evaluator error
// degrades that pillar.
func (e *Engine) Evaluate(attempt *models.LoginAttempt, baseline *models.TrustBaseline) models.Decision {
	factors := make([]models.RiskFactor, len(e.evaluators))

	var g errgroup.Group
	for i, ev := range e.evaluators {
		g.Go(func() error {
			factors[i] = runEvaluator(ev, attempt, baseline)
			return nil
		})
	}
	_ = g.Wait()

	decision := Aggregate(factors)
	decision.AttemptID = attempt.ID
	return decision
}

func runEvaluator(ev Evaluator, attempt *models.LoginAttempt, baseline *models.TrustBaseline) (factor models.RiskFactor) {
	defer func() {
		if r := recover(); r != nil {
			factor = DegradedFactor(ev.Pillar(), fmt.Errorf("evaluator panic: %v", r))
		}
	}()

	f, err := ev.Evaluate(attempt, baseline)
	if err != nil {
		return DegradedFactor(ev.Pillar(), err)
	}
	if f.Name == "" {
		f.Name = ev.Pillar()
	}
	return f
}

// DegradedFactor is the neutral contribution substituted for a pillar whose
// signal could not be obtained.
func DegradedFactor(pillar string, cause error) models.RiskFactor {
	return models.RiskFactor{
		Name:     pillar,
		Status:   models.StatusWarning,
		Points:   DegradedPoints,
		Label:    fmt.Sprintf("%s signal unavailable (degraded: %v)", pillar, cause),
		Degraded: true,
	}
}

// EvaluateWithoutBaseline scores attempt when the stored baseline could not
// be read. Pillars that compare against the baseline are degraded with cause
// rather than scored as a first login.
func (e *Engine) EvaluateWithoutBaseline(attempt *models.LoginAttempt, cause error) models.Decision {
	factors := make([]models.RiskFactor, len(e.evaluators))

	var g errgroup.Group
	for i, ev := range e.evaluators {
		if baselinePillars[ev.Pillar()] {
			factors[i] = DegradedFactor(ev.Pillar(), cause)
			continue
		}
		g.Go(func() error {
			factors[i] = runEvaluator(ev, attempt, nil)
			return nil
		})
	}
	_ = g.Wait()

	decision := Aggregate(factors)
	decision.AttemptID = attempt.ID
	return decision
}

// baselinePillars are the pillars whose score depends on the stored baseline.
var baselinePillars = map[string]bool{
	models.PillarDevice:   true,
	models.PillarLocation: true,
	models.PillarBehavior: true,
}

// outranks reports whether f should replace current as the dominant factor.
// Higher points win; on equal points a degraded factor wins over a scored one
// so missing signals show up in the reason.
func outranks(f, current models.RiskFactor) bool {
	if f.Points != current.Points {
		return f.Points > current.Points
	}
	return f.Degraded && !current.Degraded
}

// Aggregate sums factors in order, clamps the total, classifies it and picks
// the reason from the dominant factor. Negative points count as zero.
func Aggregate(factors []models.RiskFactor) models.Decision {
	out := make([]models.RiskFactor, len(factors))
	total := 0
	dominant := -1
	for i, f := range factors {
		if f.Points < 0 {
			f.Points = 0
		}
		out[i] = f
		total += f.Points
		if dominant < 0 || outranks(f, out[dominant]) {
			dominant = i
		}
	}

	score := Clamp(total)
	decision := models.Decision{
		Outcome:     Classify(score),
		RiskScore:   score,
		RiskFactors: out,
		Reason:      fallbackReason,
	}
	if dominant >= 0 {
		decision.Reason = selectReason(out[dominant], score)
	}
	return decision
}
