// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

// Package pipeline turns one inbound login attempt into a decision.
//
// The flow for a single attempt is:
//
//	enrollment check -> geolocation -> baseline read -> parallel pillar
//	evaluation -> aggregation -> baseline update -> audit + dispatch
//
// The baseline read, evaluation and update happen inside one registry
// Update call, so concurrent attempts for the same principal are scored
// against each other's results in arrival order. Audit and dispatch never
// block the caller.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/gatekeeper/internal/audit"
	"github.com/tomtom215/gatekeeper/internal/cache"
	"github.com/tomtom215/gatekeeper/internal/config"
	"github.com/tomtom215/gatekeeper/internal/device"
	"github.com/tomtom215/gatekeeper/internal/logging"
	"github.com/tomtom215/gatekeeper/internal/metrics"
	"github.com/tomtom215/gatekeeper/internal/models"
	"github.com/tomtom215/gatekeeper/internal/registry"
	"github.com/tomtom215/gatekeeper/internal/risk"
)

// ErrInvalidRequest is returned for attempts the pipeline cannot evaluate.
var ErrInvalidRequest = errors.New("invalid attempt")

// ErrAttemptConflict is returned when a supplied attempt ID was already
// decided for a different principal.
var ErrAttemptConflict = errors.New("attempt ID already used by another principal")

var (
	// errGeolocationDisabled is recorded on attempts when no locator is wired.
	errGeolocationDisabled = errors.New("geolocation disabled")

	errRegistryUnavailable = errors.New("trust registry unavailable")
)

const (
	recentAttemptCapacity = 10000
	recentAttemptTTL      = 24 * time.Hour
)

// Directory answers whether a principal is enrolled.
type Directory interface {
	IsKnown(principal string) (bool, error)
}

// Locator resolves a source IP to a location.
type Locator interface {
	Resolve(ctx context.Context, ip string) (*models.Location, error)
}

// Baselines is the serialized read-modify-write surface of the registry.
type Baselines interface {
	Update(ctx context.Context, principal string, fn registry.UpdateFunc) error
}

// Recorder queues an audit entry and returns it as recorded.
type Recorder interface {
	Record(attempt models.LoginAttempt, decision models.Decision) models.AuditEntry
}

// Publisher fans a recorded decision out to live observers.
type Publisher interface {
	Publish(entry models.AuditEntry)
}

// Attempts looks up previously recorded attempts. Get returns
// audit.ErrNotFound for an unknown ID.
type Attempts interface {
	Get(ctx context.Context, attemptID string) (*models.AuditEntry, error)
}

// Request is an attempt as submitted by the gateway.
type Request struct {
	AttemptID         string
	Principal         string
	DeviceFingerprint string
	IP                string
	UserAgent         string
	AcceptLanguage    string
	Timestamp         time.Time

	// Location, when set, is used instead of resolving IP.
	Location *models.Location
}

// Config wires the service.
type Config struct {
	Directory Directory
	Locator   Locator
	Baselines Baselines
	Recorder  Recorder
	Publisher Publisher
	Engine    *risk.Engine

	// Attempts, when set, lets retries of attempts decided before the
	// in-memory window (or before a restart) be answered from the audit log.
	Attempts Attempts

	// UpdatePolicy is config.UpdatePolicyOnGrant (default) or
	// config.UpdatePolicyAlways.
	UpdatePolicy string
}

// Service evaluates attempts. It is safe for concurrent use.
type Service struct {
	directory Directory
	locator   Locator
	baselines Baselines
	recorder  Recorder
	publisher Publisher
	attempts  Attempts
	engine    *risk.Engine
	policy    string
	now       func() time.Time

	// recent holds entries for supplied attempt IDs; inflight coalesces
	// concurrent submissions of the same ID.
	recent   *cache.LRU[models.AuditEntry]
	inflight singleflight.Group
}

// New creates a service. Directory, Baselines and Recorder are required;
// Locator and Publisher are optional.
func New(cfg Config) (*Service, error) {
	if cfg.Directory == nil {
		return nil, errors.New("pipeline: directory is required")
	}
	if cfg.Baselines == nil {
		return nil, errors.New("pipeline: baselines are required")
	}
	if cfg.Recorder == nil {
		return nil, errors.New("pipeline: recorder is required")
	}
	if cfg.Engine == nil {
		cfg.Engine = risk.NewEngine()
	}

	policy := cfg.UpdatePolicy
	switch policy {
	case "":
		policy = config.UpdatePolicyOnGrant
	case config.UpdatePolicyOnGrant, config.UpdatePolicyAlways:
	default:
		return nil, fmt.Errorf("pipeline: unknown baseline update policy %q", policy)
	}

	return &Service{
		directory: cfg.Directory,
		locator:   cfg.Locator,
		baselines: cfg.Baselines,
		recorder:  cfg.Recorder,
		publisher: cfg.Publisher,
		attempts:  cfg.Attempts,
		engine:    cfg.Engine,
		policy:    policy,
		now:       time.Now,
		recent:    cache.NewLRU[models.AuditEntry](recentAttemptCapacity, recentAttemptTTL),
	}, nil
}

// Decide evaluates req and returns the decision. Signal failures degrade
// the affected pillar; only a request without a principal, or one reusing
// another principal's attempt ID, is an error.
func (s *Service) Decide(ctx context.Context, req Request) (models.Decision, error) {
	start := time.Now()

	attempt, err := s.buildAttempt(req)
	if err != nil {
		return models.Decision{}, err
	}
	ctx = logging.ContextWithAttemptID(ctx, attempt.ID)

	if strings.TrimSpace(req.AttemptID) == "" {
		return s.decide(ctx, attempt, req.Location, start).Decision, nil
	}

	v, _, _ := s.inflight.Do(attempt.ID, func() (interface{}, error) {
		if prior, ok := s.lookupAttempt(ctx, attempt.ID); ok {
			return recorded{entry: prior, replayed: true}, nil
		}
		entry := s.decide(ctx, attempt, req.Location, start)
		s.recent.Add(attempt.ID, entry)
		return recorded{entry: entry}, nil
	})
	rec := v.(recorded)

	logger := logging.Ctx(ctx)
	if !strings.EqualFold(rec.entry.Principal, attempt.Principal) {
		metrics.DuplicateAttempts.WithLabelValues("conflict").Inc()
		logger.Warn().
			Str("principal", attempt.Principal).
			Str("recorded_principal", rec.entry.Principal).
			Msg("Attempt ID reused by another principal")
		return models.Decision{}, fmt.Errorf("%w: %s", ErrAttemptConflict, attempt.ID)
	}
	if rec.replayed {
		metrics.DuplicateAttempts.WithLabelValues("replayed").Inc()
		logger.Info().
			Str("principal", attempt.Principal).
			Str("decision", string(rec.entry.Decision.Outcome)).
			Msg("Duplicate attempt, returning recorded decision")
	}
	return rec.entry.Decision, nil
}

// recorded is the shared result of one supplied attempt ID.
type recorded struct {
	entry    models.AuditEntry
	replayed bool
}

// lookupAttempt finds an already decided attempt in the recent window, then
// in the audit log. Lookup failures are treated as a miss.
func (s *Service) lookupAttempt(ctx context.Context, attemptID string) (models.AuditEntry, bool) {
	if entry, ok := s.recent.Get(attemptID); ok {
		return entry, true
	}
	if s.attempts == nil {
		return models.AuditEntry{}, false
	}

	entry, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		if !errors.Is(err, audit.ErrNotFound) {
			logging.Ctx(ctx).Warn().Err(err).Msg("Attempt lookup failed, evaluating as new")
		}
		return models.AuditEntry{}, false
	}
	s.recent.Add(attemptID, *entry)
	return *entry, true
}

// decide runs the full pipeline for a new attempt and returns its audit entry.
func (s *Service) decide(ctx context.Context, attempt models.LoginAttempt, supplied *models.Location, start time.Time) models.AuditEntry {
	var decision models.Decision
	if s.isEnrolled(ctx, attempt.Principal) {
		s.locate(ctx, &attempt, supplied)
		decision = s.evaluate(ctx, &attempt)
	} else {
		decision = risk.UnknownPrincipalDecision(attempt.ID)
	}

	entry := s.recorder.Record(attempt, decision)
	if s.publisher != nil {
		s.publisher.Publish(entry)
	}

	s.observe(decision, time.Since(start))
	logging.Ctx(ctx).Info().
		Str("principal", attempt.Principal).
		Str("decision", string(decision.Outcome)).
		Int("risk_score", decision.RiskScore).
		Str("ip", attempt.IP).
		Dur("duration", time.Since(start)).
		Msg("Access decision")

	return entry
}

func (s *Service) buildAttempt(req Request) (models.LoginAttempt, error) {
	principal := strings.ToLower(strings.TrimSpace(req.Principal))
	if principal == "" {
		return models.LoginAttempt{}, fmt.Errorf("%w: principal is required", ErrInvalidRequest)
	}

	attempt := models.LoginAttempt{
		ID:                strings.TrimSpace(req.AttemptID),
		Principal:         principal,
		DeviceFingerprint: strings.TrimSpace(req.DeviceFingerprint),
		IP:                strings.TrimSpace(req.IP),
		UserAgent:         req.UserAgent,
		Timestamp:         req.Timestamp.UTC(),
	}
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if req.Timestamp.IsZero() {
		attempt.Timestamp = s.now().UTC()
	}
	if attempt.UserAgent != "" {
		attempt.DeviceName = device.DisplayName(attempt.UserAgent)
		if attempt.DeviceFingerprint == "" {
			attempt.DeviceFingerprint = device.Fingerprint(attempt.UserAgent, req.AcceptLanguage)
		}
	}
	return attempt, nil
}

// isEnrolled fails closed: a directory error is treated as unknown.
func (s *Service) isEnrolled(ctx context.Context, principal string) bool {
	known, err := s.directory.IsKnown(principal)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("principal", principal).Msg("Identity directory check failed")
		return false
	}
	return known
}

func (s *Service) locate(ctx context.Context, attempt *models.LoginAttempt, supplied *models.Location) {
	if supplied != nil {
		loc := *supplied
		attempt.Location = &loc
		return
	}
	if s.locator == nil {
		attempt.GeoError = errGeolocationDisabled.Error()
		return
	}

	loc, err := s.locator.Resolve(ctx, attempt.IP)
	if err != nil {
		attempt.GeoError = err.Error()
		logging.Ctx(ctx).Debug().Err(err).Str("ip", attempt.IP).Msg("Geolocation unavailable")
		return
	}
	attempt.Location = loc
}

// evaluate scores attempt against the stored baseline and applies the
// update policy under the principal's lock.
func (s *Service) evaluate(ctx context.Context, attempt *models.LoginAttempt) models.Decision {
	var (
		decision  models.Decision
		evaluated bool
	)

	err := s.baselines.Update(ctx, attempt.Principal, func(current *models.TrustBaseline) (*models.TrustBaseline, error) {
		decision = s.engine.Evaluate(attempt, current)
		evaluated = true
		if !s.shouldUpdate(decision) {
			return nil, nil
		}
		return models.BaselineFromAttempt(current, attempt, s.now().UTC()), nil
	})
	if err == nil {
		return decision
	}

	logger := logging.Ctx(ctx)
	if evaluated {
		metrics.RegistryErrors.WithLabelValues("update").Inc()
		logger.Error().Err(err).Str("principal", attempt.Principal).Msg("Baseline update failed, decision unchanged")
		return decision
	}

	metrics.RegistryErrors.WithLabelValues("read").Inc()
	logger.Error().Err(err).Str("principal", attempt.Principal).Msg("Baseline read failed, degrading baseline pillars")
	return s.engine.EvaluateWithoutBaseline(attempt, errRegistryUnavailable)
}

func (s *Service) shouldUpdate(decision models.Decision) bool {
	if s.policy == config.UpdatePolicyAlways {
		return true
	}
	return decision.Outcome == models.OutcomeGranted
}

func (s *Service) observe(decision models.Decision, d time.Duration) {
	metrics.RecordDecision(string(decision.Outcome), decision.RiskScore, d)
	for _, f := range decision.RiskFactors {
		if f.Degraded {
			metrics.RecordDegradation(f.Name)
		}
		if f.Name == models.PillarBehavior && f.Points == risk.BehaviorImpossiblePoints && f.Status == models.StatusDanger {
			metrics.ImpossibleTravelTotal.Inc()
		}
	}
}
