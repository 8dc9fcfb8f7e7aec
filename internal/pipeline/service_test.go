// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/gatekeeper/internal/audit"
	"github.com/tomtom215/gatekeeper/internal/config"
	"github.com/tomtom215/gatekeeper/internal/device"
	"github.com/tomtom215/gatekeeper/internal/models"
	"github.com/tomtom215/gatekeeper/internal/registry"
	"github.com/tomtom215/gatekeeper/internal/risk"
)

var (
	lagos  = models.Location{City: "Lagos", Country: "NG", Latitude: 6.5244, Longitude: 3.3792}
	london = models.Location{City: "London", Country: "GB", Latitude: 51.5074, Longitude: -0.1278}

	baseTime = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
)

type staticDirectory struct {
	known map[string]bool
	err   error
}

func (d staticDirectory) IsKnown(principal string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.known[principal], nil
}

type mockLocator struct {
	mu        sync.Mutex
	locations map[string]models.Location
	calls     int
}

func (l *mockLocator) Resolve(_ context.Context, ip string) (*models.Location, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	loc, ok := l.locations[ip]
	if !ok {
		return nil, errors.New("address not found")
	}
	return &loc, nil
}

func (l *mockLocator) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

type mockRecorder struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (r *mockRecorder) Record(attempt models.LoginAttempt, decision models.Decision) models.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := models.AuditEntry{
		AttemptID:  decision.AttemptID,
		Principal:  attempt.Principal,
		Attempt:    attempt,
		Decision:   decision,
		RecordedAt: baseTime,
	}
	r.entries = append(r.entries, entry)
	return entry
}

func (r *mockRecorder) Entries() []models.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuditEntry(nil), r.entries...)
}

type mockPublisher struct {
	mu        sync.Mutex
	published []models.AuditEntry
}

func (p *mockPublisher) Publish(entry models.AuditEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, entry)
}

func (p *mockPublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

// failingBaselines fails Update either before or after running fn.
type failingBaselines struct {
	afterEvaluate bool
}

func (b failingBaselines) Update(_ context.Context, _ string, fn registry.UpdateFunc) error {
	if b.afterEvaluate {
		if _, err := fn(nil); err != nil {
			return err
		}
	}
	return errors.New("store unavailable")
}

type fixture struct {
	svc       *Service
	registry  *registry.Registry
	locator   *mockLocator
	recorder  *mockRecorder
	publisher *mockPublisher
}

func newFixture(t *testing.T, policy string) *fixture {
	t.Helper()
	f := &fixture{
		registry: registry.New(registry.NewMemoryStore()),
		locator: &mockLocator{locations: map[string]models.Location{
			"41.58.0.1":   lagos,
			"81.2.69.160": london,
		}},
		recorder:  &mockRecorder{},
		publisher: &mockPublisher{},
	}
	svc, err := New(Config{
		Directory:    staticDirectory{known: map[string]bool{"alice@example.com": true}},
		Locator:      f.locator,
		Baselines:    f.registry,
		Recorder:     f.recorder,
		Publisher:    f.publisher,
		UpdatePolicy: policy,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) decide(t *testing.T, req Request) models.Decision {
	t.Helper()
	d, err := f.svc.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	return d
}

func factorByName(d models.Decision, name string) models.RiskFactor {
	for _, f := range d.RiskFactors {
		if f.Name == name {
			return f
		}
	}
	return models.RiskFactor{}
}

func TestDecide_Scenarios(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")

	first := f.decide(t, Request{
		Principal:         "alice@example.com",
		DeviceFingerprint: "fp-laptop",
		IP:                "41.58.0.1",
		Timestamp:         baseTime,
	})
	if first.Outcome != models.OutcomeGranted || first.RiskScore != 25 {
		t.Fatalf("first login = %s/%d, want GRANTED/25", first.Outcome, first.RiskScore)
	}
	if b := factorByName(first, models.PillarBehavior); b.Points != risk.BehaviorFirstLoginPoints {
		t.Errorf("first login behavior points = %d, want %d", b.Points, risk.BehaviorFirstLoginPoints)
	}

	sameCity := f.decide(t, Request{
		Principal:         "alice@example.com",
		DeviceFingerprint: "fp-laptop",
		IP:                "41.58.0.1",
		Timestamp:         baseTime.Add(8 * time.Hour),
	})
	if sameCity.Outcome != models.OutcomeGranted || sameCity.RiskScore != 5 {
		t.Errorf("same device and city = %s/%d, want GRANTED/5", sameCity.Outcome, sameCity.RiskScore)
	}

	newDevice := f.decide(t, Request{
		Principal:         "alice@example.com",
		DeviceFingerprint: "fp-unknown",
		IP:                "41.58.0.1",
		Timestamp:         baseTime.Add(9 * time.Hour),
	})
	if newDevice.Outcome != models.OutcomeChallenge {
		t.Errorf("unknown device in known city = %s/%d, want CHALLENGE", newDevice.Outcome, newDevice.RiskScore)
	}

	travel := f.decide(t, Request{
		Principal:         "alice@example.com",
		DeviceFingerprint: "fp-laptop",
		IP:                "81.2.69.160",
		Timestamp:         baseTime.Add(8*time.Hour + 45*time.Minute),
	})
	if travel.Outcome != models.OutcomeBlocked {
		t.Errorf("Lagos to London in 45m = %s/%d, want BLOCKED", travel.Outcome, travel.RiskScore)
	}
	if b := factorByName(travel, models.PillarBehavior); b.Status != models.StatusDanger {
		t.Errorf("behavior status = %s, want danger", b.Status)
	}

	if n := len(f.recorder.Entries()); n != 4 {
		t.Errorf("audit entries = %d, want 4", n)
	}
	if n := f.publisher.Count(); n != 4 {
		t.Errorf("published events = %d, want 4", n)
	}
}

func TestDecide_UnknownPrincipal(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	d := f.decide(t, Request{Principal: "mallory@example.com", IP: "41.58.0.1", DeviceFingerprint: "fp"})

	if d.Outcome != models.OutcomeBlocked || d.RiskScore != risk.MaxScore {
		t.Errorf("unknown principal = %s/%d, want BLOCKED/100", d.Outcome, d.RiskScore)
	}
	if d.Reason != risk.UnknownPrincipalReason {
		t.Errorf("reason = %q", d.Reason)
	}
	if d.RiskFactors == nil || len(d.RiskFactors) != 0 {
		t.Errorf("risk factors = %v, want empty slice", d.RiskFactors)
	}
	if f.locator.Calls() != 0 {
		t.Error("unknown principal should not be geolocated")
	}
	if n, _ := f.registry.Count(context.Background()); n != 0 {
		t.Errorf("baselines = %d, want 0", n)
	}
	if n := len(f.recorder.Entries()); n != 1 {
		t.Errorf("unknown principal must still be audited, entries = %d", n)
	}
}

func TestDecide_DirectoryErrorFailsClosed(t *testing.T) {
	t.Parallel()

	svc, err := New(Config{
		Directory: staticDirectory{err: errors.New("policy backend down")},
		Baselines: registry.New(registry.NewMemoryStore()),
		Recorder:  &mockRecorder{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d, err := svc.Decide(context.Background(), Request{Principal: "alice@example.com"})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Outcome != models.OutcomeBlocked {
		t.Errorf("outcome = %s, want BLOCKED", d.Outcome)
	}
}

func TestDecide_AttemptFields(t *testing.T) {
	t.Parallel()

	const ua = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	f := newFixture(t, "")
	now := baseTime.Add(time.Hour)
	f.svc.now = func() time.Time { return now }

	d := f.decide(t, Request{
		AttemptID:      "caller-id-1",
		Principal:      "  Alice@Example.com ",
		IP:             "41.58.0.1",
		UserAgent:      ua,
		AcceptLanguage: "en-US",
	})
	if d.AttemptID != "caller-id-1" {
		t.Errorf("attempt ID = %q, want caller-supplied", d.AttemptID)
	}

	entries := f.recorder.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	attempt := entries[0].Attempt
	if attempt.Principal != "alice@example.com" {
		t.Errorf("principal = %q, want normalized", attempt.Principal)
	}
	if !attempt.Timestamp.Equal(now) {
		t.Errorf("timestamp = %v, want %v", attempt.Timestamp, now)
	}
	if want := device.Fingerprint(ua, "en-US"); attempt.DeviceFingerprint != want {
		t.Errorf("fingerprint = %q, want derived %q", attempt.DeviceFingerprint, want)
	}
	if attempt.DeviceName != device.DisplayName(ua) {
		t.Errorf("device name = %q", attempt.DeviceName)
	}
	if attempt.Location == nil || attempt.Location.City != "Lagos" {
		t.Errorf("location = %v, want Lagos", attempt.Location)
	}
}

func TestDecide_GeneratesAttemptID(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	a := f.decide(t, Request{Principal: "alice@example.com", DeviceFingerprint: "fp"})
	b := f.decide(t, Request{Principal: "alice@example.com", DeviceFingerprint: "fp"})
	if a.AttemptID == "" || a.AttemptID == b.AttemptID {
		t.Errorf("attempt IDs %q and %q should be distinct and non-empty", a.AttemptID, b.AttemptID)
	}
}

func TestDecide_SuppliedLocationBypassesLocator(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	supplied := london
	d := f.decide(t, Request{
		Principal:         "alice@example.com",
		DeviceFingerprint: "fp",
		IP:                "41.58.0.1",
		Location:          &supplied,
	})
	if f.locator.Calls() != 0 {
		t.Errorf("locator called %d times, want 0", f.locator.Calls())
	}
	if l := factorByName(d, models.PillarLocation); !strings.Contains(l.Label, "London") {
		t.Errorf("location label = %q, want London", l.Label)
	}
}

func TestDecide_GeolocationFailureDegrades(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	d := f.decide(t, Request{
		Principal:         "alice@example.com",
		DeviceFingerprint: "fp",
		IP:                "203.0.113.9",
	})

	loc := factorByName(d, models.PillarLocation)
	if !loc.Degraded || loc.Points != risk.DegradedPoints {
		t.Errorf("location factor = %+v, want degraded", loc)
	}
	// First login: behavior needs no location.
	if b := factorByName(d, models.PillarBehavior); b.Degraded {
		t.Errorf("behavior should not degrade on first login: %+v", b)
	}
	if entries := f.recorder.Entries(); entries[0].Attempt.GeoError == "" {
		t.Error("geo error should be recorded on the attempt")
	}
}

func TestDecide_UpdatePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		policy    string
		wantMoved bool
	}{
		{"on grant keeps baseline after challenge", config.UpdatePolicyOnGrant, false},
		{"always moves baseline", config.UpdatePolicyAlways, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, tt.policy)
			f.decide(t, Request{Principal: "alice@example.com", DeviceFingerprint: "fp-laptop", IP: "41.58.0.1", Timestamp: baseTime})
			d := f.decide(t, Request{Principal: "alice@example.com", DeviceFingerprint: "fp-phone", IP: "41.58.0.1", Timestamp: baseTime.Add(time.Hour)})
			if d.Outcome == models.OutcomeGranted {
				t.Fatalf("second attempt unexpectedly granted")
			}

			b, err := f.registry.GetBaseline(context.Background(), "alice@example.com")
			if err != nil || b == nil {
				t.Fatalf("GetBaseline = %v, %v", b, err)
			}
			moved := b.TrustedFingerprint == "fp-phone"
			if moved != tt.wantMoved {
				t.Errorf("trusted fingerprint = %q, moved = %v, want %v", b.TrustedFingerprint, moved, tt.wantMoved)
			}
		})
	}
}

func TestDecide_RegistryFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		afterEvaluate bool
		wantScore     int
		wantDegraded  bool
	}{
		{"read failure degrades baseline pillars", false, 20, true},
		{"write failure keeps decision", true, 25, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, err := New(Config{
				Directory: staticDirectory{known: map[string]bool{"alice@example.com": true}},
				Baselines: failingBaselines{afterEvaluate: tt.afterEvaluate},
				Recorder:  &mockRecorder{},
			})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			d, err := svc.Decide(context.Background(), Request{
				Principal:         "alice@example.com",
				DeviceFingerprint: "fp",
				Location:          &lagos,
			})
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if d.Outcome != models.OutcomeGranted || d.RiskScore != tt.wantScore {
				t.Errorf("decision = %s/%d, want GRANTED/%d", d.Outcome, d.RiskScore, tt.wantScore)
			}
			if id := factorByName(d, models.PillarIdentity); id.Degraded {
				t.Errorf("identity should not depend on the registry: %+v", id)
			}
			for _, name := range []string{models.PillarDevice, models.PillarLocation, models.PillarBehavior} {
				f := factorByName(d, name)
				if f.Degraded != tt.wantDegraded {
					t.Errorf("%s degraded = %v, want %v", name, f.Degraded, tt.wantDegraded)
				}
				if tt.wantDegraded && !strings.Contains(f.Label, errRegistryUnavailable.Error()) {
					t.Errorf("%s label = %q, want registry cause", name, f.Label)
				}
			}
		})
	}
}

func TestDecide_DuplicateAttemptID(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	req := Request{
		AttemptID:         "retry-1",
		Principal:         "alice@example.com",
		DeviceFingerprint: "fp-laptop",
		IP:                "41.58.0.1",
		Timestamp:         baseTime,
	}

	first := f.decide(t, req)
	if first.Outcome != models.OutcomeGranted || first.RiskScore != 25 {
		t.Fatalf("first = %s/%d, want GRANTED/25", first.Outcome, first.RiskScore)
	}
	before, err := f.registry.GetBaseline(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("registry Get: %v", err)
	}

	for i := 0; i < 2; i++ {
		again := f.decide(t, req)
		if again.Outcome != first.Outcome || again.RiskScore != first.RiskScore || again.Reason != first.Reason {
			t.Errorf("retry %d = %s/%d, want recorded %s/%d", i, again.Outcome, again.RiskScore, first.Outcome, first.RiskScore)
		}
	}

	if n := len(f.recorder.Entries()); n != 1 {
		t.Errorf("audit entries = %d, want 1", n)
	}
	if n := f.publisher.Count(); n != 1 {
		t.Errorf("published = %d, want 1", n)
	}
	after, err := f.registry.GetBaseline(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("registry Get: %v", err)
	}
	if before == nil || after == nil || !after.UpdatedAt.Equal(before.UpdatedAt) || after.LastAttemptID != before.LastAttemptID {
		t.Errorf("baseline changed on retry: before %+v, after %+v", before, after)
	}
}

func TestDecide_AttemptIDConflict(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	f.decide(t, Request{
		AttemptID:         "shared-id",
		Principal:         "alice@example.com",
		DeviceFingerprint: "fp-laptop",
		IP:                "41.58.0.1",
		Timestamp:         baseTime,
	})

	_, err := f.svc.Decide(context.Background(), Request{
		AttemptID:         "shared-id",
		Principal:         "mallory@example.com",
		DeviceFingerprint: "fp-other",
		IP:                "81.2.69.160",
		Timestamp:         baseTime.Add(time.Minute),
	})
	if !errors.Is(err, ErrAttemptConflict) {
		t.Fatalf("err = %v, want ErrAttemptConflict", err)
	}

	entries := f.recorder.Entries()
	if len(entries) != 1 || entries[0].Principal != "alice@example.com" {
		t.Errorf("entries = %+v, want only alice's attempt", entries)
	}
	if n := f.publisher.Count(); n != 1 {
		t.Errorf("published = %d, want 1", n)
	}
	if n := f.locator.Calls(); n != 1 {
		t.Errorf("locator calls = %d, conflicting attempt should not be evaluated", n)
	}
}

type stubAttempts struct {
	mu      sync.Mutex
	entries map[string]models.AuditEntry
	err     error
	calls   int
}

func (a *stubAttempts) Get(_ context.Context, attemptID string) (*models.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	e, ok := a.entries[attemptID]
	if !ok {
		return nil, audit.ErrNotFound
	}
	return &e, nil
}

func TestDecide_ReplaysFromAuditLog(t *testing.T) {
	t.Parallel()

	recorded := models.Decision{AttemptID: "persisted-1", Outcome: models.OutcomeChallenge, RiskScore: 45, Reason: "recorded"}
	tests := []struct {
		name      string
		principal string
		wantErr   error
	}{
		{"same principal gets recorded decision", "Alice@Example.com", nil},
		{"other principal is rejected", "mallory@example.com", ErrAttemptConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			attempts := &stubAttempts{entries: map[string]models.AuditEntry{
				"persisted-1": {AttemptID: "persisted-1", Principal: "alice@example.com", Decision: recorded},
			}}
			recorder := &mockRecorder{}
			svc, err := New(Config{
				Directory: staticDirectory{known: map[string]bool{"alice@example.com": true}},
				Baselines: registry.New(registry.NewMemoryStore()),
				Recorder:  recorder,
				Attempts:  attempts,
			})
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			for i := 0; i < 2; i++ {
				d, err := svc.Decide(context.Background(), Request{AttemptID: "persisted-1", Principal: tt.principal})
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if tt.wantErr == nil && (d.Outcome != recorded.Outcome || d.RiskScore != recorded.RiskScore) {
					t.Errorf("decision = %s/%d, want recorded %s/%d", d.Outcome, d.RiskScore, recorded.Outcome, recorded.RiskScore)
				}
			}
			if n := len(recorder.Entries()); n != 0 {
				t.Errorf("audit entries = %d, replay should not record", n)
			}
			if attempts.calls != 1 {
				t.Errorf("audit log lookups = %d, want 1 (then served from memory)", attempts.calls)
			}
		})
	}
}

func TestDecide_AttemptLookupFailureEvaluates(t *testing.T) {
	t.Parallel()

	recorder := &mockRecorder{}
	svc, err := New(Config{
		Directory: staticDirectory{known: map[string]bool{"alice@example.com": true}},
		Baselines: registry.New(registry.NewMemoryStore()),
		Recorder:  recorder,
		Attempts:  &stubAttempts{err: errors.New("connection refused")},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	d, err := svc.Decide(context.Background(), Request{AttemptID: "new-1", Principal: "alice@example.com", Location: &lagos})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.AttemptID != "new-1" || len(recorder.Entries()) != 1 {
		t.Errorf("decision %+v, entries %d; want a fresh evaluation", d, len(recorder.Entries()))
	}
}

func TestDecide_ConcurrentDuplicates(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	req := Request{
		AttemptID:         "burst-1",
		Principal:         "alice@example.com",
		DeviceFingerprint: "fp-laptop",
		IP:                "41.58.0.1",
		Timestamp:         baseTime,
	}

	const workers = 16
	results := make([]models.Decision, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := f.svc.Decide(context.Background(), req)
			if err != nil {
				t.Errorf("Decide: %v", err)
				return
			}
			results[i] = d
		}(i)
	}
	wg.Wait()

	for i, d := range results {
		if d.RiskScore != results[0].RiskScore || d.Outcome != results[0].Outcome {
			t.Errorf("worker %d got %s/%d, want %s/%d", i, d.Outcome, d.RiskScore, results[0].Outcome, results[0].RiskScore)
		}
	}
	if n := len(f.recorder.Entries()); n != 1 {
		t.Errorf("audit entries = %d, want 1", n)
	}
	if n := f.publisher.Count(); n != 1 {
		t.Errorf("published = %d, want 1", n)
	}
}

func TestDecide_InvalidRequest(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	_, err := f.svc.Decide(context.Background(), Request{Principal: "   "})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
	if n := len(f.recorder.Entries()); n != 0 {
		t.Errorf("invalid request audited %d times", n)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	dir := staticDirectory{}
	base := registry.New(registry.NewMemoryStore())
	rec := &mockRecorder{}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing directory", Config{Baselines: base, Recorder: rec}},
		{"missing baselines", Config{Directory: dir, Recorder: rec}},
		{"missing recorder", Config{Directory: dir, Baselines: base}},
		{"unknown policy", Config{Directory: dir, Baselines: base, Recorder: rec, UpdatePolicy: "sometimes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDecide_ConcurrentSamePrincipal(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.UpdatePolicyAlways)

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = f.svc.Decide(context.Background(), Request{
				Principal:         "alice@example.com",
				DeviceFingerprint: "fp-" + string(rune('a'+i)),
				Location:          &lagos,
				Timestamp:         baseTime.Add(time.Duration(i) * time.Hour),
			})
		}(i)
	}
	wg.Wait()

	b, err := f.registry.GetBaseline(context.Background(), "alice@example.com")
	if err != nil || b == nil {
		t.Fatalf("GetBaseline = %v, %v", b, err)
	}
	// The stored baseline is exactly one writer's attempt.
	found := 0
	for _, e := range f.recorder.Entries() {
		if e.AttemptID == b.LastAttemptID {
			found++
			if e.Attempt.DeviceFingerprint != b.TrustedFingerprint {
				t.Errorf("baseline fingerprint %q does not match attempt %q", b.TrustedFingerprint, e.Attempt.DeviceFingerprint)
			}
		}
	}
	if found != 1 {
		t.Errorf("baseline matches %d recorded attempts, want 1", found)
	}
}
