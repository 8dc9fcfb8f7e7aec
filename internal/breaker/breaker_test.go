// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package breaker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

var errBackend = errors.New("backend unavailable")

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	b := New[int](Config{Name: "test-open", FailureThreshold: 3, Timeout: time.Hour})

	for i := 0; i < 3; i++ {
		if _, err := b.Execute(func() (int, error) { return 0, errBackend }); !errors.Is(err, errBackend) {
			t.Fatalf("call %d: err = %v, want backend error", i, err)
		}
	}

	if got := b.State(); got != "open" {
		t.Fatalf("State() = %q, want open", got)
	}

	called := false
	_, err := b.Execute(func() (int, error) {
		called = true
		return 1, nil
	})
	if !IsRejected(err) {
		t.Errorf("err = %v, want rejection", err)
	}
	if called {
		t.Error("fn ran while circuit was open")
	}
}

func TestBreaker_SuccessResetsStreak(t *testing.T) {
	t.Parallel()

	b := New[string](Config{Name: "test-reset", FailureThreshold: 2, Timeout: time.Hour})

	_, _ = b.Execute(func() (string, error) { return "", errBackend })
	got, err := b.Execute(func() (string, error) { return "ok", nil })
	if err != nil || got != "ok" {
		t.Fatalf("Execute = (%q, %v), want (ok, nil)", got, err)
	}
	_, _ = b.Execute(func() (string, error) { return "", errBackend })

	if s := b.State(); s != "closed" {
		t.Errorf("State() = %q, want closed", s)
	}
}

func TestBreaker_CancellationDoesNotTrip(t *testing.T) {
	t.Parallel()

	b := New[bool](Config{Name: "test-cancel", FailureThreshold: 1, Timeout: time.Hour})

	_, err := b.Execute(func() (bool, error) {
		return false, fmt.Errorf("save: %w", context.Canceled)
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if s := b.State(); s != "closed" {
		t.Errorf("State() = %q, want closed", s)
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state gobreaker.State
		want  string
	}{
		{gobreaker.StateClosed, "closed"},
		{gobreaker.StateHalfOpen, "half-open"},
		{gobreaker.StateOpen, "open"},
		{gobreaker.State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := StateString(tt.state); got != tt.want {
			t.Errorf("StateString(%v) = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestBreaker_BenignErrorsDoNotTrip(t *testing.T) {
	t.Parallel()

	errNoRecord := errors.New("no record")
	b := New[int](Config{Name: "test-benign", FailureThreshold: 1, Timeout: time.Hour, Benign: []error{errNoRecord}})

	for i := 0; i < 3; i++ {
		if _, err := b.Execute(func() (int, error) { return 0, fmt.Errorf("lookup: %w", errNoRecord) }); !errors.Is(err, errNoRecord) {
			t.Fatalf("err = %v, want errNoRecord", err)
		}
	}
	if s := b.State(); s != "closed" {
		t.Errorf("State() = %q, want closed", s)
	}
}
