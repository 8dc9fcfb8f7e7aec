// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

// Package registry is the Trust Registry: per-principal baselines of the
// last trusted device and location.
//
// Stores are plain key/value persistence. Registry layers per-principal
// locking on top so read-modify-write cycles for one principal never
// interleave, while different principals proceed in parallel.
package registry

import (
	"context"
	"strings"
	"sync"

	"github.com/tomtom215/gatekeeper/internal/models"
)

// Store persists baselines. Get returns (nil, nil) for an unknown principal.
type Store interface {
	Get(ctx context.Context, principal string) (*models.TrustBaseline, error)
	Put(ctx context.Context, baseline *models.TrustBaseline) error
	Delete(ctx context.Context, principal string) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// normalizePrincipal is applied to every key so that "Ada@Example.com" and
// "ada@example.com" share one baseline.
func normalizePrincipal(principal string) string {
	return strings.ToLower(strings.TrimSpace(principal))
}

// MemoryStore keeps baselines in a map. Used in tests and single-node dev runs.
type MemoryStore struct {
	mu        sync.RWMutex
	baselines map[string]models.TrustBaseline
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{baselines: make(map[string]models.TrustBaseline)}
}

func (s *MemoryStore) Get(_ context.Context, principal string) (*models.TrustBaseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.baselines[normalizePrincipal(principal)]
	if !ok {
		return nil, nil
	}
	return cloneBaseline(&b), nil
}

func (s *MemoryStore) Put(_ context.Context, baseline *models.TrustBaseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.baselines[normalizePrincipal(baseline.Principal)] = *cloneBaseline(baseline)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.baselines, normalizePrincipal(principal))
	return nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.baselines), nil
}

func (s *MemoryStore) Close() error { return nil }

// cloneBaseline copies b including its location so callers cannot mutate
// stored state through a returned pointer.
func cloneBaseline(b *models.TrustBaseline) *models.TrustBaseline {
	out := *b
	if b.LastLocation != nil {
		loc := *b.LastLocation
		out.LastLocation = &loc
	}
	return &out
}
