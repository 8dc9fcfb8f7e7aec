// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tomtom215/gatekeeper/internal/models"
)

// ErrEmptyPrincipal is returned for blank principal identifiers.
var ErrEmptyPrincipal = errors.New("principal is required")

// UpdateFunc receives the current baseline (nil if none) and returns the
// baseline to store. Returning nil leaves the stored baseline untouched.
type UpdateFunc func(current *models.TrustBaseline) (*models.TrustBaseline, error)

// Registry serializes access per principal on top of a Store.
type Registry struct {
	store Store

	mu    sync.Mutex
	locks map[string]*principalLock
}

type principalLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a registry over store.
func New(store Store) *Registry {
	return &Registry{
		store: store,
		locks: make(map[string]*principalLock),
	}
}

// acquire blocks until the principal's lock is held and returns its release.
// Lock entries are dropped once no goroutine references them.
func (r *Registry) acquire(key string) func() {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &principalLock{}
		r.locks[key] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, key)
		}
		r.mu.Unlock()
	}
}

// GetBaseline returns the principal's baseline, or nil if none has been
// recorded. Absence is not an error.
func (r *Registry) GetBaseline(ctx context.Context, principal string) (*models.TrustBaseline, error) {
	key := normalizePrincipal(principal)
	if key == "" {
		return nil, ErrEmptyPrincipal
	}

	release := r.acquire(key)
	defer release()

	b, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load baseline for %s: %w", key, err)
	}
	return b, nil
}

// UpdateBaseline replaces the principal's baseline.
func (r *Registry) UpdateBaseline(ctx context.Context, principal string, baseline *models.TrustBaseline) error {
	return r.Update(ctx, principal, func(*models.TrustBaseline) (*models.TrustBaseline, error) {
		return baseline, nil
	})
}

// Update performs a read-modify-write for one principal while holding that
// principal's lock. Concurrent Updates for the same principal run one after
// another; the last to run wins.
func (r *Registry) Update(ctx context.Context, principal string, fn UpdateFunc) error {
	key := normalizePrincipal(principal)
	if key == "" {
		return ErrEmptyPrincipal
	}

	release := r.acquire(key)
	defer release()

	if err := ctx.Err(); err != nil {
		return err
	}

	current, err := r.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load baseline for %s: %w", key, err)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}

	stored := *next
	stored.Principal = key
	if err := r.store.Put(ctx, &stored); err != nil {
		return fmt.Errorf("store baseline for %s: %w", key, err)
	}
	return nil
}

// Forget removes the principal's baseline so the next login is treated as a
// first login.
func (r *Registry) Forget(ctx context.Context, principal string) error {
	key := normalizePrincipal(principal)
	if key == "" {
		return ErrEmptyPrincipal
	}

	release := r.acquire(key)
	defer release()

	if err := r.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete baseline for %s: %w", key, err)
	}
	return nil
}

// Count returns the number of principals with a baseline.
func (r *Registry) Count(ctx context.Context) (int, error) {
	return r.store.Count(ctx)
}

// Close closes the underlying store.
func (r *Registry) Close() error {
	return r.store.Close()
}
