// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package audit

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/tomtom215/gatekeeper/internal/models"
)

// MemoryStore keeps entries in memory. For tests and development.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []models.AuditEntry
	byID    map[string]int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int)}
}

func (s *MemoryStore) Save(_ context.Context, entry *models.AuditEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[entry.AttemptID]; exists {
		return false, nil
	}
	s.byID[entry.AttemptID] = len(s.entries)
	s.entries = append(s.entries, *entry)
	return true, nil
}

func (s *MemoryStore) Get(_ context.Context, attemptID string) (*models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[attemptID]
	if !ok {
		return nil, ErrNotFound
	}
	e := s.entries[idx]
	return &e, nil
}

func (s *MemoryStore) Query(_ context.Context, filter QueryFilter) ([]models.AuditEntry, error) {
	filter = filter.normalized()

	s.mu.RLock()
	matched := make([]models.AuditEntry, 0)
	for i := range s.entries {
		if filter.matches(&s.entries[i]) {
			matched = append(matched, s.entries[i])
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(matched)

	if filter.Offset >= len(matched) {
		return []models.AuditEntry{}, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], nil
}

func (s *MemoryStore) Count(_ context.Context, filter QueryFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for i := range s.entries {
		if filter.matches(&s.entries[i]) {
			n++
		}
	}
	return n, nil
}

// sortNewestFirst orders by RecordedAt descending, then attempt ID for a
// stable order among equal timestamps.
func sortNewestFirst(entries []models.AuditEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].RecordedAt.Equal(entries[j].RecordedAt) {
			return entries[i].RecordedAt.After(entries[j].RecordedAt)
		}
		return entries[i].AttemptID > entries[j].AttemptID
	})
}

func equalPrincipal(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
