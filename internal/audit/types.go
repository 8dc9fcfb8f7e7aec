// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

// Package audit records one immutable entry per decided login attempt.
//
// Writes are asynchronous: Writer.Record builds the entry, queues it and
// returns immediately, and a background loop persists it with retries.
// Stores are idempotent on attempt ID, so a retried or repeated write never
// produces a second row.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/gatekeeper/internal/models"
)

// ErrNotFound is returned by Get for unknown attempt IDs.
var ErrNotFound = errors.New("audit entry not found")

// Query limits.
const (
	DefaultQueryLimit = 50
	MaxQueryLimit     = 500
)

// Store is append-only persistence for audit entries. Entries are never
// updated or deleted.
type Store interface {
	// Save inserts entry unless an entry with the same attempt ID exists.
	// It reports whether a new row was written.
	Save(ctx context.Context, entry *models.AuditEntry) (bool, error)

	Get(ctx context.Context, attemptID string) (*models.AuditEntry, error)

	// Query returns matching entries, most recently recorded first.
	Query(ctx context.Context, filter QueryFilter) ([]models.AuditEntry, error)

	Count(ctx context.Context, filter QueryFilter) (int64, error)
}

// QueryFilter narrows Query and Count. Zero values mean "no constraint".
type QueryFilter struct {
	Principal string
	Outcome   models.Outcome
	Since     time.Time
	Until     time.Time
	Limit     int
	Offset    int
}

// DefaultQueryFilter returns a filter with the default page size.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: DefaultQueryLimit}
}

// normalized clamps the page size.
func (f QueryFilter) normalized() QueryFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultQueryLimit
	}
	if f.Limit > MaxQueryLimit {
		f.Limit = MaxQueryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func (f QueryFilter) matches(e *models.AuditEntry) bool {
	if f.Principal != "" && !equalPrincipal(f.Principal, e.Principal) {
		return false
	}
	if f.Outcome != "" && e.Decision.Outcome != f.Outcome {
		return false
	}
	if !f.Since.IsZero() && e.RecordedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.RecordedAt.After(f.Until) {
		return false
	}
	return true
}
