// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

// Package dispatch pushes decided attempts to live observers.
//
// The Hub fans each published audit entry out to every Subscription whose
// principal allow-list matches. Delivery is best-effort with no replay: every
// subscription owns a bounded channel and a full channel drops the entry for
// that subscriber only. Publish never blocks the decision path.
//
// Transports sit on top of subscriptions: ServeWS streams them to dashboard
// WebSocket clients and Forwarder republishes them to a Watermill bus.
package dispatch

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tomtom215/gatekeeper/internal/logging"
	"github.com/tomtom215/gatekeeper/internal/metrics"
	"github.com/tomtom215/gatekeeper/internal/models"
)

// Wildcard in an allow-list matches every principal.
const Wildcard = "*"

// DefaultSubscriberBuffer is the per-subscription channel capacity.
const DefaultSubscriberBuffer = 64

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Filter is a principal allow-list. An empty list matches nothing.
type Filter struct {
	Principals []string
}

// AllPrincipals returns a filter matching every principal.
func AllPrincipals() Filter {
	return Filter{Principals: []string{Wildcard}}
}

// ParseFilter builds a filter from a comma-separated list.
func ParseFilter(csv string) Filter {
	var principals []string
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			principals = append(principals, p)
		}
	}
	return Filter{Principals: principals}
}

// Allows reports whether principal is on the list.
func (f Filter) Allows(principal string) bool {
	principal = strings.TrimSpace(principal)
	for _, p := range f.Principals {
		if p == Wildcard || strings.EqualFold(strings.TrimSpace(p), principal) {
			return true
		}
	}
	return false
}

// subscriptionIDCounter orders subscriptions so fan-out is deterministic.
var subscriptionIDCounter atomic.Uint64

// Subscription is one observer's live feed.
type Subscription struct {
	id      uint64
	hub     *Hub
	filter  Filter
	ch      chan models.AuditEntry
	dropped atomic.Uint64
	once    sync.Once
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() uint64 {
	return s.id
}

// Events returns the delivery channel. It is closed by Close or when the hub
// shuts down.
func (s *Subscription) Events() <-chan models.AuditEntry {
	return s.ch
}

// Dropped returns how many entries this subscriber missed because its
// channel was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Hub maintains the set of live subscriptions.
type Hub struct {
	mu     sync.RWMutex
	buffer int
	closed bool

	// subs is kept sorted by subscription ID so fan-out order is stable
	// without sorting on every Publish.
	subs []*Subscription
}

// NewHub creates a hub whose subscriptions buffer up to buffer entries.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{buffer: buffer}
}

// Subscribe registers a new subscription. Subscribing to a closed hub
// returns an already-closed subscription.
func (h *Hub) Subscribe(filter Filter) *Subscription {
	sub := &Subscription{
		id:     subscriptionIDCounter.Add(1),
		hub:    h,
		filter: filter,
		ch:     make(chan models.AuditEntry, h.buffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	h.insertLocked(sub)
	metrics.DispatchSubscribers.Set(float64(len(h.subs)))

	logging.Debug().
		Uint64("subscription_id", sub.id).
		Strs("principals", filter.Principals).
		Int("total_subscribers", len(h.subs)).
		Msg("Subscriber added")
	return sub
}

// Publish delivers entry to every matching subscription without blocking.
func (h *Hub) Publish(entry models.AuditEntry) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	for _, sub := range h.subs {
		if !sub.filter.Allows(entry.Principal) {
			continue
		}
		select {
		case sub.ch <- entry:
			metrics.DispatchDelivered.Inc()
		default:
			sub.dropped.Add(1)
			metrics.DispatchDropped.Inc()
			logging.Warn().
				Uint64("subscription_id", sub.id).
				Str("attempt_id", entry.AttemptID).
				Msg("Subscriber channel full, dropping event")
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Serve blocks until ctx is canceled, then closes every subscription.
// It implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	h.reopen()
	<-ctx.Done()

	count := h.Close()
	logging.Info().
		Str("component", "dispatch-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("subscribers_closed", count).
		Msg("Dispatch hub stopped")
	return ctx.Err()
}

// Close closes every subscription and rejects new ones. It returns the number
// of subscriptions closed.
func (h *Hub) Close() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	count := len(h.subs)
	for _, sub := range h.subs {
		sub.once.Do(func() { close(sub.ch) })
	}
	h.subs = nil
	metrics.DispatchSubscribers.Set(0)
	return count
}

// reopen accepts subscriptions again after a supervisor restart.
func (h *Hub) reopen() {
	h.mu.Lock()
	h.closed = false
	h.mu.Unlock()
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if i, ok := h.indexLocked(sub.id); ok {
		copy(h.subs[i:], h.subs[i+1:])
		h.subs[len(h.subs)-1] = nil
		h.subs = h.subs[:len(h.subs)-1]
		metrics.DispatchSubscribers.Set(float64(len(h.subs)))
	}
	sub.once.Do(func() { close(sub.ch) })
}

// insertLocked adds sub at its ID position. IDs are allocated before the lock
// is taken, so a concurrent Subscribe may arrive out of order. Caller holds
// h.mu.
func (h *Hub) insertLocked(sub *Subscription) {
	i, _ := h.indexLocked(sub.id)
	h.subs = append(h.subs, nil)
	copy(h.subs[i+1:], h.subs[i:])
	h.subs[i] = sub
}

// indexLocked returns the position of id, or where it would be inserted.
// Caller holds h.mu.
func (h *Hub) indexLocked(id uint64) (int, bool) {
	i := sort.Search(len(h.subs), func(i int) bool {
		return h.subs[i].id >= id
	})
	return i, i < len(h.subs) && h.subs[i].id == id
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}
