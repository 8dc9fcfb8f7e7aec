// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package audit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/gatekeeper/internal/breaker"
	"github.com/tomtom215/gatekeeper/internal/logging"
	"github.com/tomtom215/gatekeeper/internal/metrics"
	"github.com/tomtom215/gatekeeper/internal/models"
)

const maxRetryBackoff = time.Minute

// WriterConfig tunes the asynchronous writer.
type WriterConfig struct {
	// BufferSize is the number of entries that may wait for persistence.
	// Entries recorded while the buffer is full are dropped and counted.
	BufferSize int

	// MaxRetries is the number of retries after the first failed save.
	MaxRetries int

	// RetryBackoff is the first retry delay; it doubles per attempt.
	RetryBackoff time.Duration

	// WriteTimeout bounds a single Save call.
	WriteTimeout time.Duration

	// DrainTimeout bounds persistence of queued entries at shutdown.
	DrainTimeout time.Duration

	Breaker breaker.Config
}

// DefaultWriterConfig returns production defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BufferSize:   1024,
		MaxRetries:   5,
		RetryBackoff: 200 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		DrainTimeout: 10 * time.Second,
		Breaker:      breaker.DefaultConfig("audit-store"),
	}
}

// Writer persists audit entries off the decision path. It implements
// suture.Service through Serve.
type Writer struct {
	store Store
	cfg   WriterConfig
	queue chan *models.AuditEntry
	cb    *breaker.Breaker[bool]
	now   func() time.Time
}

// NewWriter creates a writer over store. Zero config fields take defaults.
func NewWriter(store Store, cfg WriterConfig) *Writer {
	def := DefaultWriterConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = def.DrainTimeout
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = def.Breaker
	}

	return &Writer{
		store: store,
		cfg:   cfg,
		queue: make(chan *models.AuditEntry, cfg.BufferSize),
		cb:    breaker.New[bool](cfg.Breaker),
		now:   time.Now,
	}
}

// Record builds the entry for a decided attempt and queues it for
// persistence. It never blocks and never fails; the returned entry carries
// the server-side RecordedAt.
func (w *Writer) Record(attempt models.LoginAttempt, decision models.Decision) models.AuditEntry {
	entry := models.AuditEntry{
		AttemptID:  decision.AttemptID,
		Principal:  attempt.Principal,
		Attempt:    attempt,
		Decision:   decision,
		RecordedAt: w.now().UTC(),
	}
	if entry.AttemptID == "" {
		entry.AttemptID = attempt.ID
	}

	queued := entry
	select {
	case w.queue <- &queued:
		metrics.AuditQueueDepth.Set(float64(len(w.queue)))
	default:
		metrics.AuditDropped.Inc()
		logging.Error().
			Str("attempt_id", entry.AttemptID).
			Str("principal", entry.Principal).
			Int("buffer_size", w.cfg.BufferSize).
			Msg("Audit buffer full, entry dropped")
	}
	return entry
}

// Pending returns the number of queued entries.
func (w *Writer) Pending() int {
	return len(w.queue)
}

// BreakerState reports the store circuit breaker state.
func (w *Writer) BreakerState() string {
	return w.cb.State()
}

// Serve persists queued entries until ctx is canceled, then drains what is
// left under DrainTimeout.
func (w *Writer) Serve(ctx context.Context) error {
	logger := logging.WithComponent("audit-writer")
	logger.Info().Int("buffer_size", w.cfg.BufferSize).Msg("Audit writer started")

	for {
		select {
		case entry := <-w.queue:
			metrics.AuditQueueDepth.Set(float64(len(w.queue)))
			if err := w.persist(ctx, entry); err != nil {
				if ctx.Err() != nil {
					w.drain(entry)
					return ctx.Err()
				}
				logger.Error().Err(err).Str("attempt_id", entry.AttemptID).Msg("Audit entry could not be persisted")
			}
		case <-ctx.Done():
			w.drain(nil)
			logger.Info().Msg("Audit writer stopped")
			return ctx.Err()
		}
	}
}

// drain persists inflight (if any) and every queued entry with a fresh
// context.
func (w *Writer) drain(inflight *models.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.DrainTimeout)
	defer cancel()

	pending := make([]*models.AuditEntry, 0, len(w.queue)+1)
	if inflight != nil {
		pending = append(pending, inflight)
	}
	for {
		select {
		case entry := <-w.queue:
			pending = append(pending, entry)
			continue
		default:
		}
		break
	}
	metrics.AuditQueueDepth.Set(0)

	for i, entry := range pending {
		if err := w.persist(ctx, entry); err != nil {
			if ctx.Err() != nil {
				logging.Error().Err(err).
					Int("lost", len(pending)-i).
					Msg("Audit drain aborted")
				return
			}
			logging.Error().Err(err).Str("attempt_id", entry.AttemptID).Msg("Audit entry could not be persisted")
		}
	}
	if len(pending) > 0 {
		logging.Info().Int("entries", len(pending)).Msg("Audit queue drained")
	}
}

// persist saves entry, retrying with exponential backoff. A duplicate
// attempt ID counts as success.
func (w *Writer) persist(ctx context.Context, entry *models.AuditEntry) error {
	var err error
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt > 0 {
			delay := calculateBackoff(w.cfg.RetryBackoff, attempt-1)
			metrics.AuditRetries.Inc()
			logging.Warn().Err(err).
				Str("attempt_id", entry.AttemptID).
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Msg("Retrying audit write")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var inserted bool
		inserted, err = w.save(ctx, entry)
		if breaker.IsRejected(err) {
			continue
		}
		metrics.RecordAuditWrite(inserted, err)
		if err == nil {
			if !inserted {
				logging.Debug().Str("attempt_id", entry.AttemptID).Msg("Audit entry already recorded")
			}
			return nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("persist audit entry %s after %d attempts: %w", entry.AttemptID, w.cfg.MaxRetries+1, err)
}

func (w *Writer) save(ctx context.Context, entry *models.AuditEntry) (bool, error) {
	return w.cb.Execute(func() (bool, error) {
		writeCtx, cancel := context.WithTimeout(ctx, w.cfg.WriteTimeout)
		defer cancel()
		return w.store.Save(writeCtx, entry)
	})
}

// calculateBackoff returns base * 2^attempts, capped at maxRetryBackoff.
func calculateBackoff(base time.Duration, attempts int) time.Duration {
	if attempts > 30 {
		return maxRetryBackoff
	}
	backoff := time.Duration(float64(base) * math.Pow(2, float64(attempts)))
	if backoff <= 0 || backoff > maxRetryBackoff {
		return maxRetryBackoff
	}
	return backoff
}
