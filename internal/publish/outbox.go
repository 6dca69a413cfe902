// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package publish

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/rulemine/internal/metrics"
	"github.com/tomtom215/rulemine/internal/repository"
)

// Outbox holds events that could not be published when they were produced.
// *repository.Store implements it.
type Outbox interface {
	EnqueueEvent(ctx context.Context, ruleSetID string, payload []byte) (string, error)
	PendingEvents(ctx context.Context, limit int) ([]repository.OutboxEntry, error)
	ConfirmEvent(ctx context.Context, id string) error
	RecordAttempt(ctx context.Context, id string, cause error) error
}

// RetryConfig controls a retry pass over the outbox.
type RetryConfig struct {
	// BatchSize caps the entries examined per pass.
	BatchSize int

	// MaxAttempts drops an entry once it has failed this many times.
	MaxAttempts int

	// Backoff is the base delay; an entry that failed n times waits
	// Backoff * 2^n (capped at MaxBackoff) before the next attempt.
	Backoff time.Duration

	// PublishTimeout bounds a single publish.
	PublishTimeout time.Duration
}

// MaxBackoff caps the retry delay of one entry.
const MaxBackoff = 5 * time.Minute

// DefaultRetryConfig returns the outbox retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		BatchSize:      100,
		MaxAttempts:    100,
		Backoff:        5 * time.Second,
		PublishTimeout: 10 * time.Second,
	}
}

// RetryStats summarizes one retry pass.
type RetryStats struct {
	Pending   int
	Delivered int
	Failed    int
	Dropped   int
	Deferred  int
}

// Enqueue stores ev in outbox for a later RetryPending pass.
//
//nolint:gocritic // hugeParam: see PublishEvent
func Enqueue(ctx context.Context, outbox Outbox, ev RuleSetEvent) (string, error) {
	payload, err := encodeEvent(ev)
	if err != nil {
		return "", err
	}
	id, err := outbox.EnqueueEvent(ctx, ev.RuleSetID, payload)
	if err != nil {
		return "", fmt.Errorf("queue rule set event: %w", err)
	}
	metrics.RecordOutboxEvent("queued")
	return id, nil
}

// RetryPending makes one pass over the outbox. Delivered entries are
// confirmed, failed ones have their attempt recorded, and entries past
// MaxAttempts or with an undecodable payload are dropped. The pass stops
// early while the circuit breaker is open. Only outbox failures are
// returned as errors.
func (p *Publisher) RetryPending(ctx context.Context, outbox Outbox, cfg RetryConfig) (RetryStats, error) {
	cfg = cfg.withDefaults()

	entries, err := outbox.PendingEvents(ctx, cfg.BatchSize)
	if err != nil {
		return RetryStats{}, fmt.Errorf("list pending events: %w", err)
	}
	stats := RetryStats{Pending: len(entries)}
	metrics.SetOutboxPending(len(entries))

	for i := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		entry := &entries[i]
		log := p.logger.With().
			Str("entry_id", entry.ID).
			Str("ruleset_id", entry.RuleSetID).
			Int("attempts", entry.Attempts).
			Logger()

		if entry.Attempts >= cfg.MaxAttempts {
			log.Error().Str("last_error", entry.LastError).Msg("Dropping event after too many publish attempts")
			if err := p.drop(ctx, outbox, entry.ID); err != nil {
				return stats, err
			}
			stats.Dropped++
			continue
		}

		if !p.readyForRetry(entry, cfg.Backoff) {
			stats.Deferred++
			continue
		}

		ev, err := DecodeRuleSetEvent(entry.Payload)
		if err != nil {
			log.Error().Err(err).Msg("Dropping undecodable outbox entry")
			if err := p.drop(ctx, outbox, entry.ID); err != nil {
				return stats, err
			}
			stats.Dropped++
			continue
		}

		pubCtx, cancel := context.WithTimeout(ctx, cfg.PublishTimeout)
		pubErr := p.publishPayload(pubCtx, ev, entry.Payload)
		cancel()

		if pubErr != nil {
			metrics.RecordOutboxEvent("failed")
			stats.Failed++
			if err := outbox.RecordAttempt(ctx, entry.ID, pubErr); err != nil {
				return stats, fmt.Errorf("record attempt for %s: %w", entry.ID, err)
			}
			if errors.Is(pubErr, gobreaker.ErrOpenState) {
				log.Warn().Msg("Publisher circuit open, ending retry pass")
				break
			}
			continue
		}

		if err := outbox.ConfirmEvent(ctx, entry.ID); err != nil {
			return stats, fmt.Errorf("confirm %s: %w", entry.ID, err)
		}
		metrics.RecordOutboxEvent("delivered")
		stats.Delivered++
		log.Info().Msg("Queued rule set event delivered")
	}

	metrics.SetOutboxPending(stats.Pending - stats.Delivered - stats.Dropped)
	return stats, nil
}

func (p *Publisher) drop(ctx context.Context, outbox Outbox, id string) error {
	if err := outbox.ConfirmEvent(ctx, id); err != nil && !errors.Is(err, repository.ErrEventNotFound) {
		return fmt.Errorf("drop %s: %w", id, err)
	}
	metrics.RecordOutboxEvent("dropped")
	return nil
}

func (p *Publisher) readyForRetry(entry *repository.OutboxEntry, base time.Duration) bool {
	if entry.LastAttemptAt.IsZero() {
		return true
	}
	return p.now().Sub(entry.LastAttemptAt) >= retryBackoff(base, entry.Attempts)
}

// retryBackoff returns base * 2^attempts, capped at MaxBackoff.
func retryBackoff(base time.Duration, attempts int) time.Duration {
	if attempts > 50 {
		return MaxBackoff
	}
	backoff := time.Duration(float64(base) * math.Pow(2, float64(attempts)))
	if backoff < 0 || backoff > MaxBackoff {
		return MaxBackoff
	}
	return backoff
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.Backoff < 0 {
		c.Backoff = 0
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = d.PublishTimeout
	}
	return c
}
