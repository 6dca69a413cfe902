// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package publish

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/rulemine/internal/repository"
)

var _ Outbox = (*repository.Store)(nil)

func openOutbox(t *testing.T) *repository.Store {
	t.Helper()
	s, err := repository.Open(repository.Config{InMemory: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("repository.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func unthrottled(breaker BreakerConfig) Config {
	cfg := DefaultConfig()
	cfg.RatePerSecond = 0
	cfg.Breaker = breaker
	return cfg
}

func queueEvents(t *testing.T, outbox Outbox, n int) []RuleSetEvent {
	t.Helper()
	var events []RuleSetEvent
	for range n {
		ev := NewRuleSetEvent(sampleRuleSet(2), time.Now())
		if _, err := Enqueue(context.Background(), outbox, ev); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
		events = append(events, ev)
	}
	return events
}

func TestRetryPending_DeliversQueuedEvents(t *testing.T) {
	t.Parallel()

	pubSub := newGoChannel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	messages, err := pubSub.Subscribe(ctx, DefaultTopic)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	outbox := openOutbox(t)
	queued := queueEvents(t, outbox, 2)

	p := New(pubSub, unthrottled(DefaultBreakerConfig()), zerolog.Nop())
	defer p.Close()

	stats, err := p.RetryPending(ctx, outbox, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("RetryPending() error = %v", err)
	}
	if stats.Pending != 2 || stats.Delivered != 2 {
		t.Errorf("stats = %+v, want 2 pending and 2 delivered", stats)
	}

	for i := range queued {
		select {
		case msg := <-messages:
			msg.Ack()
			if msg.UUID != queued[i].EventID {
				t.Errorf("message %d uuid = %s, want original event id %s", i, msg.UUID, queued[i].EventID)
			}
		case <-ctx.Done():
			t.Fatal("timed out waiting for redelivered event")
		}
	}

	if pending, _ := outbox.PendingEvents(ctx, 0); len(pending) != 0 {
		t.Errorf("pending after delivery = %d, want 0", len(pending))
	}
}

func TestRetryPending_RecordsFailureAndBacksOff(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	outbox := openOutbox(t)
	queueEvents(t, outbox, 1)

	failing := &failingPublisher{}
	p := New(failing, unthrottled(BreakerConfig{Name: "test-outbox-backoff", FailureThreshold: 10}), zerolog.Nop())
	now := time.Now()
	p.now = func() time.Time { return now }

	cfg := DefaultRetryConfig()
	cfg.Backoff = time.Second

	stats, err := p.RetryPending(ctx, outbox, cfg)
	if err != nil {
		t.Fatalf("RetryPending() error = %v", err)
	}
	if stats.Failed != 1 {
		t.Fatalf("stats = %+v, want 1 failed", stats)
	}

	pending, err := outbox.PendingEvents(ctx, 0)
	if err != nil || len(pending) != 1 {
		t.Fatalf("PendingEvents() = %v, %v", pending, err)
	}
	if pending[0].Attempts != 1 || pending[0].LastError == "" {
		t.Errorf("entry = %+v, want one recorded attempt with an error", pending[0])
	}

	// One failure waits 2s; a pass within that window leaves it alone.
	p.now = func() time.Time { return pending[0].LastAttemptAt.Add(time.Second) }
	stats, _ = p.RetryPending(ctx, outbox, cfg)
	if stats.Deferred != 1 || failing.calls.Load() != 1 {
		t.Errorf("stats = %+v, calls = %d, want deferred without publishing", stats, failing.calls.Load())
	}

	p.now = func() time.Time { return pending[0].LastAttemptAt.Add(3 * time.Second) }
	stats, _ = p.RetryPending(ctx, outbox, cfg)
	if stats.Failed != 1 || failing.calls.Load() != 2 {
		t.Errorf("stats = %+v, calls = %d, want a second attempt", stats, failing.calls.Load())
	}
}

func TestRetryPending_Drops(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(t *testing.T, outbox *repository.Store)
	}{
		{
			name: "too many attempts",
			setup: func(t *testing.T, outbox *repository.Store) {
				ctx := context.Background()
				queueEvents(t, outbox, 1)
				pending, _ := outbox.PendingEvents(ctx, 0)
				for range 3 {
					if err := outbox.RecordAttempt(ctx, pending[0].ID, errors.New("down")); err != nil {
						t.Fatalf("RecordAttempt() error = %v", err)
					}
				}
			},
		},
		{
			name: "undecodable payload",
			setup: func(t *testing.T, outbox *repository.Store) {
				if _, err := outbox.EnqueueEvent(context.Background(), "rs-1", []byte("not json")); err != nil {
					t.Fatalf("EnqueueEvent() error = %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			outbox := openOutbox(t)
			tt.setup(t, outbox)

			failing := &failingPublisher{}
			p := New(failing, unthrottled(DefaultBreakerConfig()), zerolog.Nop())
			cfg := DefaultRetryConfig()
			cfg.MaxAttempts = 3

			stats, err := p.RetryPending(ctx, outbox, cfg)
			if err != nil {
				t.Fatalf("RetryPending() error = %v", err)
			}
			if stats.Dropped != 1 {
				t.Errorf("stats = %+v, want 1 dropped", stats)
			}
			if failing.calls.Load() != 0 {
				t.Errorf("publisher calls = %d, want 0", failing.calls.Load())
			}
			if pending, _ := outbox.PendingEvents(ctx, 0); len(pending) != 0 {
				t.Errorf("pending after drop = %d, want 0", len(pending))
			}
		})
	}
}

func TestRetryPending_StopsWhenBreakerOpens(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	outbox := openOutbox(t)
	queueEvents(t, outbox, 3)

	failing := &failingPublisher{}
	p := New(failing, unthrottled(BreakerConfig{Name: "test-outbox-open", FailureThreshold: 1, Timeout: time.Hour}), zerolog.Nop())

	stats, err := p.RetryPending(ctx, outbox, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("RetryPending() error = %v", err)
	}
	if stats.Failed != 2 {
		t.Errorf("stats = %+v, want 2 failed before the pass ends", stats)
	}
	if failing.calls.Load() != 1 {
		t.Errorf("publisher calls = %d, want 1", failing.calls.Load())
	}

	pending, _ := outbox.PendingEvents(ctx, 0)
	if len(pending) != 3 || pending[2].Attempts != 0 {
		t.Errorf("pending = %+v, want the last entry untouched", pending)
	}
}

func TestRetryPending_OutboxClosed(t *testing.T) {
	t.Parallel()

	outbox := openOutbox(t)
	_ = outbox.Close()

	p := New(&failingPublisher{}, unthrottled(DefaultBreakerConfig()), zerolog.Nop())
	if _, err := p.RetryPending(context.Background(), outbox, DefaultRetryConfig()); !errors.Is(err, repository.ErrClosed) {
		t.Errorf("RetryPending() error = %v, want repository.ErrClosed", err)
	}
}

func TestRetryBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 5 * time.Second},
		{1, 10 * time.Second},
		{3, 40 * time.Second},
		{6, MaxBackoff},
		{100, MaxBackoff},
	}
	for _, tt := range tests {
		if got := retryBackoff(5*time.Second, tt.attempts); got != tt.want {
			t.Errorf("retryBackoff(5s, %d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}
