// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/tomtom215/rulemine/internal/logging"
	"github.com/tomtom215/rulemine/internal/mining"
	"github.com/tomtom215/rulemine/internal/publish"
	"github.com/tomtom215/rulemine/internal/repository"
)

type downPublisher struct{}

func (downPublisher) Publish(string, ...*message.Message) error { return errors.New("nats: no servers available") }
func (downPublisher) Close() error                               { return nil }

func outboxFixture(t *testing.T) (*repository.Store, publish.RuleSetEvent) {
	t.Helper()
	store, err := repository.Open(repository.Config{InMemory: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("repository.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	rs := repository.NewRuleSet(mining.DefaultConfig(), &mining.Result{}, "orders.csv")
	if _, err := store.Save(context.Background(), rs); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return store, publish.NewRuleSetEvent(rs, time.Now())
}

func unthrottledPublisher(pub message.Publisher) *publish.Publisher {
	cfg := publish.DefaultConfig()
	cfg.RatePerSecond = 0
	return publish.New(pub, cfg, zerolog.Nop())
}

func TestPublishOrQueue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		pub           message.Publisher
		pubErr        error
		wantPublished bool
		wantQueued    bool
	}{
		{
			name:          "published",
			pub:           gochannel.NewGoChannel(gochannel.Config{}, logging.NewWatermillAdapter(zerolog.Nop())),
			wantPublished: true,
		},
		{name: "publish fails", pub: downPublisher{}, wantQueued: true},
		{name: "no publisher", pubErr: errors.New("nats url is required"), wantQueued: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			store, ev := outboxFixture(t)

			var pub *publish.Publisher
			if tt.pub != nil {
				pub = unthrottledPublisher(tt.pub)
				defer pub.Close()
			}

			published, queued, err := publishOrQueue(ctx, pub, tt.pubErr, store, ev, zerolog.Nop())
			if err != nil {
				t.Fatalf("publishOrQueue() error = %v", err)
			}
			if published != tt.wantPublished || queued != tt.wantQueued {
				t.Errorf("publishOrQueue() = %v, %v, want %v, %v", published, queued, tt.wantPublished, tt.wantQueued)
			}

			pending, err := store.PendingEvents(ctx, 0)
			if err != nil {
				t.Fatalf("PendingEvents() error = %v", err)
			}
			wantPending := 0
			if tt.wantQueued {
				wantPending = 1
			}
			if len(pending) != wantPending {
				t.Fatalf("pending = %d, want %d", len(pending), wantPending)
			}
			if wantPending == 1 && pending[0].RuleSetID != ev.RuleSetID {
				t.Errorf("queued ruleset_id = %s, want %s", pending[0].RuleSetID, ev.RuleSetID)
			}
		})
	}
}

func TestPublishOrQueue_OutboxUnavailable(t *testing.T) {
	t.Parallel()

	store, ev := outboxFixture(t)
	_ = store.Close()

	pub := unthrottledPublisher(downPublisher{})
	defer pub.Close()

	_, queued, err := publishOrQueue(context.Background(), pub, nil, store, ev, zerolog.Nop())
	if !errors.Is(err, repository.ErrClosed) {
		t.Errorf("publishOrQueue() error = %v, want repository.ErrClosed", err)
	}
	if queued {
		t.Error("queued = true, want false")
	}
}

func TestOutboxRetryTask_DeliversQueuedEvent(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, ev := outboxFixture(t)
	if _, err := publish.Enqueue(ctx, store, ev); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 1}, logging.NewWatermillAdapter(zerolog.Nop()))
	messages, err := pubSub.Subscribe(ctx, publish.DefaultTopic)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	pub := unthrottledPublisher(pubSub)
	defer pub.Close()

	task := outboxRetryTask(pub, store, publish.DefaultRetryConfig(), zerolog.Nop())
	if err := task(ctx); err != nil {
		t.Fatalf("task() error = %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		if msg.UUID != ev.EventID {
			t.Errorf("delivered uuid = %s, want %s", msg.UUID, ev.EventID)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for queued event")
	}
	if pending, _ := store.PendingEvents(ctx, 0); len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}
}
