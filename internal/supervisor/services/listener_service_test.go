// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/rulemine/internal/logging"
	"github.com/tomtom215/rulemine/internal/publish"
)

// endedSubscriber returns subscriptions that are already over.
type endedSubscriber struct{}

func (endedSubscriber) Subscribe(context.Context, string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (endedSubscriber) Close() error { return nil }

func TestEventListenerService_Serve(t *testing.T) {
	t.Parallel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 4, Persistent: true},
		logging.NewWatermillAdapter(zerolog.Nop()))
	defer pubSub.Close()

	got := make(chan string, 1)
	svc := NewEventListenerService(pubSub, "", func(_ context.Context, ev publish.RuleSetEvent) error {
		got <- ev.RuleSetID
		return nil
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	payload, err := json.Marshal(publish.RuleSetEvent{Type: publish.EventTypeRuleSetMined, RuleSetID: "rs-1"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := pubSub.Publish(publish.DefaultTopic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case id := <-got:
		if id != "rs-1" {
			t.Errorf("handled %q, want rs-1", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event was not handled")
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
}

func TestEventListenerService_SubscriptionEnded(t *testing.T) {
	t.Parallel()

	svc := NewEventListenerService(endedSubscriber{}, "", func(context.Context, publish.RuleSetEvent) error { return nil }, zerolog.Nop())
	if err := svc.Serve(context.Background()); !errors.Is(err, ErrSubscriptionClosed) {
		t.Errorf("Serve() error = %v, want ErrSubscriptionClosed", err)
	}
	if svc.String() != "ruleset-listener" {
		t.Errorf("String() = %q, want ruleset-listener", svc.String())
	}
}
