// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package services

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/rulemine/internal/publish"
)

// ErrSubscriptionClosed is returned when the subscription ends while the
// service is still supposed to run, so the supervisor restarts it.
var ErrSubscriptionClosed = errors.New("rule set subscription closed")

// EventListenerService consumes rule-set events under supervision.
type EventListenerService struct {
	subscriber message.Subscriber
	topic      string
	handle     publish.RuleSetHandler
	logger     zerolog.Logger
}

// NewEventListenerService creates the listener. An empty topic uses
// publish.DefaultTopic.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEventListenerService(sub message.Subscriber, topic string, handle publish.RuleSetHandler, logger zerolog.Logger) *EventListenerService {
	return &EventListenerService{
		subscriber: sub,
		topic:      topic,
		handle:     handle,
		logger:     logger,
	}
}

// Serve implements suture.Service.
func (s *EventListenerService) Serve(ctx context.Context) error {
	err := publish.Listen(ctx, s.subscriber, s.topic, s.handle, s.logger)
	if err == nil && ctx.Err() == nil {
		return ErrSubscriptionClosed
	}
	return err
}

func (s *EventListenerService) String() string {
	return "ruleset-listener"
}
