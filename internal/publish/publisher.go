// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

// Package publish announces mined rule sets on a message bus.
//
// A Publisher wraps any Watermill message.Publisher (NATS JetStream in
// production, the gochannel pub/sub in tests) with:
//   - a token-bucket throttle on outgoing events
//   - a circuit breaker that stops publishing after consecutive failures
//   - Prometheus publish and breaker-state metrics
//
// Events that cannot be published are parked in an Outbox (the rule-set
// store) and redelivered by RetryPending. Listen consumes events on the
// serving side.
package publish

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/rulemine/internal/logging"
	"github.com/tomtom215/rulemine/internal/metrics"
	"github.com/tomtom215/rulemine/internal/repository"
)

// DefaultTopic is the topic rule-set events are published on.
const DefaultTopic = "rulemine.rulesets"

// ErrClosed is returned by a closed Publisher.
var ErrClosed = errors.New("publisher is closed")

// Config configures a Publisher.
type Config struct {
	Topic string

	// RatePerSecond and Burst shape the outgoing event rate.
	RatePerSecond float64
	Burst         int

	Breaker BreakerConfig
}

// DefaultConfig returns the default publisher configuration.
func DefaultConfig() Config {
	return Config{
		Topic:         DefaultTopic,
		RatePerSecond: 10,
		Burst:         5,
		Breaker:       DefaultBreakerConfig(),
	}
}

// Publisher publishes rule-set events. It is safe for concurrent use.
type Publisher struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[struct{}]
	limiter   *rate.Limiter
	topic     string
	logger    zerolog.Logger
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
}

// New wraps pub. The Publisher owns pub and closes it on Close.
func New(pub message.Publisher, cfg Config, logger zerolog.Logger) *Publisher {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	limit := rate.Limit(cfg.RatePerSecond)
	if cfg.RatePerSecond <= 0 {
		limit = rate.Inf
	}
	burst := max(cfg.Burst, 1)

	logger = logging.WithComponent(logger, "publish").With().Str("topic", cfg.Topic).Logger()
	return &Publisher{
		publisher: pub,
		breaker:   NewCircuitBreaker(cfg.Breaker, logger),
		limiter:   rate.NewLimiter(limit, burst),
		topic:     cfg.Topic,
		logger:    logger,
		now:       time.Now,
	}
}

// Topic returns the topic events are published on.
func (p *Publisher) Topic() string {
	return p.topic
}

// BreakerState returns the circuit breaker state.
func (p *Publisher) BreakerState() gobreaker.State {
	return p.breaker.State()
}

// PublishRuleSet publishes a RuleSetEvent for rs. It blocks while the
// throttle has no tokens and fails fast while the breaker is open.
func (p *Publisher) PublishRuleSet(ctx context.Context, rs *repository.RuleSet) error {
	return p.PublishEvent(ctx, NewRuleSetEvent(rs, p.now()))
}

// PublishEvent publishes ev. The event id doubles as the JetStream
// message id, so republishing the same event is deduplicated by the server.
//
//nolint:gocritic // hugeParam: events are passed by value like messages
func (p *Publisher) PublishEvent(ctx context.Context, ev RuleSetEvent) error {
	payload, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	return p.publishPayload(ctx, ev, payload)
}

//nolint:gocritic // hugeParam: see PublishEvent
func (p *Publisher) publishPayload(ctx context.Context, ev RuleSetEvent, payload []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	if err := p.limiter.Wait(ctx); err != nil {
		metrics.RecordPublish("throttled")
		return fmt.Errorf("wait for publish slot: %w", err)
	}

	msg := message.NewMessage(ev.EventID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(metadataEventType, ev.Type)
	msg.Metadata.Set(metadataRuleSetID, ev.RuleSetID)
	msg.Metadata.Set(natsgo.MsgIdHdr, ev.EventID)

	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.publisher.Publish(p.topic, msg)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordPublish("rejected")
		return fmt.Errorf("publish rule set %s: %w", ev.RuleSetID, err)
	case err != nil:
		metrics.RecordPublish("error")
		p.logger.Error().Err(err).Str("ruleset_id", ev.RuleSetID).Msg("Failed to publish rule set event")
		return fmt.Errorf("publish rule set %s: %w", ev.RuleSetID, err)
	}

	metrics.RecordPublish("success")
	p.logger.Info().
		Str("ruleset_id", ev.RuleSetID).
		Str("event_id", ev.EventID).
		Int("rules", ev.RuleCount).
		Msg("Rule set event published")
	return nil
}

// Close closes the underlying publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
