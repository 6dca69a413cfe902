// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/rulemine/internal/logging"
	"github.com/tomtom215/rulemine/internal/metrics"
)

// SubscriberConfig configures a durable JetStream subscriber.
type SubscriberConfig struct {
	NATS NATSConfig

	// DurableName identifies the consumer so restarts resume where they left off.
	DurableName string

	// QueueGroup load-balances events between server replicas.
	QueueGroup string

	AckWaitTimeout time.Duration
	CloseTimeout   time.Duration
	MaxDeliver     int
}

// DefaultSubscriberConfig returns the subscriber defaults for url.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		NATS:           NATSConfig{URL: url},
		DurableName:    "rulemine-serve",
		QueueGroup:     "rulemine-serve",
		AckWaitTimeout: 30 * time.Second,
		CloseTimeout:   10 * time.Second,
		MaxDeliver:     5,
	}
}

// NewNATSSubscriber creates a JetStream subscriber that only sees events
// published after it first connects.
func NewNATSSubscriber(cfg SubscriberConfig, logger zerolog.Logger) (message.Subscriber, error) {
	if cfg.NATS.URL == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	defaults := DefaultSubscriberConfig(cfg.NATS.URL)
	if cfg.AckWaitTimeout <= 0 {
		cfg.AckWaitTimeout = defaults.AckWaitTimeout
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = defaults.CloseTimeout
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = defaults.MaxDeliver
	}
	if cfg.NATS.MaxReconnects == 0 {
		cfg.NATS.MaxReconnects = 10
	}
	if cfg.NATS.ReconnectWait <= 0 {
		cfg.NATS.ReconnectWait = 2 * time.Second
	}

	wmLogger := logging.NewWatermillAdapter(logging.WithComponent(logger, "nats-subscriber"))

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.NATS.MaxReconnects),
		natsgo.ReconnectWait(cfg.NATS.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				wmLogger.Error("Subscriber disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			wmLogger.Info("Subscriber reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.NATS.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			DurablePrefix: cfg.DurableName,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.MaxDeliver(cfg.MaxDeliver),
				natsgo.AckWait(cfg.AckWaitTimeout),
				natsgo.DeliverNew(),
			},
		},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}
	return sub, nil
}

// RuleSetHandler handles one decoded rule-set event.
type RuleSetHandler func(ctx context.Context, ev RuleSetEvent) error

// Listen consumes rule-set events on topic until ctx is canceled or the
// subscription closes. Handled events are acked; handler failures are
// nacked for redelivery. Undecodable payloads are acked and dropped.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Listen(ctx context.Context, sub message.Subscriber, topic string, handle RuleSetHandler, logger zerolog.Logger) error {
	if topic == "" {
		topic = DefaultTopic
	}
	messages, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	logger = logging.WithComponent(logger, "listener").With().Str("topic", topic).Logger()
	logger.Info().Msg("Listening for rule set events")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			handleMessage(ctx, msg, handle, logger)
		}
	}
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func handleMessage(ctx context.Context, msg *message.Message, handle RuleSetHandler, logger zerolog.Logger) {
	ev, err := DecodeRuleSetEvent(msg.Payload)
	if err != nil {
		metrics.RecordEventConsumed("malformed")
		logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed rule set event")
		msg.Ack()
		return
	}

	if err := handle(ctx, ev); err != nil {
		metrics.RecordEventConsumed("failed")
		logger.Error().Err(err).Str("ruleset_id", ev.RuleSetID).Msg("Failed to handle rule set event")
		msg.Nack()
		return
	}

	metrics.RecordEventConsumed("handled")
	msg.Ack()
}
