// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package publish

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/rulemine/internal/logging"
)

// NATSConfig holds the NATS connection settings.
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// NewNATSPublisher connects to NATS and returns a Publisher that writes to
// JetStream. The stream for the topic is provisioned on first publish.
func NewNATSPublisher(natsCfg NATSConfig, cfg Config, logger zerolog.Logger) (*Publisher, error) {
	if natsCfg.URL == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if natsCfg.MaxReconnects == 0 {
		natsCfg.MaxReconnects = 10
	}
	if natsCfg.ReconnectWait <= 0 {
		natsCfg.ReconnectWait = 2 * time.Second
	}

	wmLogger := logging.NewWatermillAdapter(logging.WithComponent(logger, "nats"))

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(natsCfg.MaxReconnects),
		natsgo.ReconnectWait(natsCfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				wmLogger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			wmLogger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         natsCfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return New(pub, cfg, logger), nil
}
