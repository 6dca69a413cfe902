// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tomtom215/rulemine/internal/api"
	"github.com/tomtom215/rulemine/internal/config"
	"github.com/tomtom215/rulemine/internal/export"
	"github.com/tomtom215/rulemine/internal/logging"
	"github.com/tomtom215/rulemine/internal/publish"
	"github.com/tomtom215/rulemine/internal/repository"
	"github.com/tomtom215/rulemine/internal/supervisor"
	"github.com/tomtom215/rulemine/internal/supervisor/services"
)

func newServeCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Short:   "Serve stored rule sets and recommendations over HTTP",
		GroupID: "serving",
		Long: `serve runs the HTTP API under a supervisor tree together with store
value-log GC. With publish.enabled it also retries rule-set events that
"mine" queued while NATS was unreachable; with publish.listen it runs a
NATS listener that precompiles newly mined rule sets.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, root)
		},
	}
}

// server is everything `serve` owns.
type server struct {
	tree       *supervisor.SupervisorTree
	store      *repository.Store
	subscriber message.Subscriber
	publisher  *publish.Publisher
	addr       string
}

func (s *server) close(logger zerolog.Logger) {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing publisher")
		}
	}
	if s.subscriber != nil {
		if err := s.subscriber.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing subscriber")
		}
	}
	if err := s.store.Close(); err != nil {
		logger.Error().Err(err).Msg("Error closing rule set store")
	}
}

func runServe(cmd *cobra.Command, root *RootOptions) error {
	cfg, logger, err := root.loadConfig(cmd)
	if err != nil {
		return err
	}

	srv, err := buildServer(cfg, root.Version, logger)
	if err != nil {
		return err
	}
	defer srv.close(logger)

	if path := config.ResolvePath(root.ConfigPath); path != "" {
		watchLogLevel(root, path, logger)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("addr", srv.addr).Str("version", root.Version).Msg("Starting rulemine server")
	errCh := srv.tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received, stopping services")
		err = <-errCh
	case err = <-errCh:
	}

	if report, rerr := srv.tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		logger.Warn().Int("count", len(report)).Msg("Services did not stop within the shutdown timeout")
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}
	logger.Info().Msg("Server stopped")
	return nil
}

// buildServer opens the store and assembles the supervisor tree.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func buildServer(cfg *config.Config, version string, logger zerolog.Logger) (*server, error) {
	store, err := repository.Open(repository.Config{Path: cfg.Storage.Path, InMemory: cfg.Storage.InMemory}, logger)
	if err != nil {
		return nil, err
	}
	srv := &server{store: store, addr: cfg.Server.Addr()}

	handler, err := api.NewHandler(store, api.HandlerConfig{
		Version:         version,
		GRL:             export.GRLConfig{InputField: cfg.Export.InputField, OutputField: cfg.Export.OutputField},
		EngineCacheSize: cfg.Server.EngineCacheSize,
	}, logger)
	if err != nil {
		srv.close(logger)
		return nil, err
	}

	chiCfg := api.DefaultChiMiddlewareConfig()
	chiCfg.CORSAllowedOrigins = cfg.Server.CORSOrigins
	chiCfg.RateLimitRequests = cfg.Server.RateLimitRequests
	chiCfg.RateLimitWindow = cfg.Server.RateLimitWindow
	chiCfg.RateLimitDisabled = cfg.Server.RateLimitRequests == 0

	httpServer := &http.Server{
		Addr:              srv.addr,
		Handler:           api.NewRouter(handler, chiCfg).SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(logger), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		srv.close(logger)
		return nil, err
	}
	srv.tree = tree

	tree.AddAPIService(services.NewAPIService(httpServer, services.APIServiceConfig{
		Addr:            srv.addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Warmer:          handler,
	}, logger))

	if cfg.Storage.GCInterval > 0 && !cfg.Storage.InMemory {
		gc, err := services.NewPeriodicService("store-gc", cfg.Storage.GCInterval, store.RunGC, logger)
		if err != nil {
			srv.close(logger)
			return nil, err
		}
		tree.AddDataService(gc)
	}

	if cfg.Publish.Enabled && cfg.Publish.RetryInterval > 0 {
		pub, err := publish.NewNATSPublisher(publish.NATSConfig{URL: cfg.Publish.NATSURL}, publisherConfig(cfg), logger)
		if err != nil {
			srv.close(logger)
			return nil, err
		}
		srv.publisher = pub
		retry, err := services.NewPeriodicService("outbox-retry", cfg.Publish.RetryInterval,
			outboxRetryTask(pub, store, retryConfig(cfg), logger), logger)
		if err != nil {
			srv.close(logger)
			return nil, err
		}
		tree.AddMessagingService(retry)
	}

	if cfg.Publish.Listen {
		sub, err := publish.NewNATSSubscriber(publish.SubscriberConfig{
			NATS:        publish.NATSConfig{URL: cfg.Publish.NATSURL},
			DurableName: cfg.Publish.DurableName,
			QueueGroup:  cfg.Publish.DurableName,
		}, logger)
		if err != nil {
			srv.close(logger)
			return nil, err
		}
		srv.subscriber = sub
		tree.AddMessagingService(services.NewEventListenerService(sub, cfg.Publish.Topic, prewarmHandler(handler, logger), logger))
		logger.Info().Str("topic", cfg.Publish.Topic).Msg("Rule set event listener enabled")
	}

	return srv, nil
}

// retryConfig maps the publish section onto publish.RetryConfig.
func retryConfig(cfg *config.Config) publish.RetryConfig {
	rc := publish.DefaultRetryConfig()
	rc.MaxAttempts = cfg.Publish.MaxAttempts
	rc.Backoff = cfg.Publish.RetryBackoff
	return rc
}

// outboxRetryTask delivers events queued by earlier publish failures.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func outboxRetryTask(pub *publish.Publisher, outbox publish.Outbox, cfg publish.RetryConfig, logger zerolog.Logger) services.Task {
	return func(ctx context.Context) error {
		stats, err := pub.RetryPending(ctx, outbox, cfg)
		if err != nil {
			return err
		}
		if stats.Delivered > 0 || stats.Dropped > 0 {
			logger.Info().
				Int("delivered", stats.Delivered).
				Int("dropped", stats.Dropped).
				Int("failed", stats.Failed).
				Int("deferred", stats.Deferred).
				Msg("Outbox retry pass finished")
		}
		return nil
	}
}

// prewarmHandler compiles announced rule sets. Events for rule sets this
// store does not hold are skipped rather than redelivered.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func prewarmHandler(handler *api.Handler, logger zerolog.Logger) publish.RuleSetHandler {
	return func(ctx context.Context, ev publish.RuleSetEvent) error {
		err := handler.Prewarm(ctx, ev.RuleSetID)
		switch {
		case err == nil:
			logger.Info().Str("ruleset_id", ev.RuleSetID).Int("rules", ev.RuleCount).Msg("Rule set precompiled")
			return nil
		case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrInvalidID):
			logger.Warn().Str("ruleset_id", ev.RuleSetID).Msg("Announced rule set is not in this store")
			return nil
		default:
			return err
		}
	}
}

// watchLogLevel reloads the log level when the config file changes. A
// --log-level flag pins the level.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func watchLogLevel(root *RootOptions, path string, logger zerolog.Logger) {
	if root.LogLevel != "" {
		return
	}
	err := config.WatchConfigFile(path, func() {
		cfg, err := config.Load(path)
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Ignoring invalid config change")
			return
		}
		logging.SetLevelString(cfg.Logging.Level)
		logger.Info().Str("level", cfg.Logging.Level).Msg("Log level reloaded")
	})
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
	}
}
