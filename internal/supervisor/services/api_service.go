// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/rulemine/internal/repository"
)

// latestRuleSet addresses the newest stored rule set.
const latestRuleSet = "latest"

// DefaultShutdownTimeout bounds connection draining when none is configured.
const DefaultShutdownTimeout = 10 * time.Second

// HTTPServer is the lifecycle surface of *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// Warmer compiles a stored rule set ahead of traffic. *api.Handler implements it.
type Warmer interface {
	Prewarm(ctx context.Context, id string) error
}

// APIServiceConfig configures an APIService.
type APIServiceConfig struct {
	// Addr is only logged; the server owns its listener.
	Addr string

	// ShutdownTimeout bounds connection draining. Default: 10s.
	ShutdownTimeout time.Duration

	// Warmer, when set, compiles the latest rule set every time the
	// service (re)starts, before the listener opens.
	Warmer Warmer
}

// APIService runs the recommendation API under supervision and drains it
// when the supervisor stops.
type APIService struct {
	server          HTTPServer
	addr            string
	shutdownTimeout time.Duration
	warmer          Warmer
	logger          zerolog.Logger
}

// NewAPIService wraps server.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewAPIService(server HTTPServer, cfg APIServiceConfig, logger zerolog.Logger) *APIService {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &APIService{
		server:          server,
		addr:            cfg.Addr,
		shutdownTimeout: cfg.ShutdownTimeout,
		warmer:          cfg.Warmer,
		logger:          logger.With().Str("service", "api").Logger(),
	}
}

// Serve implements suture.Service. A failed warm-up is logged and the API
// starts anyway; http.ErrServerClosed is not an error.
func (s *APIService) Serve(ctx context.Context) error {
	s.warmLatest(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info().Str("addr", s.addr).Msg("API listening")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// ctx is already canceled, so draining gets its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		started := time.Now()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api server shutdown failed: %w", err)
		}
		<-errCh
		s.logger.Info().Dur("drain", time.Since(started)).Msg("API drained")
		return ctx.Err()
	}
}

func (s *APIService) warmLatest(ctx context.Context) {
	if s.warmer == nil {
		return
	}
	err := s.warmer.Prewarm(ctx, latestRuleSet)
	switch {
	case err == nil:
		s.logger.Info().Msg("Latest rule set compiled")
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Info().Msg("No rule set stored yet")
	default:
		s.logger.Warn().Err(err).Msg("Serving without a precompiled rule set")
	}
}

func (s *APIService) String() string {
	return "api-server"
}
