// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/rulemine/internal/export"
	"github.com/tomtom215/rulemine/internal/logging"
	"github.com/tomtom215/rulemine/internal/repository"
	"github.com/tomtom215/rulemine/internal/ruleengine"
)

// latestID addresses the most recently saved rule set.
const latestID = "latest"

// DefaultEngineCacheSize is how many compiled rule sets are kept.
const DefaultEngineCacheSize = 16

// RuleSetStore is the read side of the rule-set repository.
type RuleSetStore interface {
	Get(ctx context.Context, id string) (*repository.RuleSet, error)
	Latest(ctx context.Context) (*repository.RuleSet, error)
	List(ctx context.Context, limit int) ([]repository.Summary, error)
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	// Version is reported by the health endpoint.
	Version string

	// GRL configures the /grl rendering.
	GRL export.GRLConfig

	// EngineCacheSize bounds the compiled rule-set cache.
	EngineCacheSize int

	// ProgramCacheSize bounds the shared compiled-condition cache.
	ProgramCacheSize int
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	store     RuleSetStore
	engines   *lru.Cache[string, *ruleengine.Engine]
	programs  *ruleengine.ProgramCache
	grl       *export.GRLGenerator
	version   string
	startTime time.Time
	logger    zerolog.Logger
}

// NewHandler creates the API handler.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(store RuleSetStore, cfg HandlerConfig, logger zerolog.Logger) (*Handler, error) {
	if store == nil {
		return nil, fmt.Errorf("rule set store is required")
	}
	if cfg.EngineCacheSize <= 0 {
		cfg.EngineCacheSize = DefaultEngineCacheSize
	}
	if cfg.ProgramCacheSize <= 0 {
		cfg.ProgramCacheSize = ruleengine.DefaultProgramCacheSize
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	engines, err := lru.New[string, *ruleengine.Engine](cfg.EngineCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create engine cache: %w", err)
	}
	programs, err := ruleengine.NewProgramCache(cfg.ProgramCacheSize)
	if err != nil {
		return nil, err
	}

	return &Handler{
		store:     store,
		engines:   engines,
		programs:  programs,
		grl:       export.NewGRLGenerator(cfg.GRL),
		version:   cfg.Version,
		startTime: time.Now(),
		logger:    logging.WithComponent(logger, "api"),
	}, nil
}

// withRequestLogger makes the handler's logger the base of logging.Ctx for
// the request.
func (h *Handler) withRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(logging.ContextWithLogger(r.Context(), h.logger)))
	})
}

// loadRuleSet resolves id, which may be "latest".
func (h *Handler) loadRuleSet(ctx context.Context, id string) (*repository.RuleSet, error) {
	if id == "" || id == latestID {
		return h.store.Latest(ctx)
	}
	return h.store.Get(ctx, id)
}

// engineFor returns the compiled engine for a rule set, building it on first use.
func (h *Handler) engineFor(ctx context.Context, id string) (*ruleengine.Engine, string, error) {
	if id != "" && id != latestID {
		if engine, ok := h.engines.Get(id); ok {
			return engine, id, nil
		}
	}

	rs, err := h.loadRuleSet(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if engine, ok := h.engines.Get(rs.ID); ok {
		return engine, rs.ID, nil
	}

	engine, err := ruleengine.NewEngine(rs.Rules,
		ruleengine.WithLogger(h.logger),
		ruleengine.WithProgramCache(h.programs),
	)
	if err != nil {
		return nil, "", fmt.Errorf("compile rule set %s: %w", rs.ID, err)
	}
	h.engines.Add(rs.ID, engine)
	h.logger.Debug().Str("ruleset_id", rs.ID).Int("rules", engine.Len()).Msg("Compiled rule set")
	return engine, rs.ID, nil
}

// Prewarm compiles and caches the engine for a rule set so the first
// recommendation against it does not pay the compile cost.
func (h *Handler) Prewarm(ctx context.Context, id string) error {
	_, _, err := h.engineFor(ctx, id)
	return err
}
