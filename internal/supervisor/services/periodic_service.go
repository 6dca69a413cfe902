// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Task is one run of a periodic job.
type Task func(ctx context.Context) error

// PeriodicService runs a task on a fixed interval. Task failures are
// logged and counted; the next tick runs it again.
type PeriodicService struct {
	name     string
	interval time.Duration
	task     Task
	logger   zerolog.Logger

	runs     atomic.Int64
	failures atomic.Int64
}

// NewPeriodicService creates a service that runs task every interval.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewPeriodicService(name string, interval time.Duration, task Task, logger zerolog.Logger) (*PeriodicService, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%s: interval must be positive, got %v", name, interval)
	}
	if task == nil {
		return nil, fmt.Errorf("%s: task is required", name)
	}
	return &PeriodicService{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger.With().Str("service", name).Logger(),
	}, nil
}

// Serve implements suture.Service.
func (p *PeriodicService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *PeriodicService) runOnce(ctx context.Context) {
	start := time.Now()
	p.runs.Add(1)
	if err := p.task(ctx); err != nil {
		p.failures.Add(1)
		p.logger.Warn().Err(err).Msg("Periodic task failed")
		return
	}
	p.logger.Debug().Dur("duration", time.Since(start)).Msg("Periodic task completed")
}

// Runs reports how many times the task ran and how many of those failed.
func (p *PeriodicService) Runs() (runs, failures int64) {
	return p.runs.Load(), p.failures.Load()
}

func (p *PeriodicService) String() string {
	return p.name
}
