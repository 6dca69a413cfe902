// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

// Package ruleengine executes mined association rules against baskets.
//
// Each rule is compiled once into an expr-lang program. Recommend evaluates
// the programs in salience order (confidence, then quality score) and, like a
// no-loop GRL rule, a fired rule adds its consequent items to the
// recommendations so later rules for the same items do not fire again.
// Rules are read-only; the engine never mutates or re-ranks the input slice.
package ruleengine

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog"

	"github.com/tomtom215/rulemine/internal/export"
	"github.com/tomtom215/rulemine/internal/logging"
	"github.com/tomtom215/rulemine/internal/mining"
)

// Recommendation is one item suggested for a basket.
type Recommendation struct {
	Item       string  `json:"item"`
	Confidence float64 `json:"confidence"`
	Lift       float64 `json:"lift"`
	Rule       string  `json:"rule"`
}

type compiledRule struct {
	name    string
	rule    mining.AssociationRule
	program *vm.Program
}

// Engine evaluates a fixed rule set. It is safe for concurrent use.
type Engine struct {
	rules  []compiledRule
	logger zerolog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	logger zerolog.Logger
	cache  *ProgramCache
}

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *engineOptions) { o.logger = logger }
}

// WithProgramCache shares a compiled-program cache between engines.
func WithProgramCache(cache *ProgramCache) Option {
	return func(o *engineOptions) { o.cache = cache }
}

// NewEngine compiles rules. Rule names follow export.RuleName with the
// rule's position in the input slice.
func NewEngine(rules []mining.AssociationRule, opts ...Option) (*Engine, error) {
	o := engineOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cache == nil {
		cache, err := NewProgramCache(DefaultProgramCacheSize)
		if err != nil {
			return nil, err
		}
		o.cache = cache
	}

	compiled := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		if len(r.Antecedent) == 0 || len(r.Consequent) == 0 {
			return nil, fmt.Errorf("rule %d (%s) has an empty side", i, r)
		}
		program, err := o.cache.Compile(Condition(r))
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		compiled = append(compiled, compiledRule{
			name:    export.RuleName(i, r),
			rule:    r,
			program: program,
		})
	}

	slices.SortStableFunc(compiled, func(a, b compiledRule) int {
		if c := cmp.Compare(export.Salience(b.rule), export.Salience(a.rule)); c != 0 {
			return c
		}
		return cmp.Compare(b.rule.QualityScore(), a.rule.QualityScore())
	})

	return &Engine{
		rules:  compiled,
		logger: logging.WithComponent(o.logger, "ruleengine"),
	}, nil
}

// Len returns the number of rules in the engine.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Recommend returns items suggested for basket, at most limit of them
// (limit <= 0 means no limit). Items already in the basket are never
// recommended and every item is recommended at most once, attributed to the
// highest-salience rule that produced it.
func (e *Engine) Recommend(basket []string, limit int) ([]Recommendation, error) {
	env := Env{
		Basket:      make(map[string]bool, len(basket)),
		Recommended: make(map[string]bool),
	}
	for _, item := range basket {
		env.Basket[item] = true
	}

	var recs []Recommendation
	for _, cr := range e.rules {
		out, err := expr.Run(cr.program, env)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", cr.name, err)
		}
		if fired, ok := out.(bool); !ok || !fired {
			continue
		}

		e.logger.Debug().
			Str("rule", cr.name).
			Float64("confidence", cr.rule.Metrics.Confidence).
			Msg("Rule fired")

		for _, item := range cr.rule.Consequent {
			if env.Basket[item] || env.Recommended[item] {
				continue
			}
			env.Recommended[item] = true
			recs = append(recs, Recommendation{
				Item:       item,
				Confidence: cr.rule.Metrics.Confidence,
				Lift:       cr.rule.Metrics.Lift,
				Rule:       cr.name,
			})
			if limit > 0 && len(recs) >= limit {
				return recs, nil
			}
		}
	}
	return recs, nil
}
