// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package repository

import (
	"time"

	"github.com/tomtom215/rulemine/internal/mining"
)

// RuleSet is a persisted snapshot of one mining run.
type RuleSet struct {
	ID        string                   `json:"id"`
	CreatedAt time.Time                `json:"created_at"`
	Source    string                   `json:"source,omitempty"`
	Config    mining.Config            `json:"config"`
	Stats     mining.MiningStats       `json:"stats"`
	Rules     []mining.AssociationRule `json:"rules"`
}

// Summary describes a rule set without its rules.
type Summary struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Source    string             `json:"source,omitempty"`
	Config    mining.Config      `json:"config"`
	Stats     mining.MiningStats `json:"stats"`
	RuleCount int                `json:"rule_count"`
}

// NewRuleSet snapshots a mining result. ID and CreatedAt are assigned by
// Store.Save.
func NewRuleSet(cfg mining.Config, result *mining.Result, source string) *RuleSet {
	return &RuleSet{
		Source: source,
		Config: cfg.Clone(),
		Stats:  result.Stats,
		Rules:  result.Rules,
	}
}

// Summary returns the rule set's summary.
func (r *RuleSet) Summary() Summary {
	return Summary{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Source:    r.Source,
		Config:    r.Config,
		Stats:     r.Stats,
		RuleCount: len(r.Rules),
	}
}
