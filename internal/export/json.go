// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package export

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rulemine/internal/mining"
)

// RuleDocument is one rule in a JSON export.
type RuleDocument struct {
	Name         string                `json:"name"`
	Antecedent   mining.ItemSet        `json:"antecedent"`
	Consequent   mining.ItemSet        `json:"consequent"`
	Metrics      mining.PatternMetrics `json:"metrics"`
	QualityScore float64               `json:"quality_score"`
	Salience     int                   `json:"salience"`
}

// Document is a self-describing JSON export of a mining run.
type Document struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Config      mining.Config      `json:"config"`
	Stats       mining.MiningStats `json:"stats"`
	Rules       []RuleDocument     `json:"rules"`
}

// NewDocument builds a Document for rules mined with cfg.
//
//nolint:gocritic // hugeParam: stats are copied into the document
func NewDocument(cfg mining.Config, stats mining.MiningStats, rules []mining.AssociationRule, generatedAt time.Time) Document {
	docs := make([]RuleDocument, len(rules))
	for i, r := range rules {
		docs[i] = RuleDocument{
			Name:         RuleName(i, r),
			Antecedent:   r.Antecedent,
			Consequent:   r.Consequent,
			Metrics:      r.Metrics,
			QualityScore: r.QualityScore(),
			Salience:     Salience(r),
		}
	}
	return Document{
		GeneratedAt: generatedAt.UTC(),
		Config:      cfg,
		Stats:       stats,
		Rules:       docs,
	}
}

// WriteJSON writes doc as indented JSON.
//
//nolint:gocritic // hugeParam: document is encoded by value
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode rule document: %w", err)
	}
	return nil
}

// ReadJSON decodes a document written by WriteJSON.
func ReadJSON(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("failed to decode rule document: %w", err)
	}
	return doc, nil
}

// AssociationRules converts the document back into association rules.
func (d *Document) AssociationRules() []mining.AssociationRule {
	rules := make([]mining.AssociationRule, len(d.Rules))
	for i, r := range d.Rules {
		rules[i] = mining.AssociationRule{
			Antecedent: r.Antecedent,
			Consequent: r.Consequent,
			Metrics:    r.Metrics,
		}
	}
	return rules
}
