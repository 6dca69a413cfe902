// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

// Package export renders mined association rules for downstream consumers.
//
// grl.go - Grule Rule Language generator
//
// Each mined rule becomes one GRL rule:
//   - salience is the rule confidence as a whole percentage
//   - the when clause requires every antecedent item in the input field and
//     at least one consequent item missing from the output field
//   - the then clause appends the consequent items and logs the firing
//
// Rule names are derived from the rule's items with every character outside
// [A-Za-z0-9] replaced by "_", so they are always valid GRL identifiers.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/tomtom215/rulemine/internal/mining"
)

// GRLConfig names the fact fields generated rules read and write.
type GRLConfig struct {
	// InputField holds the items already present, e.g. ShoppingCart.items.
	InputField string `json:"input_field" koanf:"input_field"`

	// OutputField collects recommended items, e.g. Recommendation.items.
	OutputField string `json:"output_field" koanf:"output_field"`
}

// DefaultGRLConfig returns the shopping-cart field names.
func DefaultGRLConfig() GRLConfig {
	return GRLConfig{
		InputField:  "ShoppingCart.items",
		OutputField: "Recommendation.items",
	}
}

// TransactionGRLConfig returns field names for transaction analysis rules.
func TransactionGRLConfig() GRLConfig {
	return GRLConfig{
		InputField:  "Transaction.items",
		OutputField: "Analysis.recommendations",
	}
}

const grlTemplate = `// Auto-generated rules from pattern mining
// Generated: {{ .Generated }}
// Total rules: {{ len .Rules }}
// Input field: {{ .Config.InputField }}
// Output field: {{ .Config.OutputField }}
{{ range $idx, $rule := .Rules }}
// Rule #{{ inc $idx }}: {{ join $rule.Antecedent }} => {{ join $rule.Consequent }}
// Confidence: {{ pct $rule.Metrics.Confidence }}% | Support: {{ pct $rule.Metrics.Support }}% | Lift: {{ fixed2 $rule.Metrics.Lift }} | Conviction: {{ fixed2 $rule.Metrics.Conviction }}
// Interpretation: When {{ join $rule.Antecedent }} present, {{ join $rule.Consequent }} appears {{ pct $rule.Metrics.Confidence }}% of the time
rule {{ ruleName $idx $rule | quote }} salience {{ salience $rule }} no-loop {
    when
        {{ conditions $rule }}
    then
        {{ actions $rule }};
        LogMessage({{ fired $idx $rule | quote }});
}
{{ end }}`

// GRLGenerator renders rule sets as GRL text.
type GRLGenerator struct {
	config GRLConfig
	now    func() time.Time
	tmpl   *template.Template
}

// NewGRLGenerator creates a generator. Empty config fields take the
// DefaultGRLConfig values.
func NewGRLGenerator(cfg GRLConfig) *GRLGenerator {
	defaults := DefaultGRLConfig()
	if cfg.InputField == "" {
		cfg.InputField = defaults.InputField
	}
	if cfg.OutputField == "" {
		cfg.OutputField = defaults.OutputField
	}

	g := &GRLGenerator{config: cfg, now: time.Now}
	g.tmpl = template.Must(template.New("grl").Funcs(g.buildFuncMap()).Parse(grlTemplate))
	return g
}

// WithClock sets the clock used for the Generated header.
func (g *GRLGenerator) WithClock(now func() time.Time) *GRLGenerator {
	g.now = now
	return g
}

// Config returns the generator's field names.
func (g *GRLGenerator) Config() GRLConfig {
	return g.config
}

func (g *GRLGenerator) buildFuncMap() template.FuncMap {
	return template.FuncMap{
		"inc":  func(i int) int { return i + 1 },
		"join": func(items mining.ItemSet) string { return strings.Join(items, ", ") },
		"pct": func(v float64) string {
			return strconv.FormatFloat(v*100, 'f', 1, 64)
		},
		"fixed2": func(v float64) string {
			return strconv.FormatFloat(v, 'f', 2, 64)
		},
		"quote":    strconv.Quote,
		"ruleName": RuleName,
		"salience": Salience,
		"conditions": func(r mining.AssociationRule) string {
			return g.conditions(r)
		},
		"actions": func(r mining.AssociationRule) string {
			return g.actions(r)
		},
		"fired": func(idx int, r mining.AssociationRule) string {
			return fmt.Sprintf("Rule fired: %s (confidence: %.1f%%)", RuleName(idx, r), r.Metrics.Confidence*100)
		},
	}
}

type grlData struct {
	Generated string
	Config    GRLConfig
	Rules     []mining.AssociationRule
}

// Generate renders rules as a GRL document.
func (g *GRLGenerator) Generate(rules []mining.AssociationRule) (string, error) {
	var buf bytes.Buffer
	if err := g.Write(&buf, rules); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write renders rules as a GRL document to w.
func (g *GRLGenerator) Write(w io.Writer, rules []mining.AssociationRule) error {
	data := grlData{
		Generated: g.now().UTC().Format(time.RFC3339),
		Config:    g.config,
		Rules:     rules,
	}
	if err := g.tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render grl: %w", err)
	}
	return nil
}

// conditions requires every antecedent item in the input and no consequent
// item already recommended.
func (g *GRLGenerator) conditions(r mining.AssociationRule) string {
	conds := make([]string, 0, len(r.Antecedent)+len(r.Consequent))
	for _, item := range r.Antecedent {
		conds = append(conds, fmt.Sprintf("%s contains %s", g.config.InputField, strconv.Quote(item)))
	}
	for _, item := range r.Consequent {
		conds = append(conds, fmt.Sprintf("!(%s contains %s)", g.config.OutputField, strconv.Quote(item)))
	}
	return strings.Join(conds, " &&\n        ")
}

func (g *GRLGenerator) actions(r mining.AssociationRule) string {
	acts := make([]string, 0, len(r.Consequent))
	for _, item := range r.Consequent {
		acts = append(acts, fmt.Sprintf("%s += %s", g.config.OutputField, strconv.Quote(item)))
	}
	return strings.Join(acts, ";\n        ")
}

// Salience is the rule confidence as a truncated whole percentage.
func Salience(r mining.AssociationRule) int {
	return int(r.Metrics.Confidence * 100)
}

// RuleName builds the GRL rule name for the idx-th rule:
// Mined_<idx>_<antecedent>_Implies_<consequent>.
func RuleName(idx int, r mining.AssociationRule) string {
	return fmt.Sprintf("Mined_%d_%s_Implies_%s", idx, identifier(r.Antecedent), identifier(r.Consequent))
}

func identifier(items mining.ItemSet) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = strings.Map(func(r rune) rune {
			if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
				return '_'
			}
			return r
		}, item)
	}
	return strings.Join(parts, "_")
}
