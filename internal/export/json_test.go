// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package export

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/tomtom215/rulemine/internal/mining"
)

func TestWriteJSON_Document(t *testing.T) {
	t.Parallel()

	exact := mining.AssociationRule{
		Antecedent: mining.NewItemSet("Phone"),
		Consequent: mining.NewItemSet("Case"),
		Metrics:    mining.PatternMetrics{Confidence: 1, Support: 0.4, Lift: 2.5, Conviction: math.Inf(1)},
	}
	rules := []mining.AssociationRule{laptopMouse(), exact}
	stats := mining.MiningStats{RuleCount: 2, TransactionsProcessed: 5, Algorithm: mining.AlgorithmTree, CompletedAt: testEpoch}

	doc := NewDocument(mining.DefaultConfig(), stats, rules, testEpoch)

	var buf bytes.Buffer
	if err := WriteJSON(&buf, doc); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		`"name": "Mined_0_Laptop_Implies_Mouse"`,
		`"salience": 85`,
		`"+Inf"`,
		`"algorithm": "tree"`,
		`"min_support": 0.1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("WriteJSON() missing %s\n%s", want, out)
		}
	}

	decoded, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	got := decoded.AssociationRules()
	if len(got) != 2 {
		t.Fatalf("len(AssociationRules()) = %d, want 2", len(got))
	}
	if !math.IsInf(got[1].Metrics.Conviction, 1) {
		t.Errorf("conviction = %v, want +Inf", got[1].Metrics.Conviction)
	}
	if !got[0].Antecedent.Equal(mining.NewItemSet("Laptop")) {
		t.Errorf("antecedent = %v, want {Laptop}", got[0].Antecedent)
	}
	if decoded.Config.Algorithm != mining.AlgorithmLevelWise {
		t.Errorf("config algorithm = %v, want levelwise", decoded.Config.Algorithm)
	}
	if decoded.Stats.Algorithm != mining.AlgorithmTree {
		t.Errorf("stats algorithm = %v, want tree", decoded.Stats.Algorithm)
	}
}

func TestReadJSON_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := ReadJSON(strings.NewReader("{")); err == nil {
		t.Error("ReadJSON() error = nil, want error")
	}
}
