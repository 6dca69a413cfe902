// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package mining

import (
	"math"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestNewItemSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		items []string
		want  ItemSet
	}{
		{"empty", nil, ItemSet{}},
		{"sorted", []string{"b", "a", "c"}, ItemSet{"a", "b", "c"}},
		{"duplicates removed", []string{"b", "a", "b", "a"}, ItemSet{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewItemSet(tt.items...)
			if !got.Equal(tt.want) {
				t.Errorf("NewItemSet(%v) = %v, want %v", tt.items, got, tt.want)
			}
		})
	}
}

func TestNewItemSet_DoesNotAliasInput(t *testing.T) {
	input := []string{"b", "a"}
	_ = NewItemSet(input...)
	if input[0] != "b" {
		t.Errorf("input mutated: %v", input)
	}
}

func TestItemSet_SetOperations(t *testing.T) {
	t.Parallel()

	ab := NewItemSet("a", "b")
	abc := NewItemSet("a", "b", "c")
	bd := NewItemSet("b", "d")

	if !ab.IsSubsetOf(abc) {
		t.Error("{a,b} should be a subset of {a,b,c}")
	}
	if abc.IsSubsetOf(ab) {
		t.Error("{a,b,c} should not be a subset of {a,b}")
	}
	if bd.IsSubsetOf(abc) {
		t.Error("{b,d} should not be a subset of {a,b,c}")
	}
	if !(ItemSet{}).IsSubsetOf(ab) {
		t.Error("empty set should be a subset of everything")
	}

	if got := ab.Union(bd); !got.Equal(NewItemSet("a", "b", "d")) {
		t.Errorf("Union = %v, want {a, b, d}", got)
	}
	if got := abc.Minus(ab); !got.Equal(ItemSet{"c"}) {
		t.Errorf("Minus = %v, want {c}", got)
	}
	if !abc.Contains("c") || abc.Contains("d") {
		t.Error("Contains returned wrong membership")
	}
	if got := ab.String(); got != "{a, b}" {
		t.Errorf("String() = %q, want %q", got, "{a, b}")
	}
	if ab.Compare(abc) >= 0 || abc.Compare(ab) <= 0 || ab.Compare(NewItemSet("a", "c")) >= 0 {
		t.Error("Compare should order by size, then lexicographically")
	}
}

func TestTransaction_Containment(t *testing.T) {
	t.Parallel()

	tx := NewTransaction("t1", []string{"milk", "bread", "milk"}, testEpoch)

	if !tx.Contains("bread") {
		t.Error("Contains(bread) = false, want true")
	}
	if !tx.ContainsAll(NewItemSet("bread", "milk")) {
		t.Error("ContainsAll({bread, milk}) = false, want true")
	}
	if tx.ContainsAll(NewItemSet("bread", "eggs")) {
		t.Error("ContainsAll({bread, eggs}) = true, want false")
	}
}

func TestTransaction_WithUserAndMetadata(t *testing.T) {
	t.Parallel()

	meta := map[string]any{"store": "north"}
	tx := NewTransaction("t1", []string{"a"}, testEpoch).WithUser("u1").WithMetadata(meta)
	meta["store"] = "south"

	if tx.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", tx.UserID)
	}
	if tx.Metadata["store"] != "north" {
		t.Errorf("Metadata[store] = %v, want north", tx.Metadata["store"])
	}
}

func TestAssociationRule_QualityScore(t *testing.T) {
	t.Parallel()

	rule := AssociationRule{
		Antecedent: ItemSet{"a"},
		Consequent: ItemSet{"b"},
		Metrics:    PatternMetrics{Confidence: 0.8, Lift: 2.0, Support: 0.25},
	}
	want := 0.5*0.8 + 0.3*2.0 + 0.2*0.25
	if got := rule.QualityScore(); !approxEqual(got, want) {
		t.Errorf("QualityScore() = %f, want %f", got, want)
	}
	if got := rule.String(); got != "a => b" {
		t.Errorf("String() = %q, want %q", got, "a => b")
	}
}

func TestPatternMetrics_JSONInfiniteConviction(t *testing.T) {
	t.Parallel()

	in := PatternMetrics{Confidence: 1, Support: 0.5, Lift: 2, Conviction: math.Inf(1)}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"conviction":"+Inf"`) {
		t.Errorf("Marshal() = %s, want conviction encoded as \"+Inf\"", data)
	}

	var out PatternMetrics
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !math.IsInf(out.Conviction, 1) {
		t.Errorf("Conviction = %f, want +Inf", out.Conviction)
	}
	if out.Confidence != 1 || out.Lift != 2 || out.Support != 0.5 {
		t.Errorf("Unmarshal() = %+v, want %+v", out, in)
	}
}

func TestPatternMetrics_JSONFiniteConviction(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(PatternMetrics{Conviction: 1.5})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var out PatternMetrics
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out.Conviction != 1.5 {
		t.Errorf("Conviction = %f, want 1.5", out.Conviction)
	}
}

func TestItemSet_KeyDistinguishesItemBoundaries(t *testing.T) {
	t.Parallel()

	sets := []ItemSet{
		NewItemSet("a", "b"),
		NewItemSet("a\x1fb"),
		NewItemSet("a,b"),
		NewItemSet("1:a1:b"),
		NewItemSet("1:a", "1:b"),
		NewItemSet("ab"),
		NewItemSet("a", "b", ""),
		{},
	}

	seen := make(map[string]ItemSet, len(sets))
	for _, set := range sets {
		key := set.Key()
		if prev, dup := seen[key]; dup {
			t.Errorf("%q and %q share key %q", prev, set, key)
		}
		seen[key] = set
	}
	if got, want := NewItemSet("b", "a").Key(), NewItemSet("a", "b").Key(); got != want {
		t.Errorf("Key() = %q, want %q regardless of input order", got, want)
	}
}
