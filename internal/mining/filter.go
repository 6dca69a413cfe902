// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package mining

import (
	"cmp"
	"slices"
	"strings"
)

// RankRules sorts rules by descending quality score. Equal scores keep their
// relative order.
func RankRules(rules []AssociationRule) {
	slices.SortStableFunc(rules, func(a, b AssociationRule) int {
		return cmp.Compare(b.QualityScore(), a.QualityScore())
	})
}

// FilterBidirectional ranks rules and keeps only the highest-quality rule of
// each unordered {antecedent, consequent} pair, so at most one of A => B and
// B => A survives. The input slice is reordered; the result is in descending
// quality order.
func FilterBidirectional(rules []AssociationRule) []AssociationRule {
	RankRules(rules)

	seen := make(map[string]struct{}, len(rules))
	kept := make([]AssociationRule, 0, len(rules))
	for i := range rules {
		key := canonicalPairKey(rules[i].Antecedent, rules[i].Consequent)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, rules[i])
	}
	return kept
}

func canonicalPairKey(a, b ItemSet) string {
	ka, kb := a.Key(), b.Key()
	if kb < ka {
		ka, kb = kb, ka
	}
	var sb strings.Builder
	writeKeyPart(&sb, ka)
	sb.WriteString(kb)
	return sb.String()
}
