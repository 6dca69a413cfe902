// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package mining

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
)

// maxRuleItemsetSize bounds split enumeration to what a uint64 mask can address.
const maxRuleItemsetSize = 62

// supportCacheSize bounds the per-run cache of store support counts.
const supportCacheSize = 65536

// supportCounter answers support counts from the store, caching them for the
// duration of one rule-generation pass. Antecedents and consequents recur
// across the splits of overlapping itemsets.
type supportCounter struct {
	store *TransactionStore
	cache *lru.Cache[string, int]
}

func newSupportCounter(store *TransactionStore) (*supportCounter, error) {
	cache, err := lru.New[string, int](supportCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create support cache: %w", err)
	}
	return &supportCounter{store: store, cache: cache}, nil
}

func (c *supportCounter) count(set ItemSet) int {
	key := set.Key()
	if n, ok := c.cache.Get(key); ok {
		return n
	}
	n := c.store.SupportCount(set)
	c.cache.Add(key, n)
	return n
}

// ruleSplit is one antecedent/consequent partition of an itemset.
type ruleSplit struct {
	antecedent ItemSet
	consequent ItemSet
}

// enumerateSplits returns the 2^k - 2 partitions of items into a non-empty
// antecedent and a non-empty consequent, in ascending mask order.
func enumerateSplits(items ItemSet) ([]ruleSplit, error) {
	k := len(items)
	if k < 2 {
		return nil, nil
	}
	if k > maxRuleItemsetSize {
		return nil, fmt.Errorf("itemset of size %d exceeds the %d items supported for rule generation", k, maxRuleItemsetSize)
	}

	full := uint64(1)<<uint(k) - 1
	splits := make([]ruleSplit, 0, full-1)
	for mask := uint64(1); mask < full; mask++ {
		antecedent := make(ItemSet, 0, k)
		consequent := make(ItemSet, 0, k)
		for i, item := range items {
			if mask&(1<<uint(i)) != 0 {
				antecedent = append(antecedent, item)
			} else {
				consequent = append(consequent, item)
			}
		}
		splits = append(splits, ruleSplit{antecedent: antecedent, consequent: consequent})
	}
	return splits, nil
}

// computeMetrics derives rule statistics from transaction counts.
// Zero denominators yield 0 for confidence and lift.
func computeMetrics(antecedentCount, consequentCount, bothCount, n int, support float64) PatternMetrics {
	var confidence float64
	if antecedentCount > 0 {
		confidence = float64(bothCount) / float64(antecedentCount)
	}

	var consequentSupport float64
	if n > 0 {
		consequentSupport = float64(consequentCount) / float64(n)
	}

	var lift float64
	if consequentCount > 0 {
		lift = confidence / consequentSupport
	}

	conviction := math.Inf(1)
	if confidence < 1 && consequentSupport < 1 {
		conviction = (1 - consequentSupport) / (1 - confidence)
	}

	return PatternMetrics{
		Confidence: confidence,
		Support:    support,
		Lift:       lift,
		Conviction: conviction,
	}
}

// accepts reports whether metrics meet the confidence and lift thresholds.
//
//nolint:gocritic // hugeParam: config is read-only
func (c Config) accepts(m PatternMetrics) bool {
	return m.Confidence >= c.MinConfidence && m.Lift >= c.MinLift
}

// generateRules turns frequent itemsets of size >= 2 into rules passing the
// confidence and lift thresholds. It returns the rules in generation order
// and the number of splits considered.
//
//nolint:gocritic // hugeParam: config is read-only
func generateRules(store *TransactionStore, itemsets []FrequentItemset, cfg Config) ([]AssociationRule, int, error) {
	counter, err := newSupportCounter(store)
	if err != nil {
		return nil, 0, err
	}
	n := store.Count()

	var rules []AssociationRule
	considered := 0
	for _, fi := range itemsets {
		splits, err := enumerateSplits(fi.Items)
		if err != nil {
			return nil, considered, err
		}
		if len(splits) == 0 {
			continue
		}
		bothCount := counter.count(fi.Items)

		for _, split := range splits {
			considered++
			metrics := computeMetrics(
				counter.count(split.antecedent),
				counter.count(split.consequent),
				bothCount,
				n,
				fi.Support,
			)
			if !cfg.accepts(metrics) {
				continue
			}
			rules = append(rules, AssociationRule{
				Antecedent: split.antecedent,
				Consequent: split.consequent,
				Metrics:    metrics,
			})
		}
	}
	return rules, considered, nil
}
