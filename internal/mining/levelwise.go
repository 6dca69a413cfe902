// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package mining

import (
	"math"
	"slices"
)

// supportEpsilon absorbs float error in min_support*N (0.7*10 = 7.000000000000001).
const supportEpsilon = 1e-9

// minSupportCount converts a support fraction to an absolute transaction count.
// It differs from a plain ceil(minSupport*n) in two ways: the product is
// rounded down by supportEpsilon first, so 0.7 of 10 needs 7 transactions
// rather than 8, and the result is at least 1, so at minSupport 0 itemsets
// held by no transaction are never frequent.
func minSupportCount(minSupport float64, n int) int {
	count := int(math.Ceil(minSupport*float64(n) - supportEpsilon))
	return max(count, 1)
}

// mineLevelWise finds all frequent itemsets breadth-first: count every
// candidate of one size against all transactions, keep the frequent ones and
// join them into candidates one item larger.
func mineLevelWise(store *TransactionStore, minSupport float64) []FrequentItemset {
	n := store.Count()
	if n == 0 {
		return nil
	}
	minCount := minSupportCount(minSupport, n)
	sets := store.itemSets()

	var result []FrequentItemset
	candidates := singletonCandidates(sets)

	for len(candidates) > 0 {
		counts := countCandidates(candidates, sets)

		retained := make([]ItemSet, 0, len(candidates))
		for i, candidate := range candidates {
			if counts[i] < minCount {
				continue
			}
			retained = append(retained, candidate)
			result = append(result, FrequentItemset{
				Items:   candidate,
				Support: float64(counts[i]) / float64(n),
				Count:   counts[i],
			})
		}

		candidates = joinCandidates(retained)
	}

	return result
}

// singletonCandidates returns every distinct item as a 1-itemset, sorted.
func singletonCandidates(sets []ItemSet) []ItemSet {
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, item := range set {
			seen[item] = struct{}{}
		}
	}

	items := make([]string, 0, len(seen))
	for item := range seen {
		items = append(items, item)
	}
	slices.Sort(items)

	candidates := make([]ItemSet, len(items))
	for i, item := range items {
		candidates[i] = ItemSet{item}
	}
	return candidates
}

// countCandidates counts, for each candidate, the transactions containing it.
func countCandidates(candidates []ItemSet, sets []ItemSet) []int {
	counts := make([]int, len(candidates))
	for _, txSet := range sets {
		for i, candidate := range candidates {
			if candidate.IsSubsetOf(txSet) {
				counts[i]++
			}
		}
	}
	return counts
}

// joinCandidates builds the next level from sorted k-itemsets: two sets
// sharing their first k-1 items with different last items join into one
// k+1 candidate. Candidates with an infrequent k-subset are pruned since
// they cannot be frequent. The output is sorted and deduplicated.
func joinCandidates(retained []ItemSet) []ItemSet {
	if len(retained) < 2 {
		return nil
	}
	slices.SortFunc(retained, func(a, b ItemSet) int { return slices.Compare(a, b) })

	frequent := make(map[string]struct{}, len(retained))
	for _, set := range retained {
		frequent[set.Key()] = struct{}{}
	}

	k := len(retained[0])
	var next []ItemSet
	for i := 0; i < len(retained); i++ {
		for j := i + 1; j < len(retained); j++ {
			a, b := retained[i], retained[j]
			// Sorted order keeps sets with a shared prefix contiguous.
			if !slices.Equal(a[:k-1], b[:k-1]) {
				break
			}
			if a[k-1] == b[k-1] {
				continue
			}
			candidate := make(ItemSet, 0, k+1)
			candidate = append(candidate, a...)
			candidate = append(candidate, b[k-1])
			slices.Sort(candidate)
			if hasInfrequentSubset(candidate, frequent) {
				continue
			}
			next = append(next, candidate)
		}
	}

	slices.SortFunc(next, func(a, b ItemSet) int { return slices.Compare(a, b) })
	return slices.CompactFunc(next, func(a, b ItemSet) bool { return a.Equal(b) })
}

// hasInfrequentSubset reports whether dropping any single item of candidate
// leaves a set that is not in frequent.
func hasInfrequentSubset(candidate ItemSet, frequent map[string]struct{}) bool {
	if len(candidate) <= 2 {
		// Both 1-subsets are the joined sets themselves.
		return false
	}
	subset := make(ItemSet, 0, len(candidate)-1)
	for skip := range candidate {
		subset = subset[:0]
		subset = append(subset, candidate[:skip]...)
		subset = append(subset, candidate[skip+1:]...)
		if _, ok := frequent[subset.Key()]; !ok {
			return true
		}
	}
	return false
}
