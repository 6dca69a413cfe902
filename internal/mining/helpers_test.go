// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package mining

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"
	"time"
)

const floatTolerance = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= floatTolerance
}

var testEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// baskets builds transactions t1..tn from item lists.
func baskets(items ...[]string) []Transaction {
	txs := make([]Transaction, len(items))
	for i, basket := range items {
		txs[i] = NewTransaction(fmt.Sprintf("t%d", i+1), basket, testEpoch.Add(time.Duration(i)*time.Minute))
	}
	return txs
}

func storeOf(t *testing.T, txs []Transaction) *TransactionStore {
	t.Helper()
	store := NewTransactionStore()
	if err := store.AppendBatch(txs); err != nil {
		t.Fatalf("AppendBatch() error = %v", err)
	}
	return store
}

// randomBaskets generates deterministic pseudo-random transactions over a
// small catalogue, with occasional duplicate items.
func randomBaskets(seed uint64, n, catalogue, maxLen int) []Transaction {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	items := make([][]string, n)
	for i := range items {
		length := 1 + rng.IntN(maxLen)
		basket := make([]string, 0, length)
		for j := 0; j < length; j++ {
			basket = append(basket, fmt.Sprintf("item-%02d", rng.IntN(catalogue)))
		}
		items[i] = basket
	}
	return baskets(items...)
}

// itemsetIndex maps itemset keys to itemsets for set comparisons.
func itemsetIndex(itemsets []FrequentItemset) map[string]FrequentItemset {
	index := make(map[string]FrequentItemset, len(itemsets))
	for _, fi := range itemsets {
		index[fi.Items.Key()] = fi
	}
	return index
}

// recordingObserver captures observer callbacks.
type recordingObserver struct {
	runs     []MiningStats
	errs     []error
	appended int
}

func (o *recordingObserver) ObserveRun(_ Algorithm, stats MiningStats, err error) {
	o.runs = append(o.runs, stats)
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) ObserveAppend(n int) {
	o.appended += n
}
