// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

// Package mining discovers association rules from batches of transactions.
//
// # Architecture
//
// A Miner owns a TransactionStore and a Config and sequences the pipeline:
//
//   - Itemset mining: all frequent itemsets with their support, produced by
//     one of two interchangeable engines (level-wise candidate generation or
//     prefix-tree growth)
//   - Rule generation: every antecedent/consequent split of each frequent
//     itemset, scored with confidence, lift, conviction and a quality score
//   - Filtering and ranking: rules sorted by quality, keeping only the
//     stronger direction of each bidirectional pair
//
// # Engines
//
// The level-wise engine counts candidates level by level, joining sorted
// k-itemsets that share their first k-1 items. Its working set grows with the
// number of surviving candidates per level, which can be large on dense data
// with low support thresholds.
//
// The tree engine compresses transactions into a prefix tree ordered by
// descending item frequency and recursively mines conditional trees. Each
// conditional tree is built fresh for one recursive call and discarded
// afterwards, so working memory is bounded by prefix compaction rather than
// by the itemset lattice.
//
// For identical input and minimum support both engines return the same
// (itemset, support) pairs.
//
// # Usage
//
//	cfg, err := mining.NewConfig(0.1, 0.7, 1.0, mining.AlgorithmTree)
//	if err != nil {
//	    return err
//	}
//	miner, err := mining.NewMiner(cfg, mining.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := miner.AddTransactions(txs); err != nil {
//	    return err
//	}
//	rules, err := miner.Mine()
//
// # Thread Safety
//
// A Miner is not safe for concurrent use. Mining is a single blocking,
// deterministic computation over the in-memory transactions; callers that
// mine concurrently must use one Miner per request.
package mining
