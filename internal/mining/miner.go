// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package mining

import (
	"iter"
	"time"

	"github.com/rs/zerolog"
)

// Observer receives the outcome of every mining run. It is implemented by the
// metrics layer; the mining package does not depend on it.
type Observer interface {
	// ObserveRun is called once per Run with the committed stats on success
	// or the error on failure.
	ObserveRun(algorithm Algorithm, stats MiningStats, err error)

	// ObserveAppend is called with the number of transactions appended.
	ObserveAppend(n int)
}

// Result is the output of one successful mining run.
type Result struct {
	Itemsets []FrequentItemset `json:"itemsets"`
	Rules    []AssociationRule `json:"rules"`
	Stats    MiningStats       `json:"stats"`
}

// Miner owns a transaction store and a configuration and runs the mining
// pipeline over them. It is not safe for concurrent use.
type Miner struct {
	config   Config
	store    *TransactionStore
	stats    MiningStats
	logger   zerolog.Logger
	observer Observer
	now      func() time.Time
}

// Option configures a Miner.
type Option func(*Miner)

// WithLogger sets the logger. The default discards output.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Miner) {
		m.logger = logger.With().Str("component", "mining").Logger()
	}
}

// WithObserver registers an observer for run outcomes.
func WithObserver(observer Observer) Option {
	return func(m *Miner) {
		m.observer = observer
	}
}

// WithClock overrides the clock used for stats timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Miner) {
		m.now = now
	}
}

// NewMiner creates a miner with an empty store.
//
//nolint:gocritic // hugeParam: config is copied once
func NewMiner(cfg Config, opts ...Option) (*Miner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Miner{
		config: cfg.Clone(),
		store:  NewTransactionStore(),
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Config returns a copy of the current configuration.
func (m *Miner) Config() Config {
	return m.config.Clone()
}

// Reconfigure replaces the configuration after validating it. Transactions
// and stats are kept.
//
//nolint:gocritic // hugeParam: config is copied once
func (m *Miner) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.config = cfg.Clone()
	return nil
}

// Stats returns the stats of the most recent successful run.
func (m *Miner) Stats() MiningStats {
	return m.stats
}

// TransactionCount returns the number of stored transactions.
func (m *Miner) TransactionCount() int {
	return m.store.Count()
}

// Transactions returns a copy of the stored transactions.
func (m *Miner) Transactions() []Transaction {
	return m.store.Transactions()
}

// AddTransactions appends a batch. An empty batch fails with ErrInsufficientData.
func (m *Miner) AddTransactions(txs []Transaction) error {
	if err := m.store.AppendBatch(txs); err != nil {
		return err
	}
	m.observeAppend(len(txs))
	return nil
}

// AddTransaction appends one transaction.
//
//nolint:gocritic // hugeParam: the transaction is cloned into the store
func (m *Miner) AddTransaction(tx Transaction) {
	m.store.AppendOne(tx)
	m.observeAppend(1)
}

// AddTransactionsFrom appends transactions from seq until it ends or yields
// an error. It returns the number appended, including those appended before
// an error.
func (m *Miner) AddTransactionsFrom(seq iter.Seq2[Transaction, error]) (int, error) {
	n, err := m.store.AppendStream(seq)
	m.observeAppend(n)
	if err != nil {
		return n, err
	}
	m.logger.Debug().Int("appended", n).Int("total", m.store.Count()).Msg("appended transaction stream")
	return n, nil
}

// FrequentItemsets runs only the itemset stage and does not touch stats.
func (m *Miner) FrequentItemsets() ([]FrequentItemset, error) {
	if m.store.Count() == 0 {
		return nil, insufficientData("no transactions to mine")
	}
	return m.findItemsets()
}

// Mine runs the full pipeline and returns the ranked rules.
func (m *Miner) Mine() ([]AssociationRule, error) {
	result, err := m.Run()
	if err != nil {
		return nil, err
	}
	return result.Rules, nil
}

// Run executes the pipeline: itemset mining, rule generation, then filtering
// and ranking. Stats are committed only when every stage succeeds.
func (m *Miner) Run() (*Result, error) {
	start := m.now()
	algorithm := m.config.Algorithm

	result, err := m.run(start)
	if err != nil {
		m.logger.Warn().
			Err(err).
			Str("algorithm", algorithm.String()).
			Int("transactions", m.store.Count()).
			Msg("mining failed")
		m.observeRun(algorithm, MiningStats{}, err)
		return nil, err
	}

	m.stats = result.Stats
	m.observeRun(algorithm, result.Stats, nil)

	m.logger.Info().
		Str("algorithm", algorithm.String()).
		Int("transactions", result.Stats.TransactionsProcessed).
		Int("frequent_itemsets", result.Stats.FrequentItemsetCount).
		Int("rules", result.Stats.RuleCount).
		Dur("duration", result.Stats.Duration).
		Msg("mining complete")

	return result, nil
}

func (m *Miner) run(start time.Time) (*Result, error) {
	if m.store.Count() == 0 {
		return nil, insufficientData("no transactions to mine")
	}

	itemsets, err := m.findItemsets()
	if err != nil {
		return nil, err
	}
	m.logger.Debug().Int("frequent_itemsets", len(itemsets)).Msg("itemset stage complete")

	candidates, considered, err := generateRules(m.store, itemsets, m.config)
	if err != nil {
		return nil, err
	}
	m.logger.Debug().
		Int("splits", considered).
		Int("passing", len(candidates)).
		Msg("rule stage complete")

	rules := FilterBidirectional(candidates)

	completed := m.now()
	return &Result{
		Itemsets: itemsets,
		Rules:    rules,
		Stats: MiningStats{
			FrequentItemsetCount:  len(itemsets),
			RuleCount:             len(rules),
			TransactionsProcessed: m.store.Count(),
			Algorithm:             m.config.Algorithm,
			Duration:              completed.Sub(start),
			CompletedAt:           completed,
		},
	}, nil
}

// findItemsets dispatches to the configured engine.
func (m *Miner) findItemsets() ([]FrequentItemset, error) {
	switch m.config.Algorithm {
	case AlgorithmLevelWise:
		return mineLevelWise(m.store, m.config.MinSupport), nil
	case AlgorithmTree:
		return mineTree(m.store, m.config.MinSupport), nil
	default:
		return nil, unsupportedAlgorithm(m.config.Algorithm)
	}
}

func (m *Miner) observeRun(algorithm Algorithm, stats MiningStats, err error) {
	if m.observer != nil {
		m.observer.ObserveRun(algorithm, stats, err)
	}
}

func (m *Miner) observeAppend(n int) {
	if m.observer != nil && n > 0 {
		m.observer.ObserveAppend(n)
	}
}
