// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package mining

import (
	"iter"
	"slices"
)

// TransactionStore is an append-only in-memory transaction log.
// Each transaction is kept alongside its canonical item set so containment
// tests run as sorted merges.
type TransactionStore struct {
	transactions []Transaction
	sets         []ItemSet
}

// NewTransactionStore creates an empty store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{}
}

// AppendBatch appends transactions in order. An empty batch is rejected.
func (s *TransactionStore) AppendBatch(txs []Transaction) error {
	if len(txs) == 0 {
		return insufficientData("transaction batch is empty")
	}
	s.grow(len(txs))
	for i := range txs {
		s.AppendOne(txs[i])
	}
	return nil
}

// AppendOne appends a single transaction.
//
//nolint:gocritic // hugeParam: the transaction is cloned into the store
func (s *TransactionStore) AppendOne(tx Transaction) {
	tx = tx.clone()
	s.transactions = append(s.transactions, tx)
	s.sets = append(s.sets, NewItemSet(tx.Items...))
}

// AppendStream appends transactions from seq until it is exhausted or yields
// an error. Transactions consumed before an error stay appended. A stream
// that yields nothing is rejected. It returns the number appended.
func (s *TransactionStore) AppendStream(seq iter.Seq2[Transaction, error]) (int, error) {
	appended := 0
	for tx, err := range seq {
		if err != nil {
			return appended, err
		}
		s.AppendOne(tx)
		appended++
	}
	if appended == 0 {
		return 0, insufficientData("transaction stream yielded no transactions")
	}
	return appended, nil
}

// Count returns the number of stored transactions.
func (s *TransactionStore) Count() int {
	return len(s.transactions)
}

// Transactions returns a copy of the stored transactions.
func (s *TransactionStore) Transactions() []Transaction {
	out := make([]Transaction, len(s.transactions))
	for i := range s.transactions {
		out[i] = s.transactions[i].clone()
	}
	return out
}

// SupportCount returns how many transactions hold every item of set.
func (s *TransactionStore) SupportCount(set ItemSet) int {
	count := 0
	for _, txSet := range s.sets {
		if set.IsSubsetOf(txSet) {
			count++
		}
	}
	return count
}

// itemSets exposes the canonical transaction sets to the engines.
func (s *TransactionStore) itemSets() []ItemSet {
	return s.sets
}

func (s *TransactionStore) grow(n int) {
	s.transactions = slices.Grow(s.transactions, n)
	s.sets = slices.Grow(s.sets, n)
}
