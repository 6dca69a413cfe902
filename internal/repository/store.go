// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

// Package repository persists mined rule sets in BadgerDB.
//
// Key layout:
//
//	ruleset:<id>     JSON-encoded RuleSet
//	ruleset-latest   id of the most recently saved rule set
//	outbox:<id>      JSON-encoded OutboxEntry awaiting delivery
//
// Ids are UUIDv7, so the lexical key order under the ruleset: prefix is
// creation order and List can walk it backwards for newest-first results.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/rulemine/internal/logging"
	"github.com/tomtom215/rulemine/internal/metrics"
)

// Errors returned by Store.
var (
	ErrNotFound  = errors.New("rule set not found")
	ErrClosed    = errors.New("repository closed")
	ErrInvalidID = errors.New("invalid rule set id")
)

const (
	prefixRuleSet = "ruleset:"
	keyLatest     = "ruleset-latest"
)

// Config configures the badger database.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in memory; used by tests and dry runs.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool
}

// Store is a rule-set repository. It is safe for concurrent use.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the repository.
func Open(cfg Config, logger zerolog.Logger) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("repository path is required unless in-memory")
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logging.WithComponent(logger, "repository"),
		now:    time.Now,
	}
	s.logger.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Msg("Rule set repository opened")
	return s, nil
}

// Close closes the database. Further calls return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// DefaultGCDiscardRatio is the value-log discard ratio used by RunGC.
const DefaultGCDiscardRatio = 0.5

// RunGC rewrites value-log files until badger finds nothing left to reclaim.
// It is a no-op for in-memory stores.
func (s *Store) RunGC(ctx context.Context) (err error) {
	done, err := s.guard("gc")
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.RunValueLogGC(DefaultGCDiscardRatio)
		switch {
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrGCInMemoryMode):
			return nil
		case err != nil:
			return fmt.Errorf("run value log gc: %w", err)
		}
	}
}

// guard holds the read lock for the duration of an operation and records
// its latency and outcome.
func (s *Store) guard(op string) (func(error), error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	start := time.Now()
	return func(err error) {
		s.mu.RUnlock()
		if errors.Is(err, ErrNotFound) {
			err = nil
		}
		metrics.RecordRepositoryOperation(op, time.Since(start), err)
	}, nil
}

// Save stores rs and marks it as the latest rule set. An empty ID is
// assigned a new UUIDv7 and a zero CreatedAt is set to the current time.
func (s *Store) Save(ctx context.Context, rs *RuleSet) (id string, err error) {
	done, err := s.guard("save")
	if err != nil {
		return "", err
	}
	defer func() { done(err) }()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if rs.ID == "" {
		u, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("generate rule set id: %w", err)
		}
		rs.ID = u.String()
	} else if _, err := uuid.Parse(rs.ID); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, rs.ID)
	}
	if rs.CreatedAt.IsZero() {
		rs.CreatedAt = s.now().UTC()
	}

	data, err := json.Marshal(rs)
	if err != nil {
		return "", fmt.Errorf("marshal rule set: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(ruleSetKey(rs.ID), data); err != nil {
			return err
		}
		return txn.Set([]byte(keyLatest), []byte(rs.ID))
	})
	if err != nil {
		return "", fmt.Errorf("write to BadgerDB: %w", err)
	}

	s.logger.Debug().
		Str("id", rs.ID).
		Int("rules", len(rs.Rules)).
		Msg("Rule set saved")
	return rs.ID, nil
}

// Get returns the rule set with the given id.
func (s *Store) Get(ctx context.Context, id string) (rs *RuleSet, err error) {
	done, err := s.guard("get")
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	err = s.db.View(func(txn *badger.Txn) error {
		var verr error
		rs, verr = readRuleSet(txn, id)
		return verr
	})
	return rs, err
}

// Latest returns the most recently saved rule set.
func (s *Store) Latest(ctx context.Context) (rs *RuleSet, err error) {
	done, err := s.guard("latest")
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyLatest))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get latest pointer: %w", err)
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("read latest pointer: %w", err)
		}
		rs, err = readRuleSet(txn, string(id))
		return err
	})
	return rs, err
}

// List returns up to limit summaries, newest first. limit <= 0 lists all.
func (s *Store) List(ctx context.Context, limit int) (out []Summary, err error) {
	done, err := s.guard("list")
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefixRuleSet)
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixRuleSet)
		for it.Seek(append(prefix, 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var rs RuleSet
			item := it.Item()
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rs)
			}); err != nil {
				s.logger.Warn().Err(err).Str("key", string(item.Key())).Msg("Skipping unreadable rule set")
				continue
			}

			out = append(out, rs.Summary())
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate rule sets: %w", err)
	}
	return out, nil
}

// Delete removes the rule set with the given id. When it was the latest,
// the latest pointer moves to the newest remaining rule set.
func (s *Store) Delete(ctx context.Context, id string) (err error) {
	done, err := s.guard("delete")
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := ruleSetKey(id)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return fmt.Errorf("get rule set: %w", err)
		}
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("delete rule set: %w", err)
		}

		latest, err := txn.Get([]byte(keyLatest))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return fmt.Errorf("get latest pointer: %w", err)
		}
		latestID, err := latest.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("read latest pointer: %w", err)
		}
		if string(latestID) != id {
			return nil
		}
		return repointLatest(txn, id)
	})
}

// repointLatest moves the latest pointer to the newest rule set other than
// the deleted one, or removes it when none remain.
func repointLatest(txn *badger.Txn, deleted string) error {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefixRuleSet)
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := []byte(prefixRuleSet)
	for it.Seek(append(prefix, 0xFF)); it.ValidForPrefix(prefix); it.Next() {
		id := string(it.Item().Key()[len(prefix):])
		if id == deleted {
			continue
		}
		return txn.Set([]byte(keyLatest), []byte(id))
	}
	return txn.Delete([]byte(keyLatest))
}

func ruleSetKey(id string) []byte {
	return []byte(prefixRuleSet + id)
}

func readRuleSet(txn *badger.Txn, id string) (*RuleSet, error) {
	item, err := txn.Get(ruleSetKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rule set: %w", err)
	}

	var rs RuleSet
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rs)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal rule set: %w", err)
	}
	return &rs, nil
}
