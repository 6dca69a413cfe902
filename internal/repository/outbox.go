// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ErrEventNotFound is returned for an unknown outbox entry.
var ErrEventNotFound = errors.New("outbox entry not found")

const prefixOutbox = "outbox:"

// OutboxEntry is an event that has been accepted but not yet delivered.
type OutboxEntry struct {
	ID            string          `json:"id"`
	RuleSetID     string          `json:"ruleset_id"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
	Attempts      int             `json:"attempts"`
	LastAttemptAt time.Time       `json:"last_attempt_at"`
	LastError     string          `json:"last_error,omitempty"`
}

// EnqueueEvent queues payload for later delivery and returns the entry id.
// Entry ids are UUIDv7 so PendingEvents returns entries oldest first.
func (s *Store) EnqueueEvent(ctx context.Context, ruleSetID string, payload []byte) (id string, err error) {
	done, err := s.guard("outbox_enqueue")
	if err != nil {
		return "", err
	}
	defer func() { done(err) }()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(payload) == 0 {
		return "", errors.New("outbox payload is empty")
	}

	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate outbox id: %w", err)
	}
	entry := OutboxEntry{
		ID:        u.String(),
		RuleSetID: ruleSetID,
		Payload:   json.RawMessage(payload),
		CreatedAt: s.now().UTC(),
	}
	if err := s.writeEntry(&entry); err != nil {
		return "", err
	}

	s.logger.Debug().
		Str("entry_id", entry.ID).
		Str("ruleset_id", ruleSetID).
		Msg("Event queued in outbox")
	return entry.ID, nil
}

// PendingEvents returns up to limit queued entries, oldest first.
// limit <= 0 returns all of them.
func (s *Store) PendingEvents(ctx context.Context, limit int) (out []OutboxEntry, err error) {
	done, err := s.guard("outbox_pending")
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixOutbox)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var entry OutboxEntry
			item := it.Item()
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				s.logger.Warn().Err(err).Str("key", string(item.Key())).Msg("Skipping unreadable outbox entry")
				continue
			}

			out = append(out, entry)
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return out, nil
}

// ConfirmEvent removes a delivered (or abandoned) entry.
func (s *Store) ConfirmEvent(ctx context.Context, id string) (err error) {
	done, err := s.guard("outbox_confirm")
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		key := outboxKey(id)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEventNotFound
		} else if err != nil {
			return fmt.Errorf("get outbox entry: %w", err)
		}
		return txn.Delete(key)
	})
}

// RecordAttempt bumps the attempt count of an entry and remembers cause.
func (s *Store) RecordAttempt(ctx context.Context, id string, cause error) (err error) {
	done, err := s.guard("outbox_attempt")
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(outboxKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEventNotFound
		}
		if err != nil {
			return fmt.Errorf("get outbox entry: %w", err)
		}

		var entry OutboxEntry
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		}); err != nil {
			return fmt.Errorf("unmarshal outbox entry: %w", err)
		}

		entry.Attempts++
		entry.LastAttemptAt = s.now().UTC()
		entry.LastError = ""
		if cause != nil {
			entry.LastError = cause.Error()
		}

		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("marshal outbox entry: %w", err)
		}
		return txn.Set(outboxKey(id), data)
	})
}

func (s *Store) writeEntry(entry *OutboxEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal outbox entry: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(outboxKey(entry.ID), data)
	})
	if err != nil {
		return fmt.Errorf("write to BadgerDB: %w", err)
	}
	return nil
}

func outboxKey(id string) []byte {
	return []byte(prefixOutbox + id)
}
