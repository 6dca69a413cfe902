// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package repository

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/rulemine/internal/mining"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRuleSet(source string) *RuleSet {
	result := &mining.Result{
		Rules: []mining.AssociationRule{{
			Antecedent: mining.NewItemSet("Laptop"),
			Consequent: mining.NewItemSet("Mouse"),
			Metrics:    mining.PatternMetrics{Confidence: 1, Support: 0.6, Lift: 1.25, Conviction: math.Inf(1)},
		}},
		Stats: mining.MiningStats{RuleCount: 1, TransactionsProcessed: 5, Algorithm: mining.AlgorithmTree},
	}
	return NewRuleSet(mining.DefaultConfig(), result, source)
}

func TestStore_SaveGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	rs := sampleRuleSet("orders.csv")
	id, err := s.Save(ctx, rs)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if id == "" || rs.ID != id {
		t.Fatalf("Save() id = %q, rs.ID = %q", id, rs.ID)
	}
	if rs.CreatedAt.IsZero() {
		t.Error("Save() left CreatedAt zero")
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Source != "orders.csv" || len(got.Rules) != 1 {
		t.Errorf("Get() = %+v", got)
	}
	if !math.IsInf(got.Rules[0].Metrics.Conviction, 1) {
		t.Errorf("conviction = %v, want +Inf", got.Rules[0].Metrics.Conviction)
	}
	if got.Stats.Algorithm != mining.AlgorithmTree {
		t.Errorf("Stats.Algorithm = %v, want tree", got.Stats.Algorithm)
	}
}

func TestStore_GetErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	if _, err := s.Get(ctx, "not-a-uuid"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Get(invalid) error = %v, want ErrInvalidID", err)
	}
	if _, err := s.Get(ctx, "0190a4b2-7c1e-7000-8000-000000000000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := s.Latest(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest() on empty store error = %v, want ErrNotFound", err)
	}
}

func TestStore_LatestAndList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	var ids []string
	for _, src := range []string{"a", "b", "c"} {
		id, err := s.Save(ctx, sampleRuleSet(src))
		if err != nil {
			t.Fatalf("Save(%s) error = %v", src, err)
		}
		ids = append(ids, id)
	}

	latest, err := s.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.ID != ids[2] {
		t.Errorf("Latest().ID = %s, want %s", latest.ID, ids[2])
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(List()) = %d, want 3", len(all))
	}
	for i, want := range []string{ids[2], ids[1], ids[0]} {
		if all[i].ID != want {
			t.Errorf("List()[%d].ID = %s, want %s (newest first)", i, all[i].ID, want)
		}
	}
	if all[0].RuleCount != 1 {
		t.Errorf("RuleCount = %d, want 1", all[0].RuleCount)
	}

	two, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List(2) error = %v", err)
	}
	if len(two) != 2 {
		t.Errorf("len(List(2)) = %d, want 2", len(two))
	}
}

func TestStore_DeleteRepointsLatest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	first, _ := s.Save(ctx, sampleRuleSet("first"))
	second, _ := s.Save(ctx, sampleRuleSet("second"))

	if err := s.Delete(ctx, second); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	latest, err := s.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.ID != first {
		t.Errorf("Latest().ID = %s, want %s", latest.ID, first)
	}

	if err := s.Delete(ctx, second); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(again) error = %v, want ErrNotFound", err)
	}

	if err := s.Delete(ctx, first); err != nil {
		t.Fatalf("Delete(first) error = %v", err)
	}
	if _, err := s.Latest(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest() after deleting all error = %v, want ErrNotFound", err)
	}
}

func TestStore_DeleteOlderKeepsLatest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	first, _ := s.Save(ctx, sampleRuleSet("first"))
	second, _ := s.Save(ctx, sampleRuleSet("second"))

	if err := s.Delete(ctx, first); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	latest, err := s.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.ID != second {
		t.Errorf("Latest().ID = %s, want %s", latest.ID, second)
	}
}

func TestStore_SaveKeepsProvidedIDAndTime(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	rs := sampleRuleSet("fixed")
	rs.ID = "0190a4b2-7c1e-7000-8000-0000000000aa"
	rs.CreatedAt = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	id, err := s.Save(ctx, rs)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != rs.ID || !got.CreatedAt.Equal(rs.CreatedAt) {
		t.Errorf("Get() = %s @ %v, want %s @ %v", got.ID, got.CreatedAt, rs.ID, rs.CreatedAt)
	}

	bad := sampleRuleSet("bad")
	bad.ID = "../etc"
	if _, err := s.Save(ctx, bad); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Save(bad id) error = %v, want ErrInvalidID", err)
	}
}

func TestStore_Closed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := Open(Config{InMemory: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
	if _, err := s.Save(ctx, sampleRuleSet("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Save() after Close error = %v, want ErrClosed", err)
	}
	if _, err := s.List(ctx, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("List() after Close error = %v, want ErrClosed", err)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(Config{}, zerolog.Nop()); err == nil {
		t.Error("Open() without path error = nil, want error")
	}
}

func TestOpen_OnDisk(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(Config{Path: dir}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	id, err := s.Save(ctx, sampleRuleSet("disk"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(Config{Path: dir}, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	latest, err := reopened.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.ID != id {
		t.Errorf("Latest().ID = %s, want %s", latest.ID, id)
	}
	if err := reopened.RunGC(ctx); err != nil {
		t.Errorf("RunGC() on disk error = %v, want nil", err)
	}
}

func TestStore_RunGC(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	if err := s.RunGC(context.Background()); err != nil {
		t.Errorf("RunGC() in memory error = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.RunGC(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("RunGC() with canceled context error = %v, want context.Canceled", err)
	}
}
