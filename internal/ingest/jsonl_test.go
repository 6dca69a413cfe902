// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package ingest

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestJSONLinesSource_Transactions(t *testing.T) {
	t.Parallel()

	input := `{"id":"t1","items":["bread"," milk ",""],"timestamp":"2024-01-15T10:30:00Z","user_id":"u1"}

{"id":"t2","items":["beer"],"timestamp":1705314600,"metadata":{"store":"north"}}
{"id":"","items":["ghost"]}
{"id":"t3","items":[]}
{"id":"t4","items":["eggs"]}
`
	src := NewJSONLinesSource(strings.NewReader(input), WithClock(fixedClock))

	txs, err := Collect(context.Background(), src)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("len(txs) = %d, want 3", len(txs))
	}

	if !slices.Equal(txs[0].Items, []string{"bread", "milk"}) {
		t.Errorf("t1 items = %v, want [bread milk]", txs[0].Items)
	}
	if txs[0].UserID != "u1" {
		t.Errorf("t1 UserID = %q, want u1", txs[0].UserID)
	}
	want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	if !txs[0].Timestamp.Equal(want) || !txs[1].Timestamp.Equal(want) {
		t.Errorf("timestamps = %v, %v, want %v", txs[0].Timestamp, txs[1].Timestamp, want)
	}
	if txs[1].Metadata["store"] != "north" {
		t.Errorf("t2 metadata = %v", txs[1].Metadata)
	}
	if !txs[2].Timestamp.Equal(fixedNow) {
		t.Errorf("t4 timestamp = %v, want clock fallback", txs[2].Timestamp)
	}
}

func TestJSONLinesSource_MalformedLine(t *testing.T) {
	t.Parallel()

	input := `{"id":"t1","items":["a"]}
{not json}
{"id":"t2","items":["b"]}
`
	src := NewJSONLinesSource(strings.NewReader(input))

	var loaded int
	var gotErr error
	for _, err := range src.Transactions(context.Background()) {
		if err != nil {
			gotErr = err
			break
		}
		loaded++
	}
	if loaded != 1 {
		t.Errorf("loaded = %d, want 1 before the malformed line", loaded)
	}
	if gotErr == nil || !strings.Contains(gotErr.Error(), "line 2") {
		t.Errorf("error = %v, want decode error for line 2", gotErr)
	}
}
