// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rulemine/internal/mining"
)

// maxLineSize bounds a single JSON Lines record.
const maxLineSize = 4 << 20

// jsonLine is one JSON Lines record. Timestamp may be a string in any format
// ParseTimestamp accepts or a number of Unix seconds.
type jsonLine struct {
	ID        string          `json:"id"`
	Items     []string        `json:"items"`
	Timestamp json.RawMessage `json:"timestamp"`
	UserID    string          `json:"user_id"`
	Metadata  map[string]any  `json:"metadata"`
}

// JSONLinesSource reads one transaction object per line:
//
//	{"id":"t1","items":["bread","milk"],"timestamp":"2024-01-15T10:30:00Z"}
type JSONLinesSource struct {
	r    io.Reader
	opts options
}

// NewJSONLinesSource reads transactions from r.
func NewJSONLinesSource(r io.Reader, opts ...Option) *JSONLinesSource {
	return &JSONLinesSource{r: r, opts: applyOptions(FormatJSONL, opts)}
}

// Transactions streams the decoded lines. Blank lines are ignored; a line
// that is not valid JSON ends the stream with an error.
func (s *JSONLinesSource) Transactions(ctx context.Context) iter.Seq2[mining.Transaction, error] {
	return func(yield func(mining.Transaction, error) bool) {
		scanner := bufio.NewScanner(s.r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		counter := rowCounter{format: FormatJSONL}
		defer counter.flush()

		lineNo := 0
		for scanner.Scan() {
			lineNo++
			if err := ctx.Err(); err != nil {
				yield(mining.Transaction{}, err)
				return
			}

			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var rec jsonLine
			if err := json.Unmarshal(line, &rec); err != nil {
				yield(mining.Transaction{}, fmt.Errorf("decode line %d: %w", lineNo, err))
				return
			}

			tx, ok := s.transaction(&rec, lineNo)
			if !ok {
				counter.skipped++
				continue
			}
			counter.loaded++
			if !yield(tx, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(mining.Transaction{}, fmt.Errorf("read line %d: %w", lineNo+1, err))
		}
	}
}

func (s *JSONLinesSource) transaction(rec *jsonLine, lineNo int) (mining.Transaction, bool) {
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		return mining.Transaction{}, false
	}

	items := make([]string, 0, len(rec.Items))
	for _, item := range rec.Items {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return mining.Transaction{}, false
	}

	raw := strings.Trim(string(rec.Timestamp), `"`)
	ts, parsed := ParseTimestamp(raw)
	if !parsed {
		ts = s.opts.now()
		if raw != "" && raw != "null" {
			s.opts.logger.Warn().
				Str("timestamp", raw).
				Int("line", lineNo).
				Msg("Failed to parse timestamp, using current time")
		}
	}

	tx := mining.NewTransaction(id, items, ts)
	if rec.UserID != "" {
		tx = tx.WithUser(rec.UserID)
	}
	if len(rec.Metadata) > 0 {
		tx = tx.WithMetadata(rec.Metadata)
	}
	return tx, true
}
