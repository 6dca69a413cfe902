// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/tomtom215/rulemine/internal/mining"
)

// CSVSource reads transactions from comma-separated rows.
type CSVSource struct {
	r         io.Reader
	mapping   ColumnMapping
	hasHeader bool
	opts      options
}

// NewCSVSource reads r with the given mapping. The first row is treated as a
// header; use WithoutHeader for headerless input.
func NewCSVSource(r io.Reader, mapping ColumnMapping, opts ...Option) *CSVSource {
	if mapping.FieldSeparator == "" {
		mapping.FieldSeparator = DefaultFieldSeparator
	}
	return &CSVSource{
		r:         r,
		mapping:   mapping,
		hasHeader: true,
		opts:      applyOptions(FormatCSV, opts),
	}
}

// LoadCSV reads every transaction from a headed CSV stream.
func LoadCSV(ctx context.Context, r io.Reader, mapping ColumnMapping, opts ...Option) ([]mining.Transaction, error) {
	return Collect(ctx, NewCSVSource(r, mapping, opts...))
}

// WithoutHeader makes the source map the first row too.
func (s *CSVSource) WithoutHeader() *CSVSource {
	s.hasHeader = false
	return s
}

// Transactions streams the mapped rows. The reader is consumed once.
func (s *CSVSource) Transactions(ctx context.Context) iter.Seq2[mining.Transaction, error] {
	return func(yield func(mining.Transaction, error) bool) {
		if err := s.mapping.Validate(); err != nil {
			yield(mining.Transaction{}, err)
			return
		}

		reader := csv.NewReader(s.r)
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true
		reader.ReuseRecord = true

		counter := rowCounter{format: FormatCSV}
		defer counter.flush()

		for rowIdx := 1; ; rowIdx++ {
			if err := ctx.Err(); err != nil {
				yield(mining.Transaction{}, err)
				return
			}

			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(mining.Transaction{}, fmt.Errorf("read csv row %d: %w", rowIdx, err))
				return
			}

			if rowIdx == 1 && s.hasHeader {
				continue
			}

			tx, ok := s.transaction(record, rowIdx)
			if !ok {
				counter.skipped++
				continue
			}
			counter.loaded++
			if !yield(tx, nil) {
				return
			}
		}
	}
}

func (s *CSVSource) transaction(record []string, rowIdx int) (mining.Transaction, bool) {
	r, ok, err := s.mapping.extract(record)
	if err != nil {
		s.opts.logger.Warn().Err(err).Int("row", rowIdx).Msg("Skipping row")
		return mining.Transaction{}, false
	}
	if !ok {
		return mining.Transaction{}, false
	}

	ts, parsed := ParseTimestamp(r.timestamp)
	if !parsed {
		ts = s.opts.now()
		s.opts.logger.Warn().
			Str("timestamp", r.timestamp).
			Int("row", rowIdx).
			Msg("Failed to parse timestamp, using current time")
	}

	return mining.NewTransaction(r.id, r.items, ts), true
}
