// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

// Package ingest turns external data into mining transactions.
//
// Every source yields an iter.Seq2[mining.Transaction, error] that feeds
// mining.Miner.AddTransactionsFrom directly:
//
//	src := ingest.NewCSVSource(f, ingest.SimpleMapping(0, 1, 2))
//	n, err := miner.AddTransactionsFrom(src.Transactions(ctx))
//
// Rows that carry no transaction are skipped silently. Rows that cannot be
// mapped are skipped with a warning. Read and decode failures end the stream
// with an error.
package ingest

import (
	"context"
	"iter"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/rulemine/internal/logging"
	"github.com/tomtom215/rulemine/internal/metrics"
	"github.com/tomtom215/rulemine/internal/mining"
)

// Source formats, also used as metric labels.
const (
	FormatCSV   = "csv"
	FormatJSONL = "jsonl"
	FormatSQL   = "sql"
)

// Source produces transactions.
type Source interface {
	Transactions(ctx context.Context) iter.Seq2[mining.Transaction, error]
}

// Option configures a source.
type Option func(*options)

type options struct {
	logger zerolog.Logger
	now    func() time.Time
}

func defaultOptions() options {
	return options{
		logger: zerolog.Nop(),
		now:    time.Now,
	}
}

func applyOptions(format string, opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logging.WithComponent(o.logger, "ingest").With().Str("format", format).Logger()
	return o
}

// WithLogger sets the logger used for skipped-row warnings.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock sets the clock used for rows whose timestamp cannot be parsed.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// rowCounter tallies rows for the ingest metrics.
type rowCounter struct {
	format  string
	loaded  int
	skipped int
}

func (c *rowCounter) flush() {
	metrics.RecordIngestRows(c.format, "loaded", c.loaded)
	metrics.RecordIngestRows(c.format, "skipped", c.skipped)
}

// Collect drains a source into a slice. It fails with
// mining.ErrInsufficientData when the source yields no transactions.
func Collect(ctx context.Context, src Source) ([]mining.Transaction, error) {
	var txs []mining.Transaction
	for tx, err := range src.Transactions(ctx) {
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if len(txs) == 0 {
		return nil, &mining.MiningError{
			Code:    mining.CodeInsufficientData,
			Message: "no valid transactions found in source",
		}
	}
	return txs, nil
}
