// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	// DuckDB driver - lets SQL sources query CSV and Parquet files in place
	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/rulemine/internal/mining"
)

// DriverDuckDB is the database/sql driver name registered by duckdb-go.
const DriverDuckDB = "duckdb"

// SQLSource runs a query whose rows are (id, items, timestamp).
//
// items may be a comma-separated string or a list value, so both of these
// work against DuckDB:
//
//	SELECT order_id, string_agg(product, ','), max(ts) FROM read_csv_auto('orders.csv') GROUP BY 1
//	SELECT order_id, list(product), max(ts) FROM read_parquet('orders.parquet') GROUP BY 1
type SQLSource struct {
	db    *sql.DB
	query string
	args  []any
	opts  options
}

// NewSQLSource runs query with args against db.
func NewSQLSource(db *sql.DB, query string, args []any, opts ...Option) *SQLSource {
	return &SQLSource{db: db, query: query, args: args, opts: applyOptions(FormatSQL, opts)}
}

// OpenDuckDB opens a DuckDB database. An empty dsn opens an in-memory database.
func OpenDuckDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverDuckDB, dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on error path
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return db, nil
}

// Transactions streams the query rows.
func (s *SQLSource) Transactions(ctx context.Context) iter.Seq2[mining.Transaction, error] {
	return func(yield func(mining.Transaction, error) bool) {
		rows, err := s.db.QueryContext(ctx, s.query, s.args...)
		if err != nil {
			yield(mining.Transaction{}, fmt.Errorf("query transactions: %w", err))
			return
		}
		defer rows.Close() //nolint:errcheck // rows.Err reports iteration errors

		cols, err := rows.Columns()
		if err != nil {
			yield(mining.Transaction{}, fmt.Errorf("read columns: %w", err))
			return
		}
		if len(cols) < 3 {
			yield(mining.Transaction{}, fmt.Errorf("query must return id, items and timestamp columns, got %d", len(cols)))
			return
		}

		counter := rowCounter{format: FormatSQL}
		defer counter.flush()

		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}

		rowIdx := 0
		for rows.Next() {
			rowIdx++
			if err := rows.Scan(dest...); err != nil {
				yield(mining.Transaction{}, fmt.Errorf("scan row %d: %w", rowIdx, err))
				return
			}

			tx, ok := s.transaction(values, rowIdx)
			if !ok {
				counter.skipped++
				continue
			}
			counter.loaded++
			if !yield(tx, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(mining.Transaction{}, fmt.Errorf("iterate rows: %w", err))
		}
	}
}

func (s *SQLSource) transaction(values []any, rowIdx int) (mining.Transaction, bool) {
	id := strings.TrimSpace(stringValue(values[0]))
	if id == "" {
		return mining.Transaction{}, false
	}

	items := itemsValue(values[1])
	if len(items) == 0 {
		return mining.Transaction{}, false
	}

	ts, ok := timeValue(values[2])
	if !ok {
		ts = s.opts.now()
		if values[2] != nil {
			s.opts.logger.Warn().
				Interface("timestamp", values[2]).
				Int("row", rowIdx).
				Msg("Failed to parse timestamp, using current time")
		}
	}

	return mining.NewTransaction(id, items, ts), true
}

// stringValue renders a scanned scalar as text.
func stringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	default:
		return fmt.Sprint(x)
	}
}

// itemsValue accepts a comma-separated string or a list of scalars.
func itemsValue(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return splitItems(stringValue(v))
	}
	items := make([]string, 0, len(list))
	for _, elem := range list {
		if s := strings.TrimSpace(stringValue(elem)); s != "" {
			items = append(items, s)
		}
	}
	return items
}

// timeValue accepts native timestamps, Unix seconds and parseable strings.
func timeValue(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), true
	case int64:
		return time.Unix(x, 0).UTC(), true
	case int32:
		return time.Unix(int64(x), 0).UTC(), true
	case nil:
		return time.Time{}, false
	default:
		return ParseTimestamp(stringValue(x))
	}
}
