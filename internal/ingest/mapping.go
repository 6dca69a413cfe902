// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package ingest

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultFieldSeparator joins values from multiple item columns.
const DefaultFieldSeparator = "::"

// ColumnMapping selects which 0-based columns of a tabular row form a
// transaction.
//
// With a single item column the cell is a comma-separated item list:
//
//	"Laptop,Mouse,Keyboard" -> [Laptop Mouse Keyboard]
//
// With several item columns each cell is split on commas and the lists are
// zipped positionally, joined with FieldSeparator:
//
//	"Laptop,Mouse" "Electronics,Accessories" "US,US"
//	  -> [Laptop::Electronics::US Mouse::Accessories::US]
type ColumnMapping struct {
	TransactionID  int
	ItemColumns    []int
	Timestamp      int
	FieldSeparator string
}

// SimpleMapping maps one id column, one item column and one timestamp column.
func SimpleMapping(transactionID, itemColumn, timestamp int) ColumnMapping {
	return ColumnMapping{
		TransactionID:  transactionID,
		ItemColumns:    []int{itemColumn},
		Timestamp:      timestamp,
		FieldSeparator: DefaultFieldSeparator,
	}
}

// MultiFieldMapping combines several item columns into compound items.
func MultiFieldMapping(transactionID int, itemColumns []int, timestamp int, separator string) ColumnMapping {
	return ColumnMapping{
		TransactionID:  transactionID,
		ItemColumns:    slices.Clone(itemColumns),
		Timestamp:      timestamp,
		FieldSeparator: separator,
	}
}

// Validate rejects mappings with no item column or negative indices.
func (m ColumnMapping) Validate() error {
	if len(m.ItemColumns) == 0 {
		return fmt.Errorf("column mapping needs at least one item column")
	}
	if m.TransactionID < 0 || m.Timestamp < 0 || slices.Min(m.ItemColumns) < 0 {
		return fmt.Errorf("column mapping indices must be non-negative")
	}
	return nil
}

// width is the number of columns a row needs for this mapping.
func (m ColumnMapping) width() int {
	return max(m.TransactionID, m.Timestamp, slices.Max(m.ItemColumns)) + 1
}

// row is a transaction extracted from one record before timestamp parsing.
type row struct {
	id        string
	items     []string
	timestamp string
}

// extract applies the mapping to a record. It returns ok=false for rows that
// carry no transaction (blank id or no items) and an error for rows that are
// too short for the mapping.
func (m ColumnMapping) extract(record []string) (row, bool, error) {
	if len(record) < m.width() {
		return row{}, false, fmt.Errorf("insufficient columns (expected at least %d, got %d)", m.width(), len(record))
	}

	id := strings.TrimSpace(record[m.TransactionID])
	if id == "" {
		return row{}, false, nil
	}

	var items []string
	if len(m.ItemColumns) == 1 {
		items = splitItems(record[m.ItemColumns[0]])
	} else {
		items = m.zip(record)
	}
	if len(items) == 0 {
		return row{}, false, nil
	}

	return row{id: id, items: items, timestamp: record[m.Timestamp]}, true, nil
}

// zip splits every item column and joins the i-th values of each column.
// Columns shorter than the longest one simply contribute nothing at i.
func (m ColumnMapping) zip(record []string) []string {
	fields := make([][]string, len(m.ItemColumns))
	longest := 0
	for i, col := range m.ItemColumns {
		fields[i] = splitItems(record[col])
		longest = max(longest, len(fields[i]))
	}

	items := make([]string, 0, longest)
	parts := make([]string, 0, len(fields))
	for i := range longest {
		parts = parts[:0]
		for _, f := range fields {
			if i < len(f) {
				parts = append(parts, f[i])
			}
		}
		if joined := strings.Join(parts, m.FieldSeparator); joined != "" {
			items = append(items, joined)
		}
	}
	return items
}

// splitItems splits a comma-separated cell, trimming and dropping blanks.
func splitItems(cell string) []string {
	var items []string
	for _, part := range strings.Split(cell, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
