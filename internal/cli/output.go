// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rulemine/internal/mining"
)

// stdioPath means stdin or stdout.
const stdioPath = "-"

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRules writes a rule table.
func printRules(w io.Writer, rules []mining.AssociationRule) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tRULE\tSUPPORT\tCONFIDENCE\tLIFT\tCONVICTION\tQUALITY")
	for i, r := range rules {
		fmt.Fprintf(tw, "%d\t%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n",
			i+1, r.String(), r.Metrics.Support, r.Metrics.Confidence,
			r.Metrics.Lift, r.Metrics.Conviction, r.QualityScore())
	}
	return tw.Flush()
}

// createOutput opens path for writing; "-" is stdout.
func createOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == stdioPath {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, f.Close, nil
}
