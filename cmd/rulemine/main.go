// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

// Command rulemine mines association rules from transaction data and serves
// recommendations from them.
//
//	rulemine mine --input orders.csv --min-support 0.05 --store data/rulesets
//	rulemine serve
//
// Configuration is layered with koanf: built-in defaults, then a YAML file
// (--config, RULEMINE_CONFIG or ./rulemine.yaml), then RULEMINE_<SECTION>__<KEY>
// environment variables. See internal/config.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tomtom215/rulemine/internal/cli"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.NewRootCommand(version).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
