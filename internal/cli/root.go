// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

// Package cli implements the rulemine command tree.
//
//	rulemine mine --input orders.csv --grl rules.grl --store data/rulesets
//	rulemine serve
//	rulemine export --id latest --as grl
//	rulemine recommend --id latest Laptop Mouse
package cli

import (
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tomtom215/rulemine/internal/config"
	"github.com/tomtom215/rulemine/internal/logging"
)

// Output formats for command results.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// ValidOutputs lists the accepted --output values.
var ValidOutputs = []string{OutputText, OutputJSON}

// RootOptions holds the global flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Output     string
	Version    string
}

// loadConfig loads the layered configuration and initializes logging onto
// the command's error stream.
func (o *RootOptions) loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	cfg.Logging.Output = cmd.ErrOrStderr()
	logging.Init(cfg.Logging)
	return cfg, logging.Logger(), nil
}

// NewRootCommand creates the rulemine command tree.
func NewRootCommand(version string) *cobra.Command {
	if version == "" {
		version = "dev"
	}
	opts := &RootOptions{Version: version}

	cmd := &cobra.Command{
		Use:   "rulemine",
		Short: "Association rule mining and recommendation rules",
		Long: `rulemine mines frequent itemsets and association rules from transaction
data, ranks them, exports them as GRL rule sets, stores them and serves
basket recommendations over HTTP.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if !slices.Contains(ValidOutputs, opts.Output) {
				return fmt.Errorf("invalid output %q: must be one of %v", opts.Output, ValidOutputs)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default: RULEMINE_CONFIG or ./rulemine.yaml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override logging.level")
	cmd.PersistentFlags().StringVarP(&opts.Output, "output", "o", OutputText, "result format (text|json)")

	cmd.AddGroup(
		&cobra.Group{ID: "mining", Title: "Mining Commands:"},
		&cobra.Group{ID: "serving", Title: "Serving Commands:"},
	)

	cmd.AddCommand(newMineCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newRecommendCommand(opts))
	cmd.AddCommand(newVersionCommand(opts))

	return cmd
}
