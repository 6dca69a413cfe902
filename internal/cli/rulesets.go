// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tomtom215/rulemine/internal/config"
	"github.com/tomtom215/rulemine/internal/export"
	"github.com/tomtom215/rulemine/internal/repository"
	"github.com/tomtom215/rulemine/internal/ruleengine"
)

// latestID selects the most recently saved rule set.
const latestID = "latest"

// Export formats.
const (
	exportGRL  = "grl"
	exportJSON = "json"
)

// storeFlags selects the rule-set store for read commands.
type storeFlags struct {
	storePath string
	id        string
}

func (s *storeFlags) register(cmd *cobra.Command, withID bool) {
	cmd.Flags().StringVar(&s.storePath, "store", "", "store directory; default storage.path")
	if withID {
		cmd.Flags().StringVar(&s.id, "id", latestID, `rule set id or "latest"`)
	}
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (s *storeFlags) open(cfg *config.Config, logger zerolog.Logger) (*repository.Store, error) {
	storeCfg := repository.Config{Path: cfg.Storage.Path, InMemory: cfg.Storage.InMemory}
	if s.storePath != "" {
		storeCfg = repository.Config{Path: s.storePath}
	}
	return repository.Open(storeCfg, logger)
}

func loadRuleSet(ctx context.Context, store *repository.Store, id string) (*repository.RuleSet, error) {
	if id == "" || id == latestID {
		return store.Latest(ctx)
	}
	return store.Get(ctx, id)
}

// withRuleSet loads the configured store and rule set and runs fn with it.
func withRuleSet(cmd *cobra.Command, root *RootOptions, sf *storeFlags, fn func(*config.Config, *repository.RuleSet, zerolog.Logger) error) error {
	cfg, logger, err := root.loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := sf.open(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck // read-only use

	rs, err := loadRuleSet(commandContext(cmd), store, sf.id)
	if err != nil {
		return fmt.Errorf("load rule set %s: %w", sf.id, err)
	}
	return fn(cfg, rs, logger)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newExportCommand(root *RootOptions) *cobra.Command {
	sf := &storeFlags{}
	var (
		as   string
		file string
	)

	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Export a stored rule set as GRL or JSON",
		GroupID: "mining",
		Example: `  rulemine export --id latest --as grl --file rules.grl
  rulemine export --id 0190a4b2-7c1e-7000-8000-000000000001 --as json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if as != exportGRL && as != exportJSON {
				return fmt.Errorf("invalid --as %q: must be grl or json", as)
			}
			return withRuleSet(cmd, root, sf, func(cfg *config.Config, rs *repository.RuleSet, _ zerolog.Logger) error {
				return writeTo(file, cmd.OutOrStdout(), func(w io.Writer) error {
					if as == exportJSON {
						return export.WriteJSON(w, export.NewDocument(rs.Config, rs.Stats, rs.Rules, rs.CreatedAt))
					}
					gen := export.NewGRLGenerator(export.GRLConfig{
						InputField:  cfg.Export.InputField,
						OutputField: cfg.Export.OutputField,
					}).WithClock(func() time.Time { return rs.CreatedAt })
					return gen.Write(w, rs.Rules)
				})
			})
		},
	}

	sf.register(cmd, true)
	cmd.Flags().StringVar(&as, "as", exportGRL, "export format (grl|json)")
	cmd.Flags().StringVar(&file, "file", stdioPath, `output file ("-" for stdout)`)
	return cmd
}

func newListCommand(root *RootOptions) *cobra.Command {
	sf := &storeFlags{}
	var limit int

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List stored rule sets, newest first",
		GroupID: "mining",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := sf.open(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck // read-only use

			summaries, err := store.List(commandContext(cmd), limit)
			if err != nil {
				return err
			}
			if root.Output == OutputJSON {
				if summaries == nil {
					summaries = []repository.Summary{}
				}
				return writeJSON(cmd.OutOrStdout(), summaries)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tSOURCE\tALGORITHM\tRULES")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
					s.ID, s.CreatedAt.Format(time.RFC3339), s.Source, s.Config.Algorithm, s.RuleCount)
			}
			return tw.Flush()
		},
	}

	sf.register(cmd, false)
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rule sets listed")
	return cmd
}

func newRecommendCommand(root *RootOptions) *cobra.Command {
	sf := &storeFlags{}
	var limit int

	cmd := &cobra.Command{
		Use:     "recommend ITEM [ITEM...]",
		Short:   "Recommend items for a basket from a stored rule set",
		GroupID: "serving",
		Example: `  rulemine recommend Laptop
  rulemine recommend --id latest --limit 3 Laptop Mouse`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuleSet(cmd, root, sf, func(_ *config.Config, rs *repository.RuleSet, logger zerolog.Logger) error {
				engine, err := ruleengine.NewEngine(rs.Rules, ruleengine.WithLogger(logger))
				if err != nil {
					return err
				}
				recs, err := engine.Recommend(args, limit)
				if err != nil {
					return err
				}
				if recs == nil {
					recs = []ruleengine.Recommendation{}
				}

				if root.Output == OutputJSON {
					return writeJSON(cmd.OutOrStdout(), recs)
				}
				if len(recs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No recommendations")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ITEM\tCONFIDENCE\tLIFT\tRULE")
				for _, r := range recs {
					fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%s\n", r.Item, r.Confidence, r.Lift, r.Rule)
				}
				return tw.Flush()
			})
		},
	}

	sf.register(cmd, true)
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum recommendations (0 for all)")
	return cmd
}
