// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tomtom215/rulemine/internal/config"
	"github.com/tomtom215/rulemine/internal/export"
	"github.com/tomtom215/rulemine/internal/ingest"
	"github.com/tomtom215/rulemine/internal/metrics"
	"github.com/tomtom215/rulemine/internal/mining"
	"github.com/tomtom215/rulemine/internal/publish"
	"github.com/tomtom215/rulemine/internal/repository"
)

type mineOptions struct {
	input     string
	format    string
	query     string
	dsn       string
	noHeader  bool
	support   float64
	conf      float64
	lift      float64
	algorithm string
	grlPath   string
	jsonPath  string
	save      bool
	storePath string
	publish   bool
	top       int
}

// mineSummary is the JSON result of a mining run.
type mineSummary struct {
	RuleSetID string                   `json:"ruleset_id,omitempty"`
	Published bool                     `json:"published"`
	Queued    bool                     `json:"queued,omitempty"`
	Config    mining.Config            `json:"config"`
	Stats     mining.MiningStats       `json:"stats"`
	Rules     []mining.AssociationRule `json:"rules"`
}

func newMineCommand(root *RootOptions) *cobra.Command {
	opts := &mineOptions{}

	cmd := &cobra.Command{
		Use:     "mine",
		Short:   "Mine association rules from transactions",
		GroupID: "mining",
		Example: `  rulemine mine --input orders.csv --min-support 0.05 --grl rules.grl
  rulemine mine --input orders.jsonl --format jsonl --algorithm tree --store data/rulesets
  rulemine mine --input s3://baskets/2026/orders.csv --save
  rulemine mine --format sql --query "SELECT id, list(item), max(ts) FROM read_parquet('o.parquet') GROUP BY 1"
  cat orders.csv | rulemine mine --input - --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMine(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", `transaction file, s3://bucket/key object, or "-" for stdin`)
	f.StringVar(&opts.format, "format", "", "input format (csv|jsonl|sql); default ingest.format")
	f.StringVar(&opts.query, "query", "", "SQL returning (id, items, timestamp) rows; default ingest.query")
	f.StringVar(&opts.dsn, "dsn", "", "DuckDB database for --format sql (default in-memory)")
	f.BoolVar(&opts.noHeader, "no-header", false, "CSV input has no header row")
	f.Float64Var(&opts.support, "min-support", 0, "minimum support in [0,1]; default mining.min_support")
	f.Float64Var(&opts.conf, "min-confidence", 0, "minimum confidence in [0,1]; default mining.min_confidence")
	f.Float64Var(&opts.lift, "min-lift", 0, "minimum lift; default mining.min_lift")
	f.StringVar(&opts.algorithm, "algorithm", "", "levelwise|tree (aliases apriori, fpgrowth); default mining.algorithm")
	f.StringVar(&opts.grlPath, "grl", "", `write GRL rules to this file ("-" for stdout)`)
	f.StringVar(&opts.jsonPath, "json", "", `write the JSON rule document to this file ("-" for stdout)`)
	f.BoolVar(&opts.save, "save", false, "save the rule set to the configured store")
	f.StringVar(&opts.storePath, "store", "", "save the rule set to this store directory")
	f.BoolVar(&opts.publish, "publish", false, "publish a ruleset.mined event (implies --save)")
	f.IntVar(&opts.top, "top", 20, "rules shown in the text summary (0 for all)")

	return cmd
}

func runMine(cmd *cobra.Command, root *RootOptions, opts *mineOptions) error {
	cfg, logger, err := root.loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	mc, err := mineConfig(cmd, cfg, opts)
	if err != nil {
		return err
	}

	miner, err := mining.NewMiner(mc,
		mining.WithLogger(logger),
		mining.WithObserver(metrics.MiningObserver{}),
	)
	if err != nil {
		return err
	}

	source, label, closeSource, err := openSource(ctx, cmd.InOrStdin(), cfg, opts, logger)
	if err != nil {
		return err
	}
	defer closeSource() //nolint:errcheck // read-only source

	n, err := miner.AddTransactionsFrom(source.Transactions(ctx))
	if err != nil {
		return fmt.Errorf("read transactions from %s: %w", label, err)
	}
	logger.Info().Int("transactions", n).Str("source", label).Msg("Transactions loaded")

	result, err := miner.Run()
	if err != nil {
		return err
	}

	gen := export.NewGRLGenerator(export.GRLConfig{InputField: cfg.Export.InputField, OutputField: cfg.Export.OutputField})
	if opts.grlPath != "" {
		if err := writeTo(opts.grlPath, cmd.OutOrStdout(), func(w io.Writer) error {
			return gen.Write(w, result.Rules)
		}); err != nil {
			return fmt.Errorf("write grl: %w", err)
		}
	}
	if opts.jsonPath != "" {
		doc := export.NewDocument(mc, result.Stats, result.Rules, time.Now())
		if err := writeTo(opts.jsonPath, cmd.OutOrStdout(), func(w io.Writer) error {
			return export.WriteJSON(w, doc)
		}); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	}

	summary := mineSummary{Config: mc, Stats: result.Stats, Rules: result.Rules}
	if opts.save || opts.storePath != "" || opts.publish {
		res, err := persist(ctx, cfg, opts, repository.NewRuleSet(mc, result, label), logger)
		if err != nil {
			return err
		}
		summary.RuleSetID = res.id
		summary.Published = res.published
		summary.Queued = res.queued
	}

	// GRL or JSON on stdout owns the stream.
	if opts.grlPath == stdioPath || opts.jsonPath == stdioPath {
		return nil
	}
	return printMineSummary(cmd.OutOrStdout(), root.Output, summary, opts.top)
}

// mineConfig applies flag overrides to the configured thresholds.
func mineConfig(cmd *cobra.Command, cfg *config.Config, opts *mineOptions) (mining.Config, error) {
	m := cfg.Mining
	flags := cmd.Flags()
	if flags.Changed("min-support") {
		m.MinSupport = opts.support
	}
	if flags.Changed("min-confidence") {
		m.MinConfidence = opts.conf
	}
	if flags.Changed("min-lift") {
		m.MinLift = opts.lift
	}
	if flags.Changed("algorithm") {
		m.Algorithm = opts.algorithm
	}
	alg, err := mining.ParseAlgorithm(m.Algorithm)
	if err != nil {
		return mining.Config{}, err
	}
	return mining.NewConfig(m.MinSupport, m.MinConfidence, m.MinLift, alg)
}

// openSource builds the transaction source and a label naming it.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func openSource(ctx context.Context, stdin io.Reader, cfg *config.Config, opts *mineOptions, logger zerolog.Logger) (ingest.Source, string, func() error, error) {
	format := opts.format
	if format == "" {
		format = cfg.Ingest.Format
	}
	input := opts.input
	if input == "" {
		input = cfg.Ingest.Input
	}
	srcOpts := []ingest.Option{ingest.WithLogger(logger)}

	if format == ingest.FormatSQL {
		query := opts.query
		if query == "" {
			query = cfg.Ingest.Query
		}
		if query == "" {
			return nil, "", nil, errors.New("--query is required for --format sql")
		}
		dsn := opts.dsn
		if dsn == "" {
			dsn = cfg.Ingest.DSN
		}
		db, err := ingest.OpenDuckDB(ctx, dsn)
		if err != nil {
			return nil, "", nil, err
		}
		return ingest.NewSQLSource(db, query, nil, srcOpts...), "sql:" + dsn, db.Close, nil
	}

	if input == "" {
		return nil, "", nil, errors.New("--input is required")
	}
	var (
		r       io.Reader
		closeFn = func() error { return nil }
	)
	switch {
	case input == stdioPath:
		r = stdin
	case ingest.IsS3URI(input):
		body, err := openS3Input(ctx, cfg, input)
		if err != nil {
			return nil, "", nil, err
		}
		r, closeFn = body, body.Close
	default:
		f, err := os.Open(input)
		if err != nil {
			return nil, "", nil, fmt.Errorf("open input: %w", err)
		}
		r, closeFn = f, f.Close
	}

	switch format {
	case ingest.FormatCSV:
		mapping := ingest.MultiFieldMapping(cfg.Ingest.TransactionIDColumn, cfg.Ingest.ItemColumns,
			cfg.Ingest.TimestampColumn, cfg.Ingest.FieldSeparator)
		if err := mapping.Validate(); err != nil {
			closeFn() //nolint:errcheck // already failing
			return nil, "", nil, err
		}
		src := ingest.NewCSVSource(r, mapping, srcOpts...)
		if opts.noHeader || !cfg.Ingest.HasHeader {
			src = src.WithoutHeader()
		}
		return src, input, closeFn, nil
	case ingest.FormatJSONL:
		return ingest.NewJSONLinesSource(r, srcOpts...), input, closeFn, nil
	default:
		closeFn() //nolint:errcheck // already failing
		return nil, "", nil, fmt.Errorf("unknown input format %q: must be csv, jsonl or sql", format)
	}
}

// openS3Input streams an s3://bucket/key input through the configured client.
func openS3Input(ctx context.Context, cfg *config.Config, uri string) (io.ReadCloser, error) {
	s3cfg := cfg.Ingest.S3
	client, err := ingest.NewS3Client(ctx, ingest.S3Config{
		Region:          s3cfg.Region,
		Endpoint:        s3cfg.Endpoint,
		UsePathStyle:    s3cfg.UsePathStyle,
		AccessKeyID:     s3cfg.AccessKeyID,
		SecretAccessKey: s3cfg.SecretAccessKey,
	})
	if err != nil {
		return nil, err
	}
	return ingest.OpenS3Object(ctx, client, uri)
}

// persistResult reports what persist did with a rule set.
type persistResult struct {
	id        string
	published bool
	queued    bool
}

// persist saves rs and optionally announces it. An event that cannot be
// published is queued in the store for `rulemine serve` to retry.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func persist(ctx context.Context, cfg *config.Config, opts *mineOptions, rs *repository.RuleSet, logger zerolog.Logger) (persistResult, error) {
	storeCfg := repository.Config{Path: cfg.Storage.Path, InMemory: cfg.Storage.InMemory}
	if opts.storePath != "" {
		storeCfg = repository.Config{Path: opts.storePath}
	}
	store, err := repository.Open(storeCfg, logger)
	if err != nil {
		return persistResult{}, err
	}
	defer store.Close() //nolint:errcheck // close errors are logged by the store

	id, err := store.Save(ctx, rs)
	if err != nil {
		return persistResult{}, err
	}
	logger.Info().Str("ruleset_id", id).Int("rules", len(rs.Rules)).Msg("Rule set saved")
	res := persistResult{id: id}

	if !opts.publish && !cfg.Publish.Enabled {
		return res, nil
	}

	ev := publish.NewRuleSetEvent(rs, time.Now())
	pub, err := publish.NewNATSPublisher(publish.NATSConfig{URL: cfg.Publish.NATSURL}, publisherConfig(cfg), logger)
	if err == nil {
		defer pub.Close() //nolint:errcheck // flushes on close
	}
	res.published, res.queued, err = publishOrQueue(ctx, pub, err, store, ev, logger)
	if err != nil {
		return res, fmt.Errorf("rule set %s saved but not published: %w", id, err)
	}
	return res, nil
}

// publishOrQueue publishes ev, falling back to the outbox when pub is
// unavailable (pubErr set) or the publish fails.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func publishOrQueue(ctx context.Context, pub *publish.Publisher, pubErr error, outbox publish.Outbox, ev publish.RuleSetEvent, logger zerolog.Logger) (published, queued bool, err error) {
	if pubErr == nil {
		pubErr = pub.PublishEvent(ctx, ev)
	}
	if pubErr == nil {
		return true, false, nil
	}

	entryID, err := publish.Enqueue(ctx, outbox, ev)
	if err != nil {
		return false, false, errors.Join(pubErr, err)
	}
	logger.Warn().
		Err(pubErr).
		Str("ruleset_id", ev.RuleSetID).
		Str("entry_id", entryID).
		Msg("Publish failed, event queued for retry")
	return false, true, nil
}

// publisherConfig maps the publish section onto publish.Config.
func publisherConfig(cfg *config.Config) publish.Config {
	pc := publish.DefaultConfig()
	pc.Topic = cfg.Publish.Topic
	pc.RatePerSecond = cfg.Publish.RatePerSecond
	pc.Burst = cfg.Publish.Burst
	pc.Breaker.FailureThreshold = cfg.Publish.BreakerMaxFailures
	pc.Breaker.Timeout = cfg.Publish.BreakerTimeout
	pc.Breaker.Interval = cfg.Publish.BreakerInterval
	return pc
}

func writeTo(path string, stdout io.Writer, write func(io.Writer) error) error {
	w, closeFn, err := createOutput(path, stdout)
	if err != nil {
		return err
	}
	if err := write(w); err != nil {
		closeFn() //nolint:errcheck // already failing
		return err
	}
	return closeFn()
}

func printMineSummary(w io.Writer, output string, s mineSummary, top int) error {
	if output == OutputJSON {
		return writeJSON(w, s)
	}

	fmt.Fprintf(w, "Mined %d rules from %d transactions (%s, %d frequent itemsets) in %s\n",
		s.Stats.RuleCount, s.Stats.TransactionsProcessed, s.Stats.Algorithm,
		s.Stats.FrequentItemsetCount, s.Stats.Duration.Round(time.Microsecond))
	if s.RuleSetID != "" {
		fmt.Fprintf(w, "Saved rule set %s", s.RuleSetID)
		switch {
		case s.Published:
			fmt.Fprint(w, " (published)")
		case s.Queued:
			fmt.Fprint(w, " (publish queued)")
		}
		fmt.Fprintln(w)
	}
	if len(s.Rules) == 0 {
		return nil
	}

	rules := s.Rules
	if top > 0 && len(rules) > top {
		rules = rules[:top]
	}
	fmt.Fprintln(w)
	return printRules(w, rules)
}
