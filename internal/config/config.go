// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

// Package config loads rulemine configuration from layered sources.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values for every setting
//  2. Config File: optional YAML file (RULEMINE_CONFIG or a well-known path)
//  3. Environment Variables: RULEMINE_<SECTION>__<KEY> overrides
//
// Configuration Categories:
//
//   - Mining: thresholds and engine selection for a mining run
//   - Ingest: transaction source format and column mapping
//   - Export: field names used in generated GRL rule text
//   - Storage: badger directory for persisted rule sets
//   - Publish: NATS publishing of mined rule-set events
//   - Server: HTTP API listener, rate limiting and CORS
//   - Logging: zerolog level and format
package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/rulemine/internal/logging"
	"github.com/tomtom215/rulemine/internal/mining"
	"github.com/tomtom215/rulemine/internal/validation"
)

// Config holds all application configuration.
type Config struct {
	Mining  MiningConfig   `koanf:"mining"`
	Ingest  IngestConfig   `koanf:"ingest"`
	Export  ExportConfig   `koanf:"export"`
	Storage StorageConfig  `koanf:"storage"`
	Publish PublishConfig  `koanf:"publish"`
	Server  ServerConfig   `koanf:"server"`
	Logging logging.Config `koanf:"logging"`
}

// MiningConfig holds the thresholds of a mining run.
type MiningConfig struct {
	MinSupport    float64 `koanf:"min_support" validate:"gte=0,lte=1"`
	MinConfidence float64 `koanf:"min_confidence" validate:"gte=0,lte=1"`
	MinLift       float64 `koanf:"min_lift" validate:"gte=0"`

	// Algorithm accepts levelwise, tree, vertical or their aliases
	// apriori, fpgrowth and eclat.
	Algorithm string `koanf:"algorithm" validate:"required,algorithm"`
}

// IngestConfig describes where transactions come from.
//
// Column indices are 0-based. With HasHeader the first CSV row is skipped.
type IngestConfig struct {
	Format    string `koanf:"format" validate:"oneof=csv jsonl sql"`
	Input     string `koanf:"input"`
	HasHeader bool   `koanf:"has_header"`

	TransactionIDColumn int    `koanf:"transaction_id_column" validate:"gte=0"`
	ItemColumns         []int  `koanf:"item_columns" validate:"min=1,dive,gte=0"`
	TimestampColumn     int    `koanf:"timestamp_column" validate:"gte=0"`
	FieldSeparator      string `koanf:"field_separator" validate:"required"`

	// SQL source settings. Driver defaults to duckdb so CSV and Parquet
	// files can be queried with read_csv_auto / read_parquet.
	SQLDriver string `koanf:"sql_driver" validate:"omitempty,oneof=duckdb"`
	DSN       string `koanf:"dsn"`
	Query     string `koanf:"query" validate:"required_if=Format sql"`

	// S3 is used when Input is an s3://bucket/key uri.
	S3 S3Config `koanf:"s3"`
}

// S3Config selects the object store for s3:// inputs. Empty credentials use
// the AWS default chain.
type S3Config struct {
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint" validate:"omitempty,url"`
	UsePathStyle    bool   `koanf:"use_path_style"`
	AccessKeyID     string `koanf:"access_key_id" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `koanf:"secret_access_key" validate:"required_with=AccessKeyID"`
}

// ExportConfig holds the fact field names used in generated GRL.
type ExportConfig struct {
	InputField  string `koanf:"input_field" validate:"required"`
	OutputField string `koanf:"output_field" validate:"required"`
}

// StorageConfig configures the badger rule-set repository.
type StorageConfig struct {
	Path     string `koanf:"path" validate:"required_without=InMemory"`
	InMemory bool   `koanf:"in_memory"`

	// GCInterval is how often `rulemine serve` reclaims value-log space.
	// Zero disables it.
	GCInterval time.Duration `koanf:"gc_interval" validate:"gte=0"`
}

// PublishConfig configures rule-set event publishing over NATS JetStream.
type PublishConfig struct {
	Enabled       bool    `koanf:"enabled"`
	NATSURL       string  `koanf:"nats_url" validate:"required_if=Enabled true"`
	Topic         string  `koanf:"topic" validate:"required"`
	RatePerSecond float64 `koanf:"rate_per_second" validate:"gt=0"`
	Burst         int     `koanf:"burst" validate:"gte=1"`

	// Circuit breaker settings.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures" validate:"gte=1"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
	BreakerInterval    time.Duration `koanf:"breaker_interval" validate:"gte=0"`

	// Listen makes `rulemine serve` consume rule-set events and precompile
	// the announced rule sets.
	Listen      bool   `koanf:"listen"`
	DurableName string `koanf:"durable_name" validate:"required_if=Listen true"`

	// Events that could not be published are queued in the rule-set store
	// and retried by `rulemine serve` every RetryInterval. Zero disables
	// the retry loop. Entries are dropped after MaxAttempts failures.
	RetryInterval time.Duration `koanf:"retry_interval" validate:"gte=0"`
	RetryBackoff  time.Duration `koanf:"retry_backoff" validate:"gte=0"`
	MaxAttempts   int           `koanf:"max_attempts" validate:"gte=1"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout       time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout      time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	EngineCacheSize   int           `koanf:"engine_cache_size" validate:"gte=0"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Validate checks the configuration with the shared validator and then
// validates the mining thresholds with the same rules the miner applies.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}
	if _, err := c.MiningConfig(); err != nil {
		return err
	}
	return nil
}

// MiningConfig converts the mining section into a validated mining.Config.
func (c *Config) MiningConfig() (mining.Config, error) {
	alg, err := mining.ParseAlgorithm(c.Mining.Algorithm)
	if err != nil {
		return mining.Config{}, err
	}
	return mining.NewConfig(c.Mining.MinSupport, c.Mining.MinConfidence, c.Mining.MinLift, alg)
}
