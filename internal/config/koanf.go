// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/rulemine/internal/logging"
	"github.com/tomtom215/rulemine/internal/mining"
)

// DefaultConfigPaths lists config file locations searched in order.
var DefaultConfigPaths = []string{
	"rulemine.yaml",
	"rulemine.yml",
	"config/rulemine.yaml",
	"/etc/rulemine/config.yaml",
}

const (
	// ConfigPathEnvVar names a config file explicitly.
	ConfigPathEnvVar = "RULEMINE_CONFIG"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "RULEMINE_"

	// envNestingSeparator separates config sections in env names:
	// RULEMINE_MINING__MIN_SUPPORT -> mining.min_support
	envNestingSeparator = "__"

	// DefaultTopic is the topic mined rule-set events are published on.
	DefaultTopic = "rulemine.rulesets"
)

// defaultConfig returns a Config with every default applied.
func defaultConfig() *Config {
	miningDefaults := mining.DefaultConfig()
	logDefaults := logging.DefaultConfig()

	return &Config{
		Mining: MiningConfig{
			MinSupport:    miningDefaults.MinSupport,
			MinConfidence: miningDefaults.MinConfidence,
			MinLift:       miningDefaults.MinLift,
			Algorithm:     miningDefaults.Algorithm.String(),
		},
		Ingest: IngestConfig{
			Format:              "csv",
			HasHeader:           true,
			TransactionIDColumn: 0,
			ItemColumns:         []int{1},
			TimestampColumn:     2,
			FieldSeparator:      "::",
			SQLDriver:           "duckdb",
			S3:                  S3Config{Region: "us-east-1"},
		},
		Export: ExportConfig{
			InputField:  "ShoppingCart.items",
			OutputField: "Recommendation.items",
		},
		Storage: StorageConfig{
			Path:       "data/rulesets",
			GCInterval: 10 * time.Minute,
		},
		Publish: PublishConfig{
			Enabled:            false,
			NATSURL:            "nats://127.0.0.1:4222",
			Topic:              DefaultTopic,
			RatePerSecond:      10,
			Burst:              5,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
			BreakerInterval:    time.Minute,
			DurableName:        "rulemine-serve",
			RetryInterval:      30 * time.Second,
			RetryBackoff:       5 * time.Second,
			MaxAttempts:        100,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{"*"},
			EngineCacheSize:   16,
		},
		Logging: logging.Config{
			Level:     logDefaults.Level,
			Format:    logDefaults.Format,
			Caller:    logDefaults.Caller,
			Timestamp: logDefaults.Timestamp,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// RULEMINE_ environment variables, in increasing priority. An empty path
// searches RULEMINE_CONFIG and DefaultConfigPaths.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if path = ResolvePath(path); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Layer 3: environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.Logging.Output = os.Stderr

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// ResolvePath returns path when set, otherwise the config file Load would
// discover, or "" when there is none.
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	return findConfigFile()
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when set from env.
var sliceConfigPaths = []string{
	"ingest.item_columns",
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf paths.
//
// Examples:
//   - RULEMINE_MINING__MIN_SUPPORT -> mining.min_support
//   - RULEMINE_SERVER__PORT -> server.port
//   - RULEMINE_CONFIG -> "" (skipped)
//
// Names without a section separator are skipped so that RULEMINE_CONFIG and
// stray variables do not pollute the configuration.
func envTransformFunc(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	if !strings.Contains(key, envNestingSeparator) {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(key, envNestingSeparator, "."))
}

// WatchConfigFile calls callback whenever the file at path changes. The
// caller is responsible for reloading with Load and for synchronizing
// access to the reloaded configuration.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
