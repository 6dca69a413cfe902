// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package mining

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Algorithm selects the frequent-itemset engine.
type Algorithm int

const (
	// AlgorithmLevelWise counts candidates breadth-first (Apriori).
	AlgorithmLevelWise Algorithm = iota

	// AlgorithmTree grows patterns from a frequency-ordered prefix tree (FP-growth).
	AlgorithmTree

	// AlgorithmVertical is reserved for a vertical tid-list engine (Eclat).
	// It is accepted by configuration but has no engine.
	AlgorithmVertical
)

// String returns the canonical name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmLevelWise:
		return "levelwise"
	case AlgorithmTree:
		return "tree"
	case AlgorithmVertical:
		return "vertical"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// ParseAlgorithm parses an algorithm name. Classic names (apriori, fpgrowth,
// eclat) are accepted as aliases.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "levelwise", "level-wise", "apriori":
		return AlgorithmLevelWise, nil
	case "tree", "fpgrowth", "fp-growth":
		return AlgorithmTree, nil
	case "vertical", "eclat":
		return AlgorithmVertical, nil
	default:
		return 0, invalidConfiguration("unknown algorithm %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Config holds the mining thresholds and the engine selection.
type Config struct {
	// MinSupport is the minimum fraction of transactions holding an itemset, in [0, 1].
	// Default: 0.1.
	MinSupport float64 `json:"min_support"`

	// MinConfidence is the minimum rule confidence, in [0, 1].
	// Default: 0.7.
	MinConfidence float64 `json:"min_confidence"`

	// MinLift is the minimum rule lift, >= 0.
	// Default: 1.0 (no negative correlation).
	MinLift float64 `json:"min_lift"`

	// Algorithm selects the itemset engine.
	// Default: AlgorithmLevelWise.
	Algorithm Algorithm `json:"algorithm"`

	// MaxTimeGap is reserved for sequential mining and ignored.
	MaxTimeGap *time.Duration `json:"max_time_gap,omitempty"`
}

// DefaultConfig returns the default mining configuration.
func DefaultConfig() Config {
	return Config{
		MinSupport:    0.1,
		MinConfidence: 0.7,
		MinLift:       1.0,
		Algorithm:     AlgorithmLevelWise,
	}
}

// NewConfig builds a validated configuration.
func NewConfig(minSupport, minConfidence, minLift float64, algorithm Algorithm) (Config, error) {
	cfg := Config{
		MinSupport:    minSupport,
		MinConfidence: minConfidence,
		MinLift:       minLift,
		Algorithm:     algorithm,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the thresholds. Any algorithm tag is accepted; tags with
// no engine fail at mining time.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (c Config) Validate() error {
	if math.IsNaN(c.MinSupport) || c.MinSupport < 0 || c.MinSupport > 1 {
		return invalidConfiguration("min_support must be in [0, 1], got %f", c.MinSupport)
	}
	if math.IsNaN(c.MinConfidence) || c.MinConfidence < 0 || c.MinConfidence > 1 {
		return invalidConfiguration("min_confidence must be in [0, 1], got %f", c.MinConfidence)
	}
	if math.IsNaN(c.MinLift) || c.MinLift < 0 {
		return invalidConfiguration("min_lift must be non-negative, got %f", c.MinLift)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (c Config) Clone() Config {
	if c.MaxTimeGap != nil {
		gap := *c.MaxTimeGap
		c.MaxTimeGap = &gap
	}
	return c
}
