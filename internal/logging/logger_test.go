// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" || cfg.Format != "json" {
		t.Errorf("DefaultConfig() level/format = %s/%s, want info/json", cfg.Level, cfg.Format)
	}
	if cfg.Caller || !cfg.Timestamp {
		t.Errorf("DefaultConfig() caller = %v, timestamp = %v, want false, true", cfg.Caller, cfg.Timestamp)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		cfg           Config
		wantJSON      bool
		wantTimestamp bool
		wantCaller    bool
	}{
		{name: "json with timestamp", cfg: Config{Format: "json", Timestamp: true}, wantJSON: true, wantTimestamp: true},
		{name: "json with caller", cfg: Config{Format: "json", Caller: true}, wantJSON: true, wantCaller: true},
		{name: "empty format is json", cfg: Config{}, wantJSON: true},
		{name: "console", cfg: Config{Format: "console"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			tt.cfg.Output = &buf

			logger := New(tt.cfg)
			logger.Warn().Str("ruleset_id", "rs-1").Msg("rule set saved")

			if !tt.wantJSON {
				if strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), "rule set saved") {
					t.Errorf("console output = %q", buf.String())
				}
				return
			}

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("decode %q: %v", buf.String(), err)
			}
			if entry["message"] != "rule set saved" || entry["level"] != "warn" || entry["ruleset_id"] != "rs-1" {
				t.Errorf("entry = %v", entry)
			}
			if _, ok := entry["time"]; ok != tt.wantTimestamp {
				t.Errorf("time present = %v, want %v", ok, tt.wantTimestamp)
			}
			if _, ok := entry["caller"]; ok != tt.wantCaller {
				t.Errorf("caller present = %v, want %v", ok, tt.wantCaller)
			}
		})
	}
}

func TestInit(t *testing.T) {
	original := zerolog.GlobalLevel()
	defer func() {
		Init(DefaultConfig())
		zerolog.SetGlobalLevel(original)
	}()

	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})

	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("GlobalLevel() = %v, want warn", zerolog.GlobalLevel())
	}

	logger := Logger()
	logger.Info().Msg("filtered")
	logger.Warn().Msg("kept")

	if strings.Contains(buf.String(), "filtered") || !strings.Contains(buf.String(), "kept") {
		t.Errorf("output = %q, want only the warn entry", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"disabled", zerolog.Disabled},
		{" DEBUG ", zerolog.DebugLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestWithComponent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	parent := zerolog.New(&buf).With().Str("service", "rulemine").Logger()

	logger := WithComponent(parent, "repository")
	logger.Info().Msg("rule set saved")

	out := buf.String()
	if !strings.Contains(out, `"component":"repository"`) || !strings.Contains(out, `"service":"rulemine"`) {
		t.Errorf("output = %s, want component and inherited fields", out)
	}
}

func TestSetLevelString(t *testing.T) {
	original := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(original)

	for _, tt := range []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	} {
		SetLevelString(tt.level)
		if got := zerolog.GlobalLevel(); got != tt.want {
			t.Errorf("SetLevelString(%q): GlobalLevel() = %v, want %v", tt.level, got, tt.want)
		}
	}
}
