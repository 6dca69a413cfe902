// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

// Package logging provides the zerolog-based logging used across rulemine.
//
// A global logger is configured once at startup with Init and handed to
// components, which derive their own child loggers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	miner, err := mining.NewMiner(cfg, mining.WithLogger(logging.Logger()))
//
// Components tag their output with a component field:
//
//	logger := logging.WithComponent(parent, "repository")
//	logger.Info().Str("ruleset_id", id).Msg("rule set saved")
//
// HTTP handlers store their logger in the request context with
// ContextWithLogger; Ctx adds the request and correlation ids:
//
//	logging.Ctx(r.Context()).Warn().Err(err).Msg("Health check could not read rule set store")
//
// WatermillAdapter routes message-bus library logs through the same logger.
//
// Always terminate log chains with .Msg() or .Send(); an unterminated event is
// never written.
package logging
