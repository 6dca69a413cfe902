// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

/*
Package middleware provides chi-compatible HTTP middleware for the rulemine
API server.

Key Components:

  - RequestID: reuses or generates an X-Request-ID and stores it, with a fresh
    correlation ID, in the request context for structured logging
  - PrometheusMetrics: request counts, latencies and in-flight gauge labelled
    by the matched chi route pattern

Middleware Stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)

Route patterns are used as the endpoint label so that /api/v1/rulesets/{id}
is one series regardless of how many rule sets exist.
*/
package middleware
