// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

/*
Package api serves stored rule sets and basket recommendations over HTTP.

The API is read-only with respect to mining: rule sets are produced by the
mine command and persisted in the repository; this package exposes them and
runs the rule engine against caller baskets.

Endpoints:

	GET  /api/v1/health               server and store health
	GET  /api/v1/rulesets             rule-set summaries, newest first (?limit=)
	GET  /api/v1/rulesets/{id}        one rule set; {id} may be "latest"
	GET  /api/v1/rulesets/{id}/grl    the rule set rendered as GRL text
	POST /api/v1/recommend            recommendations for a basket
	GET  /metrics                     Prometheus metrics

Response Format:

JSON endpoints share one envelope:

	{
	  "status": "success" | "error",
	  "data": ...,
	  "metadata": {"timestamp": "...", "request_id": "..."},
	  "error": {"code": "NOT_FOUND", "message": "..."}
	}

Middleware:

Every route runs behind request-ID tagging, panic recovery and CORS. The
/api/v1 routes add a per-IP rate limit (go-chi/httprate) and Prometheus
request metrics.

Engines:

Compiling a rule set into a ruleengine.Engine is done once per rule set and
cached in an LRU keyed by rule-set ID. Rule sets are immutable once saved, so
cached engines never go stale. All engines share one compiled-program cache.
*/
package api
