// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/rulemine/internal/logging"
	"github.com/tomtom215/rulemine/internal/repository"
)

// HealthStatus is the data of GET /api/v1/health.
type HealthStatus struct {
	Status          string     `json:"status"`
	Version         string     `json:"version"`
	UptimeSeconds   float64    `json:"uptime_seconds"`
	StoreAvailable  bool       `json:"store_available"`
	LatestRuleSetID string     `json:"latest_ruleset_id,omitempty"`
	LatestCreatedAt *time.Time `json:"latest_created_at,omitempty"`
	CachedEngines   int        `json:"cached_engines"`
}

// Health reports whether the rule-set store is reachable. An empty store is
// healthy; a failing store returns 503 with status "degraded".
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{
		Status:         "healthy",
		Version:        h.version,
		UptimeSeconds:  time.Since(h.startTime).Seconds(),
		StoreAvailable: true,
		CachedEngines:  h.engines.Len(),
	}

	rs, err := h.store.Latest(r.Context())
	switch {
	case err == nil:
		health.LatestRuleSetID = rs.ID
		created := rs.CreatedAt
		health.LatestCreatedAt = &created
	case errors.Is(err, repository.ErrNotFound):
	default:
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Health check could not read rule set store")
		health.Status = "degraded"
		health.StoreAvailable = false
		respondJSON(w, r, http.StatusServiceUnavailable, &APIResponse{Status: statusSuccess, Data: health})
		return
	}

	respondData(w, r, health)
}
