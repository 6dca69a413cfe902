// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package api

import "github.com/tomtom215/rulemine/internal/ruleengine"

// Request limits
const (
	defaultListLimit = 50
	maxRequestBody   = 1 << 20
)

// RecommendRequest is the body of POST /api/v1/recommend.
type RecommendRequest struct {
	// RuleSetID selects the rule set; empty or "latest" uses the newest one.
	RuleSetID string `json:"ruleset_id" validate:"omitempty,max=64"`

	// Items is the current basket.
	Items []string `json:"items" validate:"required,min=1,max=1000,dive,itemid"`

	// Limit caps the number of recommendations; 0 returns all.
	Limit int `json:"limit" validate:"gte=0,lte=1000"`
}

// ListRuleSetsRequest holds the query parameters of GET /api/v1/rulesets.
type ListRuleSetsRequest struct {
	Limit int `json:"limit" validate:"min=1,max=1000"`
}

// RecommendResponse is the data of a successful recommendation.
type RecommendResponse struct {
	RuleSetID       string                      `json:"ruleset_id"`
	Items           []string                    `json:"items"`
	Recommendations []ruleengine.Recommendation `json:"recommendations"`
}
