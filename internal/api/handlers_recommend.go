// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rulemine/internal/metrics"
	"github.com/tomtom215/rulemine/internal/ruleengine"
	"github.com/tomtom215/rulemine/internal/validation"
)

// Recommend runs a rule set against the posted basket.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body", nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondJSON(w, r, http.StatusBadRequest, &APIResponse{
			Status: statusError,
			Error:  &APIError{Code: apiErr.Code, Message: apiErr.Message, Details: apiErr.Details},
		})
		return
	}

	engine, id, err := h.engineFor(r.Context(), req.RuleSetID)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	recs, err := engine.Recommend(req.Items, req.Limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to evaluate rules", err)
		return
	}
	if recs == nil {
		recs = []ruleengine.Recommendation{}
	}
	metrics.RecordRecommendations(len(recs))

	respondData(w, r, RecommendResponse{
		RuleSetID:       id,
		Items:           req.Items,
		Recommendations: recs,
	})
}
