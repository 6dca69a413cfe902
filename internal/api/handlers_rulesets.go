// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/rulemine/internal/logging"
	"github.com/tomtom215/rulemine/internal/validation"
)

// ListRuleSets returns rule-set summaries, newest first.
func (h *Handler) ListRuleSets(w http.ResponseWriter, r *http.Request) {
	req := ListRuleSetsRequest{Limit: defaultListLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "limit must be an integer", nil)
			return
		}
		req.Limit = limit
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	summaries, err := h.store.List(r.Context(), req.Limit)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondList(w, r, summaries)
}

// GetRuleSet returns one rule set with all its rules.
func (h *Handler) GetRuleSet(w http.ResponseWriter, r *http.Request) {
	rs, err := h.loadRuleSet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondData(w, r, rs)
}

// GetRuleSetGRL renders a rule set as GRL text.
func (h *Handler) GetRuleSetGRL(w http.ResponseWriter, r *http.Request) {
	rs, err := h.loadRuleSet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.grl.Write(&buf, rs.Rules); err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to render GRL", err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="`+rs.ID+`.grl"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("ruleset_id", rs.ID).Msg("Failed to write GRL response")
	}
}
