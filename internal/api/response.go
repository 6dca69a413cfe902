// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rulemine/internal/logging"
	"github.com/tomtom215/rulemine/internal/repository"
)

// APIResponse is the envelope for every JSON response.
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data,omitempty"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata carries response bookkeeping.
type Metadata struct {
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Count         *int      `json:"count,omitempty"`
}

// APIError is the error body of a failed request.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error codes
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

func respondJSON(w http.ResponseWriter, r *http.Request, status int, response *APIResponse) {
	response.Metadata.Timestamp = time.Now().UTC()
	response.Metadata.RequestID = logging.RequestIDFromContext(r.Context())
	response.Metadata.CorrelationID = logging.CorrelationIDFromContext(r.Context())

	data, err := json.Marshal(response)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondData(w http.ResponseWriter, r *http.Request, data any) {
	respondJSON(w, r, http.StatusOK, &APIResponse{Status: statusSuccess, Data: data})
}

func respondList[T any](w http.ResponseWriter, r *http.Request, items []T) {
	if items == nil {
		items = []T{}
	}
	count := len(items)
	respondJSON(w, r, http.StatusOK, &APIResponse{
		Status:   statusSuccess,
		Data:     items,
		Metadata: Metadata{Count: &count},
	})
}

// respondError writes an error envelope. err, when set, is logged and never
// sent to the client.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		logging.Ctx(r.Context()).Error().
			Str("code", code).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API error")
	}
	respondJSON(w, r, status, &APIResponse{
		Status: statusError,
		Error:  &APIError{Code: code, Message: message},
	})
}

// respondStoreError maps repository errors onto HTTP statuses.
func respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Rule set not found", nil)
	case errors.Is(err, repository.ErrInvalidID):
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid rule set id", nil)
	case errors.Is(err, repository.ErrClosed):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Rule set store unavailable", err)
	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to load rule set", err)
	}
}

// sanitizeLogValue strips line breaks so client-influenced text cannot forge
// log lines.
func sanitizeLogValue(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}
