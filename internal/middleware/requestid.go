// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package middleware

import (
	"net/http"

	"github.com/tomtom215/rulemine/internal/logging"
)

// Headers carrying the request and correlation IDs.
const (
	RequestIDHeader     = "X-Request-ID"
	CorrelationIDHeader = "X-Correlation-ID"
)

// maxRequestIDLength bounds IDs accepted from upstream proxies.
const maxRequestIDLength = 128

// RequestID reuses the caller's X-Request-ID and X-Correlation-ID when
// present, otherwise generates them. Both are echoed on the response and
// stored in the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if !acceptableID(requestID) {
			requestID = logging.GenerateRequestID()
		}
		ctx := logging.ContextWithRequestID(r.Context(), requestID)

		if correlationID := r.Header.Get(CorrelationIDHeader); acceptableID(correlationID) {
			ctx = logging.ContextWithCorrelationID(ctx, correlationID)
		} else {
			ctx = logging.ContextWithNewCorrelationID(ctx)
		}

		w.Header().Set(RequestIDHeader, requestID)
		w.Header().Set(CorrelationIDHeader, logging.CorrelationIDFromContext(ctx))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func acceptableID(id string) bool {
	return id != "" && len(id) <= maxRequestIDLength
}
