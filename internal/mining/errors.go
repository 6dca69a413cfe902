// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package mining

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching.
var (
	// ErrInvalidConfiguration indicates thresholds outside their domain.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInsufficientData indicates an empty batch or an empty store at mining time.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUnsupportedAlgorithm indicates an algorithm tag with no engine.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
)

// ErrorCode identifies the kind of a MiningError.
type ErrorCode string

// Error codes, stable for API responses and logs.
const (
	CodeInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"
	CodeInsufficientData     ErrorCode = "INSUFFICIENT_DATA"
	CodeUnsupportedAlgorithm ErrorCode = "UNSUPPORTED_ALGORITHM"
)

// MiningError is the error type returned by the mining package.
type MiningError struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *MiningError) Error() string {
	return fmt.Sprintf("%s: %s", e.sentinel().Error(), e.Message)
}

// Is reports whether target is the sentinel matching this error's code.
func (e *MiningError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *MiningError) sentinel() error {
	switch e.Code {
	case CodeInvalidConfiguration:
		return ErrInvalidConfiguration
	case CodeInsufficientData:
		return ErrInsufficientData
	case CodeUnsupportedAlgorithm:
		return ErrUnsupportedAlgorithm
	default:
		return errors.New(string(e.Code))
	}
}

func invalidConfiguration(format string, args ...any) error {
	return &MiningError{Code: CodeInvalidConfiguration, Message: fmt.Sprintf(format, args...)}
}

func insufficientData(format string, args ...any) error {
	return &MiningError{Code: CodeInsufficientData, Message: fmt.Sprintf(format, args...)}
}

func unsupportedAlgorithm(alg Algorithm) error {
	return &MiningError{Code: CodeUnsupportedAlgorithm, Message: fmt.Sprintf("no engine for algorithm %q", alg.String())}
}

// CodeOf returns the ErrorCode carried by err, or "" when err is not a MiningError.
func CodeOf(err error) ErrorCode {
	var me *MiningError
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}
