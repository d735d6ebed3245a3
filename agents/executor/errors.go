/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package executor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrProviderUnavailable matches every *ProviderError via errors.Is.
var ErrProviderUnavailable = errors.New("provider unavailable")

// Reason categorizes a provider failure.
type Reason string

const (
	ReasonRateLimit        Reason = "rate_limit"
	ReasonAuth             Reason = "auth"
	ReasonTimeout          Reason = "timeout"
	ReasonServerError      Reason = "server_error"
	ReasonInvalidRequest   Reason = "invalid_request"
	ReasonModelUnavailable Reason = "model_unavailable"
	ReasonUnknown          Reason = "unknown"
)

// ProviderError is a transport-level failure talking to a vendor.
type ProviderError struct {
	Reason   Reason
	Provider ProviderID
	Model    string
	// Status is the HTTP status code, or 0 when no response was received.
	Status int
	// Code is the vendor's error code or type, when it reported one.
	Code  string
	Cause error
}

func (e *ProviderError) Error() string {
	parts := []string{fmt.Sprintf("[%s]", e.Reason), string(e.Provider)}
	if e.Model != "" {
		parts = append(parts, "model="+e.Model)
	}
	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}
	if e.Code != "" {
		parts = append(parts, "code="+e.Code)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, " ")
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is reports ErrProviderUnavailable for every provider error.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderUnavailable
}

// InvalidModel reports whether the vendor rejected the requested model.
func (e *ProviderError) InvalidModel() bool {
	return e.Reason == ReasonModelUnavailable
}

// NewProviderError classifies cause using the HTTP status and vendor code.
// A zero status falls back to inspecting the cause for timeouts.
func NewProviderError(provider ProviderID, model string, status int, code string, cause error) *ProviderError {
	return &ProviderError{
		Reason:   classify(status, code, cause),
		Provider: provider,
		Model:    model,
		Status:   status,
		Code:     code,
		Cause:    cause,
	}
}

// IsInvalidModel reports whether err is a ProviderError for an unknown or
// unavailable model.
func IsInvalidModel(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.InvalidModel()
}

func classify(status int, code string, cause error) Reason {
	lc := strings.ToLower(code)
	switch {
	case lc == "model_not_found" || (status == http.StatusNotFound && (lc == "not_found_error" || lc == "not_found")):
		return ReasonModelUnavailable
	case status == http.StatusTooManyRequests:
		return ReasonRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ReasonAuth
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ReasonTimeout
	case status >= 500:
		return ReasonServerError
	case status >= 400:
		return ReasonInvalidRequest
	}
	if cause != nil && (errors.Is(cause, context.DeadlineExceeded) || strings.Contains(strings.ToLower(cause.Error()), "timeout")) {
		return ReasonTimeout
	}
	return ReasonUnknown
}

// ConfigurationError reports a provider that cannot be used at all, such as
// one with missing credentials.
type ConfigurationError struct {
	Provider ProviderID
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider %q: %s", e.Provider, e.Reason)
}
