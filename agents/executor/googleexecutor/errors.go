/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor

import (
	"errors"
	"net/http"
	"strings"

	"chainguard.dev/docscore/agents/executor"
	"google.golang.org/genai"
)

// wrapError converts genai errors into an executor.ProviderError. API errors
// carry their HTTP code and status name; anything else is classified from
// the message text, since the Vertex transport does not always surface a
// structured error.
func wrapError(model string, err error) error {
	var pe *executor.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	if apiErr, ok := asAPIError(err); ok {
		return executor.NewProviderError(executor.Google, model, apiErr.Code, apiErr.Status, err)
	}
	return executor.NewProviderError(executor.Google, model, statusFromMessage(err), "", err)
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

// statusFromMessage infers an HTTP status for transient Vertex AI failures
// that arrive as plain errors.
func statusFromMessage(err error) int {
	if err == nil {
		return 0
	}
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "Resource exhausted"),
		strings.Contains(errStr, "429"),
		strings.Contains(errStr, "RESOURCE_EXHAUSTED"),
		strings.Contains(errStr, "rate limit"),
		strings.Contains(errStr, "quota exceeded"):
		return http.StatusTooManyRequests
	case strings.Contains(errStr, "Overloaded"),
		strings.Contains(errStr, "503"),
		strings.Contains(errStr, "UNAVAILABLE"):
		return http.StatusServiceUnavailable
	case strings.Contains(errStr, "Internal error"),
		strings.Contains(errStr, "server error"):
		return http.StatusInternalServerError
	}
	return 0
}
