/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"encoding/json"
	"errors"

	"chainguard.dev/docscore/agents/executor"
	"github.com/anthropics/anthropic-sdk-go"
)

type errorPayload struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// wrapError converts SDK and transport errors into an executor.ProviderError,
// pulling the status and error type out of API responses.
func wrapError(model string, err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return executor.NewProviderError(executor.Anthropic, model, 0, "", err)
	}

	var code string
	if raw := apiErr.RawJSON(); raw != "" {
		var payload errorPayload
		if json.Unmarshal([]byte(raw), &payload) == nil {
			code = payload.Error.Type
		}
	}
	return executor.NewProviderError(executor.Anthropic, model, apiErr.StatusCode, code, err)
}
