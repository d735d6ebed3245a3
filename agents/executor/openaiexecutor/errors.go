/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiexecutor

import (
	"errors"

	"chainguard.dev/docscore/agents/executor"
	"github.com/openai/openai-go"
)

// wrapError converts SDK and transport errors into an executor.ProviderError.
func wrapError(model string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return executor.NewProviderError(executor.OpenAI, model, apiErr.StatusCode, apiErr.Code, err)
	}
	return executor.NewProviderError(executor.OpenAI, model, 0, "", err)
}
