/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package claudeexecutor streams Claude responses through the Anthropic
// Messages API as an executor.Streamer.
//
// # Basic Usage
//
//	client := anthropic.NewClient(
//	    option.WithAPIKey(apiKey),
//	    option.WithMaxRetries(0),
//	)
//
//	s, err := claudeexecutor.New(client,
//	    claudeexecutor.WithModel("claude-sonnet-4-5"),
//	    claudeexecutor.WithFallbackModel("claude-3-7-sonnet-latest"),
//	    claudeexecutor.WithTimeout(90*time.Second),
//	)
//	if err != nil {
//	    return err
//	}
//
//	for chunk, err := range s.Stream(ctx, prompt, system) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(chunk)
//	}
//
// Vertex AI hosted models are reached by constructing the client with
// vertex.WithGoogleAuth instead of an API key.
//
// # Errors
//
// Every failure is an *executor.ProviderError carrying the HTTP status and the
// Anthropic error type. A not_found_error for the requested model triggers one
// retry against the fallback model, provided no text has been streamed yet.
package claudeexecutor
