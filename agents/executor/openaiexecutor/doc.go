/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package openaiexecutor streams chat-completion responses from OpenAI, or
// any endpoint compatible with its API, as an executor.Streamer.
//
//	client := openai.NewClient(
//	    option.WithAPIKey(apiKey),
//	    option.WithMaxRetries(0),
//	)
//	s, err := openaiexecutor.New(client, openaiexecutor.WithModel("gpt-4o"))
//
// Calls made with executor.WithJSONOutput request the json_object response
// format. A 404 with code model_not_found triggers the single fallback-model
// retry.
package openaiexecutor
