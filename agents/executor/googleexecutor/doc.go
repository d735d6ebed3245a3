/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package googleexecutor streams Gemini responses as an executor.Streamer.

The streamer works against either backend supported by google.golang.org/genai:

	// Gemini API
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
	    APIKey:  apiKey,
	    Backend: genai.BackendGeminiAPI,
	})

	// Vertex AI
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
	    Project:  projectID,
	    Location: region,
	    Backend:  genai.BackendVertexAI,
	})

	s, err := googleexecutor.New(client,
	    googleexecutor.WithModel("gemini-2.5-flash"),
	    googleexecutor.WithResponseSchema(verdictSchema),
	)

	for chunk, err := range s.Stream(ctx, prompt, system, executor.WithJSONOutput()) {
	    ...
	}

# JSON Output

When a call passes executor.WithJSONOutput, the request sets the
application/json response MIME type and, if one was configured, the response
schema. Otherwise the model answers in free text.

# Errors

API errors keep their HTTP code and status name (for example NOT_FOUND or
RESOURCE_EXHAUSTED). A 404 NOT_FOUND triggers the single fallback-model retry
handled by executor.Call. Thought parts are never emitted.
*/
package googleexecutor
