/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor

import (
	"context"
	"fmt"
	"iter"
	"time"

	"chainguard.dev/docscore/agents/executor"
	"chainguard.dev/docscore/agents/metrics"
	"github.com/chainguard-dev/clog"
	"google.golang.org/genai"
)

const (
	// DefaultModel is used when WithModel is not given.
	DefaultModel = "gemini-2.5-flash"
	// DefaultFallbackModel is tried once when the configured model is rejected.
	DefaultFallbackModel = "gemini-2.0-flash"
)

// streamer is the Gemini implementation of executor.Streamer.
type streamer struct {
	client          *genai.Client
	model           string
	fallbackModel   string
	temperature     float32
	maxOutputTokens int32
	responseSchema  *genai.Schema // used in JSON mode only
	timeout         time.Duration
	genaiMetrics    *metrics.GenAI
}

// New creates a Gemini streamer backed by either the Gemini API or Vertex AI,
// depending on how client was configured.
func New(client *genai.Client, opts ...Option) (executor.Streamer, error) {
	if client == nil {
		return nil, fmt.Errorf("genai client is required")
	}
	s := &streamer{
		client:          client,
		model:           DefaultModel,
		fallbackModel:   DefaultFallbackModel,
		temperature:     0.1,
		maxOutputTokens: 8192,
		timeout:         executor.DefaultTimeout,
		genaiMetrics:    metrics.NewGenAI(metrics.MeterName),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return s, nil
}

// Stream implements executor.Streamer.
func (s *streamer) Stream(ctx context.Context, prompt, system string, opts ...executor.CallOption) iter.Seq2[string, error] {
	settings := executor.ResolveCallOptions(opts...)
	call := executor.Call{
		Provider:      executor.Google,
		Model:         s.model,
		FallbackModel: s.fallbackModel,
		Timeout:       s.timeout,
	}
	return call.Stream(ctx, func(ctx context.Context, model string, emit func(string) bool) error {
		return s.stream(ctx, model, prompt, s.config(system, settings), emit)
	})
}

func (s *streamer) config(system string, settings executor.CallSettings) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature:     ptr(s.temperature),
		MaxOutputTokens: s.maxOutputTokens,
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if settings.JSONOutput {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = s.responseSchema
	}
	return config
}

func (s *streamer) stream(ctx context.Context, model, prompt string, config *genai.GenerateContentConfig, emit func(string) bool) error {
	clog.FromContext(ctx).With("model", model).
		With("prompt_length", len(prompt)).
		With("json_output", config.ResponseMIMEType != "").
		Info("Streaming Gemini response")

	var usage *genai.GenerateContentResponseUsageMetadata
	for resp, err := range s.client.Models.GenerateContentStream(ctx, model, genai.Text(prompt), config) {
		if err != nil {
			return wrapError(model, err)
		}
		if resp == nil {
			continue
		}
		if resp.UsageMetadata != nil {
			usage = resp.UsageMetadata
		}
		for _, candidate := range resp.Candidates {
			if candidate == nil || candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part == nil || part.Thought || part.Text == "" {
					continue
				}
				if !emit(part.Text) {
					return nil
				}
			}
		}
	}

	if usage != nil {
		s.genaiMetrics.RecordTokens(ctx, string(executor.Google), model, int64(usage.PromptTokenCount), int64(usage.CandidatesTokenCount))
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
