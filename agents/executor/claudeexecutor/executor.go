/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"context"
	"fmt"
	"iter"
	"time"

	"chainguard.dev/docscore/agents/executor"
	"chainguard.dev/docscore/agents/metrics"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
)

const (
	// DefaultModel is used when WithModel is not given.
	DefaultModel = "claude-sonnet-4-5"
	// DefaultFallbackModel is the known-good model tried once when the
	// configured one is rejected.
	DefaultFallbackModel = "claude-3-7-sonnet-latest"
)

// streamer is the Claude implementation of executor.Streamer.
type streamer struct {
	client        anthropic.Client
	model         string
	fallbackModel string
	maxTokens     int64
	temperature   float64
	timeout       time.Duration
	genaiMetrics  *metrics.GenAI
}

// New creates a Claude streamer. The client should be constructed with
// option.WithMaxRetries(0); the only automatic retry is the model fallback.
func New(client anthropic.Client, opts ...Option) (executor.Streamer, error) {
	s := &streamer{
		client:        client,
		model:         DefaultModel,
		fallbackModel: DefaultFallbackModel,
		maxTokens:     8192,
		temperature:   0.1,
		timeout:       executor.DefaultTimeout,
		genaiMetrics:  metrics.NewGenAI(metrics.MeterName),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return s, nil
}

// Stream implements executor.Streamer.
func (s *streamer) Stream(ctx context.Context, prompt, system string, _ ...executor.CallOption) iter.Seq2[string, error] {
	call := executor.Call{
		Provider:      executor.Anthropic,
		Model:         s.model,
		FallbackModel: s.fallbackModel,
		Timeout:       s.timeout,
	}
	return call.Stream(ctx, func(ctx context.Context, model string, emit func(string) bool) error {
		return s.stream(ctx, model, prompt, system, emit)
	})
}

func (s *streamer) stream(ctx context.Context, model, prompt, system string, emit func(string) bool) error {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: s.maxTokens,
		Messages: []anthropic.MessageParam{{
			Role: anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(prompt),
			},
		}},
		Temperature: anthropic.Float(s.temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	clog.FromContext(ctx).With("model", model).
		With("prompt_length", len(prompt)).
		Info("Streaming Claude response")

	stream := s.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	var msg anthropic.Message
	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return wrapError(model, fmt.Errorf("failed to accumulate event: %w", err))
		}
		if event.Type != "content_block_delta" {
			continue
		}
		delta := event.AsContentBlockDelta().Delta
		if delta.Type == "text_delta" && delta.Text != "" {
			if !emit(delta.Text) {
				return nil
			}
		}
	}
	if err := stream.Err(); err != nil {
		return wrapError(model, err)
	}

	if msg.Usage.InputTokens > 0 || msg.Usage.OutputTokens > 0 {
		s.genaiMetrics.RecordTokens(ctx, string(executor.Anthropic), model, msg.Usage.InputTokens, msg.Usage.OutputTokens)
	}
	return nil
}
