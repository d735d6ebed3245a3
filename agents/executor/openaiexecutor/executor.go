/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiexecutor

import (
	"context"
	"fmt"
	"iter"
	"time"

	"chainguard.dev/docscore/agents/executor"
	"chainguard.dev/docscore/agents/metrics"
	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

const (
	// DefaultModel is used when WithModel is not given.
	DefaultModel = "gpt-4o"
	// DefaultFallbackModel is tried once when the configured model is rejected.
	DefaultFallbackModel = "gpt-4o-mini"
)

// streamer is the OpenAI implementation of executor.Streamer.
type streamer struct {
	client        openai.Client
	model         string
	fallbackModel string
	maxTokens     int64
	temperature   float64
	timeout       time.Duration
	genaiMetrics  *metrics.GenAI
}

// New creates an OpenAI chat-completions streamer. Any endpoint that speaks
// the chat-completions protocol can be targeted with option.WithBaseURL.
func New(client openai.Client, opts ...Option) (executor.Streamer, error) {
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
func (s *streamer) Stream(ctx context.Context, prompt, system string, opts ...executor.CallOption) iter.Seq2[string, error] {
	settings := executor.ResolveCallOptions(opts...)
	call := executor.Call{
		Provider:      executor.OpenAI,
		Model:         s.model,
		FallbackModel: s.fallbackModel,
		Timeout:       s.timeout,
	}
	return call.Stream(ctx, func(ctx context.Context, model string, emit func(string) bool) error {
		return s.stream(ctx, s.params(model, prompt, system, settings), emit)
	})
}

func (s *streamer) params(model, prompt, system string, settings executor.CallSettings) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(s.maxTokens),
		Temperature:         openai.Float(s.temperature),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	if settings.JSONOutput {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	return params
}

func (s *streamer) stream(ctx context.Context, params openai.ChatCompletionNewParams, emit func(string) bool) error {
	model := string(params.Model)
	clog.FromContext(ctx).With("model", model).
		With("messages", len(params.Messages)).
		Info("Streaming OpenAI response")

	stream := s.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var acc openai.ChatCompletionAccumulator
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		if !emit(chunk.Choices[0].Delta.Content) {
			return nil
		}
	}
	if err := stream.Err(); err != nil {
		return wrapError(model, err)
	}

	if acc.Usage.PromptTokens > 0 || acc.Usage.CompletionTokens > 0 {
		s.genaiMetrics.RecordTokens(ctx, string(executor.OpenAI), model, acc.Usage.PromptTokens, acc.Usage.CompletionTokens)
	}
	return nil
}
