/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"fmt"

	"chainguard.dev/docscore/agents/executor"
	"chainguard.dev/docscore/agents/executor/claudeexecutor"
	"chainguard.dev/docscore/agents/executor/googleexecutor"
	"chainguard.dev/docscore/agents/executor/openaiexecutor"
	"chainguard.dev/docscore/agents/schema"
	"chainguard.dev/docscore/agents/scoring"
	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"google.golang.org/genai"
)

// newRegistry registers every provider that has credentials. Providers
// without credentials stay unregistered and are rejected at submission.
func newRegistry(ctx context.Context, cfg *config) (*executor.Registry, error) {
	reg := executor.NewRegistry()

	if s, err := newClaude(ctx, cfg); err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	} else if s != nil {
		if err := reg.Register(executor.Anthropic, s); err != nil {
			return nil, err
		}
	}
	if s, err := newGemini(ctx, cfg); err != nil {
		return nil, fmt.Errorf("google: %w", err)
	} else if s != nil {
		if err := reg.Register(executor.Google, s); err != nil {
			return nil, err
		}
	}
	if s, err := newOpenAI(cfg); err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	} else if s != nil {
		if err := reg.Register(executor.OpenAI, s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func newClaude(ctx context.Context, cfg *config) (executor.Streamer, error) {
	// The only automatic retry is the fallback model.
	opts := []anthropicoption.RequestOption{anthropicoption.WithMaxRetries(0)}
	switch {
	case cfg.AnthropicAPIKey != "":
		opts = append(opts, anthropicoption.WithAPIKey(cfg.AnthropicAPIKey))
	case cfg.GCPProjectID != "":
		opts = append(opts, vertex.WithGoogleAuth(ctx, cfg.GCPRegion, cfg.GCPProjectID))
		clog.InfoContextf(ctx, "Using Vertex AI for Claude in project %s", cfg.GCPProjectID)
	default:
		return nil, nil
	}

	return claudeexecutor.New(anthropic.NewClient(opts...),
		claudeexecutor.WithModel(cfg.ClaudeModel),
		claudeexecutor.WithFallbackModel(cfg.ClaudeFallbackModel),
		claudeexecutor.WithTimeout(cfg.ProviderTimeout),
	)
}

func newGemini(ctx context.Context, cfg *config) (executor.Streamer, error) {
	cc := &genai.ClientConfig{}
	switch {
	case cfg.GeminiAPIKey != "":
		cc.APIKey = cfg.GeminiAPIKey
		cc.Backend = genai.BackendGeminiAPI
	case cfg.GCPProjectID != "":
		cc.Project = cfg.GCPProjectID
		cc.Location = cfg.GCPRegion
		cc.Backend = genai.BackendVertexAI
	default:
		return nil, nil
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	return googleexecutor.New(client,
		googleexecutor.WithModel(cfg.GeminiModel),
		googleexecutor.WithFallbackModel(cfg.GeminiFallbackModel),
		googleexecutor.WithResponseSchema(schema.GenAI(schema.ReflectType[scoring.Verdict]())),
		googleexecutor.WithTimeout(cfg.ProviderTimeout),
	)
}

func newOpenAI(cfg *config) (executor.Streamer, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, nil
	}
	client := openai.NewClient(
		openaioption.WithAPIKey(cfg.OpenAIAPIKey),
		openaioption.WithMaxRetries(0),
	)
	return openaiexecutor.New(client,
		openaiexecutor.WithModel(cfg.OpenAIModel),
		openaiexecutor.WithFallbackModel(cfg.OpenAIFallbackModel),
		openaiexecutor.WithTimeout(cfg.ProviderTimeout),
	)
}
