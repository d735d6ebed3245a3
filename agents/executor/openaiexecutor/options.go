/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiexecutor

import (
	"errors"
	"fmt"
	"time"

	"chainguard.dev/docscore/agents/metrics"
)

// Option is a functional option for configuring the streamer
type Option func(*streamer) error

// WithModel overrides the primary model. No prefix is enforced because
// compatible endpoints use their own model names.
func WithModel(model string) Option {
	return func(s *streamer) error {
		if model == "" {
			return errors.New("model cannot be empty")
		}
		s.model = model
		return nil
	}
}

// WithFallbackModel sets the model tried once when the primary model is
// rejected. An empty string disables the fallback.
func WithFallbackModel(model string) Option {
	return func(s *streamer) error {
		s.fallbackModel = model
		return nil
	}
}

// WithMaxTokens sets the maximum completion tokens
func WithMaxTokens(tokens int64) Option {
	return func(s *streamer) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		s.maxTokens = tokens
		return nil
	}
}

// WithTemperature sets the sampling temperature (0.0 to 2.0).
func WithTemperature(temp float64) Option {
	return func(s *streamer) error {
		if temp < 0.0 || temp > 2.0 {
			return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", temp)
		}
		s.temperature = temp
		return nil
	}
}

// WithTimeout bounds each Stream call
func WithTimeout(d time.Duration) Option {
	return func(s *streamer) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		s.timeout = d
		return nil
	}
}

// WithAttributeEnricher replaces the attribute enricher used for token metrics.
func WithAttributeEnricher(enricher metrics.AttributeEnricher) Option {
	return func(s *streamer) error {
		s.genaiMetrics.SetAttributeEnricher(enricher)
		return nil
	}
}
