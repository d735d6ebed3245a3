/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"fmt"
	"strings"
	"time"

	"chainguard.dev/docscore/agents/metrics"
)

// Option is a functional option for configuring the streamer
type Option func(*streamer) error

// WithMaxTokens sets the maximum tokens for responses
func WithMaxTokens(tokens int64) Option {
	return func(s *streamer) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		if tokens > 32000 {
			return fmt.Errorf("max tokens %d exceeds maximum of 32000", tokens)
		}
		s.maxTokens = tokens
		return nil
	}
}

// WithTemperature sets the temperature for responses.
// Claude models accept values from 0.0 to 1.0.
func WithTemperature(temp float64) Option {
	return func(s *streamer) error {
		if temp < 0.0 || temp > 1.0 {
			return fmt.Errorf("temperature must be between 0.0 and 1.0, got %f", temp)
		}
		s.temperature = temp
		return nil
	}
}

// WithModel overrides the primary model
func WithModel(model string) Option {
	return func(s *streamer) error {
		if err := validateModel(model); err != nil {
			return err
		}
		s.model = model
		return nil
	}
}

// WithFallbackModel sets the model tried once when the primary model is
// rejected. An empty string disables the fallback.
func WithFallbackModel(model string) Option {
	return func(s *streamer) error {
		if model == "" {
			s.fallbackModel = ""
			return nil
		}
		if err := validateModel(model); err != nil {
			return err
		}
		s.fallbackModel = model
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

func validateModel(model string) error {
	if !strings.HasPrefix(model, "claude-") {
		return fmt.Errorf("model %q does not appear to be a Claude model (expected claude-* format)", model)
	}
	return nil
}
