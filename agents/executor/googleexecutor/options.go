/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor

import (
	"fmt"
	"strings"
	"time"

	"chainguard.dev/docscore/agents/metrics"
	"google.golang.org/genai"
)

// Option is a functional option for configuring the streamer
type Option func(*streamer) error

// WithModel sets the model to use for generation
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

// WithTemperature sets the temperature for generation.
// Gemini models support temperature values from 0.0 to 2.0.
func WithTemperature(temperature float32) Option {
	return func(s *streamer) error {
		if temperature < 0.0 || temperature > 2.0 {
			return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", temperature)
		}
		s.temperature = temperature
		return nil
	}
}

// WithMaxOutputTokens sets the maximum output tokens for generation
func WithMaxOutputTokens(tokens int32) Option {
	return func(s *streamer) error {
		if tokens <= 0 {
			return fmt.Errorf("max output tokens must be positive, got %d", tokens)
		}
		if tokens > 32768 {
			return fmt.Errorf("max output tokens %d exceeds maximum of 32768", tokens)
		}
		s.maxOutputTokens = tokens
		return nil
	}
}

// WithResponseSchema sets the schema sent alongside the JSON MIME type when a
// call requests JSON output.
func WithResponseSchema(schema *genai.Schema) Option {
	return func(s *streamer) error {
		s.responseSchema = schema
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

// WithAttributeEnricher sets a custom attribute enricher for token metrics.
func WithAttributeEnricher(enricher metrics.AttributeEnricher) Option {
	return func(s *streamer) error {
		s.genaiMetrics.SetAttributeEnricher(enricher)
		return nil
	}
}

func validateModel(model string) error {
	if !strings.HasPrefix(model, "gemini-") {
		return fmt.Errorf("model %q does not appear to be a Gemini model (expected gemini-* format)", model)
	}
	return nil
}
