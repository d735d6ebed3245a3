/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is shared by every provider adapter; the provider and model are
// recorded as dimensions.
const MeterName = "chainguard.dev/docscore/agents"

// GenAI counts provider token usage. A counter that cannot be created is
// replaced by a no-op so scoring never fails on metrics.
type GenAI struct {
	prompt     metric.Int64Counter
	completion metric.Int64Counter
	enrich     AttributeEnricher
}

// NewGenAI creates the token counters on the named meter. Attributes are
// enriched with EvaluationAttributes unless SetAttributeEnricher says otherwise.
func NewGenAI(meterName string) *GenAI {
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))
	return &GenAI{
		prompt:     tokenCounter(meter, meterName, "genai.token.prompt", "The number of prompt tokens sent to the provider"),
		completion: tokenCounter(meter, meterName, "genai.token.completion", "The number of completion tokens streamed back"),
		enrich:     EvaluationAttributes,
	}
}

func tokenCounter(meter metric.Meter, meterName, name, description string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("Failed to create token counter, metrics will be disabled", "error", err, "meter", meterName, "counter", name)
		return noop.Int64Counter{}
	}
	return c
}

// SetAttributeEnricher replaces the enricher called before each recording.
// A nil enricher records only the provider and model.
func (m *GenAI) SetAttributeEnricher(enricher AttributeEnricher) {
	m.enrich = enricher
}

// RecordTokens records the usage reported for one provider call.
func (m *GenAI) RecordTokens(ctx context.Context, provider, model string, promptTokens, completionTokens int64) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.String("model", model),
	}
	if m.enrich != nil {
		attrs = m.enrich(ctx, attrs)
	}
	opt := metric.WithAttributes(attrs...)
	m.prompt.Add(ctx, promptTokens, opt)
	m.completion.Add(ctx, completionTokens, opt)
}
