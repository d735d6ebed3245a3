/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// AttributeEnricher adds contextual attributes to the base set (provider, model)
// before a metric is recorded.
type AttributeEnricher func(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue

type evaluationKey struct{}

type evaluationInfo struct {
	rubric string
	phase  string
}

// WithEvaluation records the rubric and phase of the running evaluation on the
// context so provider metrics can be broken down by them.
func WithEvaluation(ctx context.Context, rubric, phase string) context.Context {
	return context.WithValue(ctx, evaluationKey{}, evaluationInfo{rubric: rubric, phase: phase})
}

// EvaluationAttributes appends the rubric and phase stored by WithEvaluation.
// The evaluation id is deliberately left off to keep cardinality bounded.
func EvaluationAttributes(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	info, ok := ctx.Value(evaluationKey{}).(evaluationInfo)
	if !ok {
		return baseAttrs
	}
	return append(baseAttrs,
		attribute.String("rubric", info.rubric),
		attribute.String("phase", info.phase),
	)
}
