/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package executor

import (
	"context"
	"fmt"
	"iter"
	"time"

	"chainguard.dev/docscore/agents/executor/retry"
	"github.com/chainguard-dev/clog"
)

// DefaultTimeout bounds a single Stream call, fallback attempt included.
const DefaultTimeout = 90 * time.Second

// OpenFunc issues one request against model and passes each text fragment to
// emit. When emit returns false the consumer has gone away and OpenFunc should
// return promptly. Errors must already be *ProviderError values.
type OpenFunc func(ctx context.Context, model string, emit func(string) bool) error

// Call describes the models and time budget of one Stream call.
type Call struct {
	Provider      ProviderID
	Model         string
	FallbackModel string
	Timeout       time.Duration
}

// Stream runs open against the primary model. If the provider rejects the
// model before any text was produced, open is run exactly once more against
// the fallback model.
func (c Call) Stream(ctx context.Context, open OpenFunc) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if c.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.Timeout)
			defer cancel()
		}

		var delivered, stopped bool
		emit := func(s string) bool {
			if stopped {
				return false
			}
			delivered = true
			if !yield(s, nil) {
				stopped = true
				return false
			}
			return true
		}

		canFallback := func(err error) bool {
			return !delivered && c.FallbackModel != "" && c.FallbackModel != c.Model && IsInvalidModel(err)
		}

		operation := fmt.Sprintf("%s.stream", c.Provider)
		_, err := retry.Do(ctx, retry.FallbackConfig(), operation, canFallback, func(attempt int) (struct{}, error) {
			model := c.Model
			if attempt > 0 {
				model = c.FallbackModel
				clog.FromContext(ctx).With("provider", c.Provider).
					With("model", c.Model).
					With("fallback_model", model).
					Warn("Model rejected by provider, retrying with fallback model")
			}
			return struct{}{}, open(ctx, model, emit)
		})
		if stopped || err == nil {
			return
		}
		yield("", err)
	}
}
