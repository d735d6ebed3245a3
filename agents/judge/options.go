/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judge

import (
	"context"
	"fmt"
)

// DefaultCalibrationThreshold is the phase-1 score at or above which the
// escalation ladder is skipped.
const DefaultCalibrationThreshold = 95

// DefaultSegmentConcurrency bounds concurrent segment evaluations.
const DefaultSegmentConcurrency = 4

// PhaseHook observes the partial outcome after every phase. It receives a
// copy and runs on the evaluating goroutine.
type PhaseHook func(ctx context.Context, evaluationID string, partial *Outcome)

// Option configures a Judge.
type Option func(*Judge) error

// WithCalibrationThreshold overrides DefaultCalibrationThreshold.
func WithCalibrationThreshold(threshold int) Option {
	return func(j *Judge) error {
		if threshold < 0 || threshold > 100 {
			return fmt.Errorf("calibration threshold must be between 0 and 100, got %d", threshold)
		}
		j.threshold = threshold
		return nil
	}
}

// WithSegmentConcurrency overrides DefaultSegmentConcurrency.
func WithSegmentConcurrency(n int) Option {
	return func(j *Judge) error {
		if n <= 0 {
			return fmt.Errorf("segment concurrency must be positive, got %d", n)
		}
		j.segmentConcurrency = n
		return nil
	}
}

// WithPublisher sends streamed chunks to p.
func WithPublisher(p Publisher) Option {
	return func(j *Judge) error {
		if p == nil {
			return fmt.Errorf("publisher must not be nil")
		}
		j.publisher = p
		return nil
	}
}

// WithPhaseHook registers a hook called after each phase.
func WithPhaseHook(hook PhaseHook) Option {
	return func(j *Judge) error {
		j.hooks = append(j.hooks, hook)
		return nil
	}
}
