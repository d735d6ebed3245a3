/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package judge orchestrates document evaluations.
//
// An evaluation always runs an initial phase. In multi mode, an initial
// score below the calibration threshold enters a fixed escalation ladder:
//
//	Phase 1 (initial) -> Phase 2 (pushback) -> Phase 3 (recalibration) -> Phase 4 (final validation)
//
// Once entered the ladder runs to the end; the threshold is not checked
// again. Every later prompt carries only the immediately preceding score.
//
// Provider failures never escape Evaluate. The ladder stops, a failed phase
// scored scoring.FailureScore is appended and Outcome.Failed is set, so the
// final score of a failed evaluation is always the failure sentinel.
//
// When a request selects segments, each selected paragraph gets its own
// initial phase, paired with a rubric question, and the segment scores are
// averaged into a single phase-1 result.
//
// # Usage
//
//	j, err := judge.New(registry, catalog,
//		judge.WithPublisher(relay),
//		judge.WithPhaseHook(persist),
//	)
//	outcome, err := j.Evaluate(ctx, &judge.Request{
//		EvaluationID:   id,
//		Document:       text,
//		AssessmentType: "academic",
//		Mode:           judge.ModeMulti,
//		Provider:       executor.Anthropic,
//	})
package judge
