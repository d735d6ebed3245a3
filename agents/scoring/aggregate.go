/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package scoring

import (
	"fmt"
	"math"
	"strings"
)

// Segment is the outcome of scoring one document segment.
type Segment struct {
	Index    int    `json:"index"`
	Question string `json:"question,omitempty"`
	Result   Result `json:"result"`
	// Error is the provider failure text; Result is meaningless when set.
	Error string `json:"error,omitempty"`
}

// Valid reports whether the segment contributes to the average.
func (s Segment) Valid() bool {
	return s.Error == "" && !s.Result.Unparsed
}

// Aggregate averages the valid segment scores and joins every segment's
// explanation, error text included. With no valid segment the score is
// FailureScore if any segment failed, otherwise NeutralScore marked unparsed.
func Aggregate(segments []Segment) Result {
	var sum, valid int
	var failed bool
	var quotes []string
	parts := make([]string, 0, len(segments))

	for _, s := range segments {
		header := fmt.Sprintf("[Segment %d]", s.Index+1)
		if s.Question != "" {
			header += " " + s.Question
		}
		switch {
		case s.Error != "":
			failed = true
			parts = append(parts, fmt.Sprintf("%s\nERROR: %s", header, s.Error))
		default:
			parts = append(parts, fmt.Sprintf("%s\nScore: %d\n%s", header, s.Result.Score, s.Result.Explanation))
		}
		if s.Valid() {
			sum += s.Result.Score
			valid++
			quotes = append(quotes, s.Result.Quotes...)
		}
	}

	r := Result{
		Explanation: strings.Join(parts, "\n\n"),
		Quotes:      quotes,
		Strategy:    StrategyAggregate,
	}
	switch {
	case valid > 0:
		r.Score = Clamp(math.Round(float64(sum) / float64(valid)))
	case failed:
		r.Score = FailureScore
	default:
		r.Score = NeutralScore
		r.Unparsed = true
	}
	return r
}
