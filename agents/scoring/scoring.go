/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package scoring

import (
	"math"
)

const (
	// NeutralScore is assigned when no strategy finds a score.
	NeutralScore = 70
	// FailureScore is assigned when the provider could not be reached.
	FailureScore = 0

	// MinScore and MaxScore bound every accepted score.
	MinScore = 0
	MaxScore = 100
)

// UnparsedMarker prefixes the explanation of a response without a score.
const UnparsedMarker = "[WARNING: no score could be extracted from this response; a neutral score was assigned]"

// Strategy names the extraction path that produced a Result.
type Strategy string

const (
	StrategyStructured Strategy = "structured"
	StrategyEmbedded   Strategy = "embedded"
	StrategyLabeled    Strategy = "labeled"
	StrategyUnparsed   Strategy = "unparsed"
	StrategyAggregate  Strategy = "aggregate"
)

// Result is an extracted score. Score is always within [MinScore, MaxScore].
type Result struct {
	Score       int      `json:"score"`
	Explanation string   `json:"explanation"`
	Quotes      []string `json:"quotes,omitempty"`
	Strategy    Strategy `json:"strategy"`
	// Unparsed is set when Score is NeutralScore because nothing was found.
	Unparsed bool `json:"unparsed,omitempty"`
}

// Verdict is the JSON answer shape requested from providers.
type Verdict struct {
	Score       int      `json:"score" jsonschema:"required,minimum=0,maximum=100,description=Overall score from 0 to 100"`
	Explanation string   `json:"explanation" jsonschema:"required,description=Justification for the score grounded in the document"`
	Quotes      []string `json:"quotes,omitempty" jsonschema:"description=Short verbatim excerpts from the document that support the score"`
}

// Clamp rounds v to the nearest integer and bounds it to [MinScore, MaxScore].
func Clamp(v float64) int {
	if math.IsNaN(v) {
		return MinScore
	}
	return int(math.Max(MinScore, math.Min(MaxScore, math.Round(v))))
}
