/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package scoring

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"chainguard.dev/docscore/agents/rubric"
	"github.com/chainguard-dev/clog"
)

var (
	overallScoreRE = regexp.MustCompile(`(?i)overall\s+score\s*\**\s*:\s*\**\s*(-?\d+(?:\.\d+)?)`)
	scoreRE        = regexp.MustCompile(`(?i)\bscore\s*\**\s*:\s*\**\s*(-?\d+(?:\.\d+)?)`)
)

type strategyFunc func(raw string) (Result, bool)

// Extract derives a score from a provider response. It never fails: when no
// strategy finds a score the result carries NeutralScore, the Unparsed flag
// and UnparsedMarker, and a diagnostic is logged and counted.
//
// Strategies run in order until one succeeds: a direct JSON parse when the
// text starts with '{' or '[', JSON embedded in prose or a ```json fence,
// then a labeled "OVERALL SCORE:" or "Score:" line. When expected is
// rubric.FormatLabeled the labeled line is tried first.
func Extract(ctx context.Context, raw string, expected rubric.Format) Result {
	order := []strategyFunc{extractStructured, extractEmbedded, extractLabeled}
	if expected == rubric.FormatLabeled {
		order = []strategyFunc{extractLabeled, extractStructured, extractEmbedded}
	}
	for _, strategy := range order {
		if r, ok := strategy(raw); ok {
			return r
		}
	}

	clog.FromContext(ctx).With("format", expected).
		With("response_length", len(raw)).
		Warn("No score found in provider response, assigning neutral score")
	unparsedResponses.WithLabelValues(string(expected)).Inc()

	return Result{
		Score:       NeutralScore,
		Explanation: UnparsedMarker + "\n\n" + strings.TrimSpace(raw),
		Strategy:    StrategyUnparsed,
		Unparsed:    true,
	}
}

func extractStructured(raw string) (Result, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return Result{}, false
	}
	v, ok := decode(trimmed)
	if !ok {
		return Result{}, false
	}
	r, ok := structured(v, raw)
	r.Strategy = StrategyStructured
	return r, ok
}

func extractEmbedded(raw string) (Result, bool) {
	var candidates []string
	if body, ok := fencedJSON(raw); ok {
		candidates = append(candidates, body)
	}
	if span, ok := braceSpan(raw); ok {
		candidates = append(candidates, span)
	}
	for _, c := range candidates {
		v, ok := decode(c)
		if !ok {
			continue
		}
		if r, ok := structured(v, raw); ok {
			r.Strategy = StrategyEmbedded
			return r, true
		}
	}
	return Result{}, false
}

// extractLabeled prefers the last "OVERALL SCORE:" over any "Score:" line,
// so per-question scores followed by an overall score yield the overall one.
func extractLabeled(raw string) (Result, bool) {
	for _, re := range []*regexp.Regexp{overallScoreRE, scoreRE} {
		matches := re.FindAllStringSubmatch(raw, -1)
		if len(matches) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(matches[len(matches)-1][1], 64)
		if err != nil {
			continue
		}
		return Result{
			Score:       Clamp(v),
			Explanation: strings.TrimSpace(raw),
			Strategy:    StrategyLabeled,
		}, true
	}
	return Result{}, false
}
