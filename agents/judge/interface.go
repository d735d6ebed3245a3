/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judge

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"chainguard.dev/docscore/agents/executor"
	"chainguard.dev/docscore/agents/prompts"
	"chainguard.dev/docscore/agents/scoring"
	"chainguard.dev/docscore/progress"
)

// Mode selects how far an evaluation may escalate.
type Mode string

const (
	// ModeSingle runs the initial phase only.
	ModeSingle Mode = "single"
	// ModeMulti enters the escalation ladder when the initial score is
	// below the calibration threshold.
	ModeMulti Mode = "multi"
)

// Modes returns the accepted assessment modes.
func Modes() []Mode {
	return []Mode{ModeSingle, ModeMulti}
}

// Request is one document evaluation. It is not modified by the Judge.
type Request struct {
	// EvaluationID keys progress events and log lines.
	EvaluationID string `json:"evaluationId"`

	// Document is the plain text being assessed.
	Document string `json:"documentText"`

	// AssessmentType is the rubric id.
	AssessmentType string `json:"assessmentType"`

	Mode     Mode                `json:"assessmentMode"`
	Provider executor.ProviderID `json:"providerId"`

	// Segments selects paragraph indices to score independently. When set
	// the evaluation runs one initial phase per segment.
	Segments []int `json:"selectedSegments,omitempty"`
}

// ErrInvalidRequest matches every *RequestError.
var ErrInvalidRequest = errors.New("invalid evaluation request")

// RequestError reports a malformed Request. It is returned before any
// provider is contacted.
type RequestError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrInvalidRequest) hold.
func (e *RequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// PhaseResult is the outcome of one prompt-response round.
type PhaseResult struct {
	Phase prompts.Phase `json:"phase"`
	Name  string        `json:"name"`

	// Raw is the provider text as streamed, partial when Failed.
	Raw string `json:"raw"`

	Score       int              `json:"score"`
	Explanation string           `json:"explanation"`
	Quotes      []string         `json:"quotes,omitempty"`
	Strategy    scoring.Strategy `json:"strategy,omitempty"`
	Unparsed    bool             `json:"unparsed,omitempty"`

	// Failed marks a provider failure; Score is scoring.FailureScore.
	Failed bool   `json:"failed,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (pr PhaseResult) result() scoring.Result {
	return scoring.Result{
		Score:       pr.Score,
		Explanation: pr.Explanation,
		Quotes:      pr.Quotes,
		Strategy:    pr.Strategy,
		Unparsed:    pr.Unparsed,
	}
}

// Outcome is the result of an evaluation.
//
// PerPhaseScores always holds at least one score and FinalScore is its last
// element. Every score lies in [scoring.MinScore, scoring.MaxScore].
type Outcome struct {
	FinalScore     int           `json:"finalScore"`
	Transcript     string        `json:"transcript"`
	PerPhaseScores []int         `json:"perPhaseScores"`
	Phases         []PhaseResult `json:"phases"`

	Segments []scoring.Segment `json:"segments,omitempty"`

	Failed bool   `json:"failed,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Explanation returns the explanation of the last executed phase.
func (o *Outcome) Explanation() string {
	if o == nil || len(o.Phases) == 0 {
		return ""
	}
	return o.Phases[len(o.Phases)-1].Explanation
}

// Quotes returns the quotes of the last executed phase.
func (o *Outcome) Quotes() []string {
	if o == nil || len(o.Phases) == 0 {
		return nil
	}
	return o.Phases[len(o.Phases)-1].Quotes
}

func (o *Outcome) append(pr PhaseResult) {
	o.Phases = append(o.Phases, pr)
	o.PerPhaseScores = append(o.PerPhaseScores, pr.Score)
	o.FinalScore = pr.Score

	var sb strings.Builder
	sb.WriteString(o.Transcript)
	if sb.Len() > 0 {
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "=== Phase %d: %s ===\n", int(pr.Phase), pr.Name)
	sb.WriteString(strings.TrimSpace(pr.Raw))
	if pr.Failed {
		if pr.Raw != "" {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "ERROR: %s", pr.Error)
		o.Failed = true
		o.Error = pr.Error
	}
	o.Transcript = sb.String()
}

func (o *Outcome) clone() *Outcome {
	c := *o
	c.PerPhaseScores = slices.Clone(o.PerPhaseScores)
	c.Phases = slices.Clone(o.Phases)
	c.Segments = slices.Clone(o.Segments)
	return &c
}

// Publisher receives live progress for an evaluation.
type Publisher interface {
	Publish(evaluationID string, ev progress.Event)
}

type discard struct{}

func (discard) Publish(string, progress.Event) {}
