/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judge

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"chainguard.dev/docscore/agents/executor"
	"chainguard.dev/docscore/agents/metrics"
	"chainguard.dev/docscore/agents/prompts"
	"chainguard.dev/docscore/agents/rubric"
	"chainguard.dev/docscore/agents/scoring"
	"chainguard.dev/docscore/progress"
	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "chainguard.dev/docscore/agents/judge"

// Judge runs evaluations. It holds no per-evaluation state and may be used
// concurrently.
type Judge struct {
	providers *executor.Registry
	catalog   *rubric.Catalog
	assembler *prompts.Assembler

	threshold          int
	segmentConcurrency int
	publisher          Publisher
	hooks              []PhaseHook
}

// New creates a Judge that streams from providers and assembles prompts
// from catalog.
func New(providers *executor.Registry, catalog *rubric.Catalog, opts ...Option) (*Judge, error) {
	if providers == nil || catalog == nil {
		return nil, errors.New("providers and catalog are required")
	}
	assembler, err := prompts.New(catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt assembler: %w", err)
	}
	j := &Judge{
		providers:          providers,
		catalog:            catalog,
		assembler:          assembler,
		threshold:          DefaultCalibrationThreshold,
		segmentConcurrency: DefaultSegmentConcurrency,
		publisher:          discard{},
	}
	for _, opt := range opts {
		if err := opt(j); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return j, nil
}

// Catalog returns the rubric catalogue the Judge assembles prompts from.
func (j *Judge) Catalog() *rubric.Catalog {
	return j.catalog
}

// Validate checks req without contacting a provider. It returns a
// *RequestError for malformed input and an *executor.ConfigurationError when
// the provider is known but not configured.
func (j *Judge) Validate(req *Request) error {
	if req == nil {
		return &RequestError{Field: "request", Message: "is required"}
	}
	if strings.TrimSpace(req.Document) == "" {
		return &RequestError{Field: "documentText", Message: "must not be empty"}
	}
	if _, ok := j.catalog.Get(req.AssessmentType); !ok {
		return &RequestError{
			Field:   "assessmentType",
			Message: fmt.Sprintf("unknown assessment type %q, expected one of %s", req.AssessmentType, strings.Join(j.catalog.IDs(), ", ")),
		}
	}
	if req.Mode != ModeSingle && req.Mode != ModeMulti {
		return &RequestError{Field: "assessmentMode", Message: fmt.Sprintf("unknown mode %q, expected single or multi", req.Mode)}
	}
	if !slices.Contains(executor.Providers(), req.Provider) {
		return &RequestError{Field: "providerId", Message: fmt.Sprintf("unknown provider %q", req.Provider)}
	}
	if len(req.Segments) > 0 {
		n := len(prompts.Segment(req.Document))
		seen := make(map[int]bool, len(req.Segments))
		for _, idx := range req.Segments {
			switch {
			case idx < 0 || idx >= n:
				return &RequestError{Field: "selectedSegments", Message: fmt.Sprintf("segment %d out of range, the document has %d", idx, n)}
			case seen[idx]:
				return &RequestError{Field: "selectedSegments", Message: fmt.Sprintf("segment %d selected twice", idx)}
			}
			seen[idx] = true
		}
	}
	if _, err := j.providers.Lookup(req.Provider); err != nil {
		return err
	}
	return nil
}

// Evaluate scores req.Document. The only errors returned are those of
// Validate; provider failures are recorded in the Outcome with
// scoring.FailureScore as the final score.
func (j *Judge) Evaluate(ctx context.Context, req *Request) (*Outcome, error) {
	if err := j.Validate(req); err != nil {
		return nil, err
	}
	r, _ := j.catalog.Get(req.AssessmentType)
	streamer, err := j.providers.Lookup(req.Provider)
	if err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer(tracerName, oteltrace.WithInstrumentationVersion("1.0.0")).
		Start(ctx, "docscore.evaluate", oteltrace.WithAttributes(
			attribute.String("evaluation.id", req.EvaluationID),
			attribute.String("evaluation.rubric", r.ID),
			attribute.String("evaluation.mode", string(req.Mode)),
			attribute.String("evaluation.provider", string(req.Provider)),
			attribute.Int("evaluation.segments", len(req.Segments)),
		))
	defer span.End()

	e := &evaluation{judge: j, req: req, rubric: r, streamer: streamer, outcome: &Outcome{}}
	if len(req.Segments) > 0 {
		e.runSegments(ctx)
	} else {
		e.runLadder(ctx)
	}

	o := e.outcome
	result := "success"
	if o.Failed {
		result = "failed"
		span.SetStatus(codes.Error, o.Error)
	}
	span.SetAttributes(attribute.Int("evaluation.final_score", o.FinalScore))
	evaluationsTotal.WithLabelValues(string(req.Provider), string(req.Mode), result).Inc()
	finalScore.Observe(float64(o.FinalScore))

	clog.FromContext(ctx).With("evaluation_id", req.EvaluationID).
		With("score", o.FinalScore).
		With("phases", len(o.Phases)).
		With("failed", o.Failed).
		Info("Evaluation finished")
	return o, nil
}

// evaluation is the state of one Evaluate call.
type evaluation struct {
	judge    *Judge
	req      *Request
	rubric   rubric.Rubric
	streamer executor.Streamer
	outcome  *Outcome
}

// runLadder executes phase 1 over the whole document and then escalates.
func (e *evaluation) runLadder(ctx context.Context) {
	res := e.runPhase(ctx, phaseInput{phase: prompts.PhaseInitial, document: e.req.Document})
	e.record(ctx, res)
	e.escalate(ctx, res, e.req.Document)
}

// escalate runs phases 2 through 4 over document when the request is in
// multi mode and the phase-1 result succeeded below the threshold. Each
// later prompt sees only the preceding score.
func (e *evaluation) escalate(ctx context.Context, initial PhaseResult, document string) {
	if initial.Failed || e.req.Mode == ModeSingle || initial.Score >= e.judge.threshold {
		return
	}
	for phase := prompts.PhasePushback; phase <= prompts.LastPhase; phase++ {
		prior := e.outcome.FinalScore
		res := e.runPhase(ctx, phaseInput{phase: phase, document: document, prior: &prior})
		e.record(ctx, res)
		if res.Failed {
			return
		}
	}
}

// runSegments scores each selected segment with an initial phase and
// records their aggregate as phase 1. Escalation then runs over the
// selected segments as one text.
func (e *evaluation) runSegments(ctx context.Context) {
	paragraphs := prompts.Segment(e.req.Document)
	segments := make([]scoring.Segment, len(e.req.Segments))
	raws := make([]string, len(e.req.Segments))
	selected := make([]string, 0, len(e.req.Segments))

	var g errgroup.Group
	g.SetLimit(e.judge.segmentConcurrency)
	for i, idx := range e.req.Segments {
		selected = append(selected, paragraphs[idx])
		in := phaseInput{phase: prompts.PhaseInitial, document: paragraphs[idx], segment: &idx}
		if qs := e.rubric.Questions; len(qs) > 0 {
			q := idx % len(qs)
			in.question, in.questionIndex = qs[q], &q
		}
		g.Go(func() error {
			res := e.runPhase(ctx, in)
			segments[i] = scoring.Segment{Index: idx, Question: in.question, Result: res.result(), Error: res.Error}
			raws[i] = fmt.Sprintf("--- Segment %d ---\n%s", idx+1, strings.TrimSpace(res.Raw))
			return nil
		})
	}
	_ = g.Wait()

	agg := scoring.Aggregate(segments)
	pr := PhaseResult{
		Phase:       prompts.PhaseInitial,
		Name:        prompts.PhaseInitial.Title(),
		Raw:         strings.Join(raws, "\n\n"),
		Score:       agg.Score,
		Explanation: agg.Explanation,
		Quotes:      agg.Quotes,
		Strategy:    agg.Strategy,
		Unparsed:    agg.Unparsed,
	}
	if err := segmentFailure(segments); err != "" {
		pr.Failed = true
		pr.Error = err
	}
	e.outcome.Segments = segments
	e.record(ctx, pr)
	e.escalate(ctx, pr, strings.Join(selected, "\n\n"))
}

// segmentFailure returns the first provider error when no segment produced
// a usable score.
func segmentFailure(segments []scoring.Segment) string {
	var first string
	for _, s := range segments {
		if s.Valid() {
			return ""
		}
		if first == "" {
			first = s.Error
		}
	}
	return first
}

func (e *evaluation) record(ctx context.Context, pr PhaseResult) {
	e.outcome.append(pr)
	for _, hook := range e.judge.hooks {
		hook(ctx, e.req.EvaluationID, e.outcome.clone())
	}
}

type phaseInput struct {
	phase         prompts.Phase
	document      string
	prior         *int
	question      string
	segment       *int
	questionIndex *int
}

// runPhase assembles, streams and scores one phase. It never fails: a
// provider error becomes a failed PhaseResult.
func (e *evaluation) runPhase(ctx context.Context, in phaseInput) PhaseResult {
	log := clog.FromContext(ctx).With("evaluation_id", e.req.EvaluationID).With("phase", int(in.phase))
	pr := PhaseResult{Phase: in.phase, Name: in.phase.Title()}

	fail := func(err error) PhaseResult {
		pr.Score = scoring.FailureScore
		pr.Failed = true
		pr.Error = err.Error()
		pr.Explanation = "The provider failed before a score was produced: " + err.Error()
		log.With("error", err).Warn("Phase failed")
		return pr
	}

	assembled, err := e.judge.assembler.Assemble(prompts.Input{
		Document:   in.document,
		Rubric:     e.rubric,
		Phase:      in.phase,
		PriorScore: in.prior,
		Question:   in.question,
	})
	if err != nil {
		return fail(fmt.Errorf("assembling prompt: %w", err))
	}

	ctx = metrics.WithEvaluation(ctx, e.rubric.ID, in.phase.String())
	ctx, span := otel.Tracer(tracerName, oteltrace.WithInstrumentationVersion("1.0.0")).
		Start(ctx, "docscore.phase", oteltrace.WithAttributes(
			attribute.Int("phase.number", int(in.phase)),
			attribute.String("phase.name", in.phase.String()),
			attribute.Int("prompt.length", len(assembled.Text)),
		))
	defer span.End()
	phasesTotal.WithLabelValues(in.phase.String()).Inc()

	var opts []executor.CallOption
	if assembled.Format == rubric.FormatJSON {
		opts = append(opts, executor.WithJSONOutput())
	}

	var buf strings.Builder
	for chunk, err := range e.streamer.Stream(ctx, assembled.Text, assembled.System, opts...) {
		if err != nil {
			pr.Raw = buf.String()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fail(err)
		}
		buf.WriteString(chunk)
		e.judge.publisher.Publish(e.req.EvaluationID, progress.Event{
			Type:     progress.TypeProgress,
			Phase:    int(in.phase),
			Delta:    chunk,
			Segment:  in.segment,
			Question: in.questionIndex,
		})
	}

	pr.Raw = buf.String()
	res := scoring.Extract(ctx, pr.Raw, assembled.Format)
	pr.Score = res.Score
	pr.Explanation = res.Explanation
	pr.Quotes = res.Quotes
	pr.Strategy = res.Strategy
	pr.Unparsed = res.Unparsed

	span.SetAttributes(
		attribute.Int("phase.score", res.Score),
		attribute.String("phase.strategy", string(res.Strategy)),
	)
	log.With("score", res.Score).With("strategy", string(res.Strategy)).Info("Phase complete")
	return pr
}
