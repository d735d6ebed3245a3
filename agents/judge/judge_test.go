/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judge_test

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"testing"

	"chainguard.dev/docscore/agents/executor"
	"chainguard.dev/docscore/agents/judge"
	"chainguard.dev/docscore/agents/rubric"
	"chainguard.dev/docscore/agents/scoring"
	"chainguard.dev/docscore/progress"
	"github.com/google/go-cmp/cmp"
)

// reply is one scripted provider answer.
type reply struct {
	chunks []string
	err    error
}

func says(text string) reply {
	// Split in two so progress sees more than one delta.
	mid := len(text) / 2
	return reply{chunks: []string{text[:mid], text[mid:]}}
}

func fails(err error) reply {
	return reply{err: err}
}

// fakeStreamer answers calls from a script, in order, or from respond when set.
type fakeStreamer struct {
	mu      sync.Mutex
	script  []reply
	respond func(prompt string) reply
	prompts []string
	json    []bool
}

func (f *fakeStreamer) Stream(_ context.Context, prompt, _ string, opts ...executor.CallOption) iter.Seq2[string, error] {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.json = append(f.json, executor.ResolveCallOptions(opts...).JSONOutput)
	var r reply
	switch {
	case f.respond != nil:
		r = f.respond(prompt)
	case len(f.script) > 0:
		r, f.script = f.script[0], f.script[1:]
	default:
		r = fails(errors.New("unexpected call"))
	}
	f.mu.Unlock()

	return func(yield func(string, error) bool) {
		for _, c := range r.chunks {
			if !yield(c, nil) {
				return
			}
		}
		if r.err != nil {
			yield("", r.err)
		}
	}
}

type events struct {
	mu  sync.Mutex
	evs []progress.Event
}

func (e *events) Publish(id string, ev progress.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ev.EvaluationID = id
	e.evs = append(e.evs, ev)
}

func newJudge(t *testing.T, s executor.Streamer, opts ...judge.Option) *judge.Judge {
	t.Helper()
	cat, err := rubric.Default()
	if err != nil {
		t.Fatalf("rubric.Default() = %v", err)
	}
	reg := executor.NewRegistry()
	if err := reg.Register(executor.Anthropic, s); err != nil {
		t.Fatalf("Register() = %v", err)
	}
	j, err := judge.New(reg, cat, opts...)
	if err != nil {
		t.Fatalf("judge.New() = %v", err)
	}
	return j
}

func request(mode judge.Mode) *judge.Request {
	return &judge.Request{
		EvaluationID:   "eval-1",
		Document:       "The lighthouse keeper counted ships.\n\nShe never counted the storms.",
		AssessmentType: "creative",
		Mode:           mode,
		Provider:       executor.Anthropic,
	}
}

func checkInvariants(t *testing.T, o *judge.Outcome) {
	t.Helper()
	if len(o.PerPhaseScores) == 0 {
		t.Fatal("PerPhaseScores is empty")
	}
	if last := o.PerPhaseScores[len(o.PerPhaseScores)-1]; o.FinalScore != last {
		t.Errorf("FinalScore = %d, last phase score = %d", o.FinalScore, last)
	}
	if len(o.Phases) != len(o.PerPhaseScores) {
		t.Errorf("phases = %d, scores = %d", len(o.Phases), len(o.PerPhaseScores))
	}
	for _, s := range o.PerPhaseScores {
		if s < scoring.MinScore || s > scoring.MaxScore {
			t.Errorf("score %d out of range", s)
		}
	}
}

func TestEvaluateSinglePhase(t *testing.T) {
	t.Parallel()
	fake := &fakeStreamer{script: []reply{says("Vivid and spare.\nOVERALL SCORE: 40")}}
	j := newJudge(t, fake)

	o, err := j.Evaluate(context.Background(), request(judge.ModeSingle))
	if err != nil {
		t.Fatalf("Evaluate() = %v", err)
	}
	checkInvariants(t, o)
	if diff := cmp.Diff([]int{40}, o.PerPhaseScores); diff != "" {
		t.Errorf("scores (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(o.Transcript, "=== Phase 1: Initial assessment ===\nVivid and spare.") {
		t.Errorf("transcript: %q", o.Transcript)
	}
	if o.Failed {
		t.Error("unexpected failure")
	}
	if fake.json[0] {
		t.Error("labeled rubric must not request JSON output")
	}
}

func TestEvaluateMultiPhaseLadder(t *testing.T) {
	t.Parallel()
	fake := &fakeStreamer{script: []reply{
		says("Solid.\nOVERALL SCORE: 60"),
		says("Pushed.\nOVERALL SCORE: 70"),
		says("Recalibrated.\nOVERALL SCORE: 75"),
		says("Final.\nOVERALL SCORE: 80"),
	}}
	j := newJudge(t, fake)
	cat := j.Catalog()
	creative, _ := cat.Get("creative")

	o, err := j.Evaluate(context.Background(), request(judge.ModeMulti))
	if err != nil {
		t.Fatalf("Evaluate() = %v", err)
	}
	checkInvariants(t, o)
	if diff := cmp.Diff([]int{60, 70, 75, 80}, o.PerPhaseScores); diff != "" {
		t.Errorf("scores (-want +got):\n%s", diff)
	}
	if o.FinalScore != 80 {
		t.Errorf("FinalScore = %d, wanted 80", o.FinalScore)
	}

	if len(fake.prompts) != 4 {
		t.Fatalf("calls = %d, wanted 4", len(fake.prompts))
	}
	if !strings.Contains(fake.prompts[0], creative.Criteria[0]) {
		t.Error("phase 1 prompt is missing the rubric criteria")
	}
	priors := []string{"60", "70", "75"}
	for i, prompt := range fake.prompts[1:] {
		want := "previous phase was " + priors[i] + " out of 100"
		if !strings.Contains(prompt, want) {
			t.Errorf("phase %d prompt missing %q", i+2, want)
		}
		for k, other := range priors {
			if k != i && strings.Contains(prompt, "previous phase was "+other+" ") {
				t.Errorf("phase %d prompt references score %s", i+2, other)
			}
		}
		if strings.Contains(prompt, creative.Criteria[0]) {
			t.Errorf("phase %d prompt repeats the rubric criteria", i+2)
		}
	}

	for _, marker := range []string{
		"=== Phase 1: Initial assessment ===",
		"=== Phase 2: Pushback ===",
		"=== Phase 3: Recalibration ===",
		"=== Phase 4: Final validation ===",
	} {
		if !strings.Contains(o.Transcript, marker) {
			t.Errorf("transcript missing %q", marker)
		}
	}
}

func TestEvaluateThresholdSkipsLadder(t *testing.T) {
	t.Parallel()
	for _, score := range []string{"95", "96"} {
		t.Run(score, func(t *testing.T) {
			t.Parallel()
			fake := &fakeStreamer{script: []reply{says("Superb.\nOVERALL SCORE: " + score)}}
			j := newJudge(t, fake)

			o, err := j.Evaluate(context.Background(), request(judge.ModeMulti))
			if err != nil {
				t.Fatalf("Evaluate() = %v", err)
			}
			if len(o.PerPhaseScores) != 1 || len(fake.prompts) != 1 {
				t.Errorf("scores = %v, calls = %d; wanted a single phase", o.PerPhaseScores, len(fake.prompts))
			}
		})
	}
}

func TestEvaluateCustomThreshold(t *testing.T) {
	t.Parallel()
	fake := &fakeStreamer{script: []reply{says("OVERALL SCORE: 85")}}
	j := newJudge(t, fake, judge.WithCalibrationThreshold(80))

	o, err := j.Evaluate(context.Background(), request(judge.ModeMulti))
	if err != nil {
		t.Fatalf("Evaluate() = %v", err)
	}
	if diff := cmp.Diff([]int{85}, o.PerPhaseScores); diff != "" {
		t.Errorf("scores (-want +got):\n%s", diff)
	}
}

func TestEvaluateProviderFailure(t *testing.T) {
	t.Parallel()
	unavailable := executor.NewProviderError(executor.Anthropic, "claude-sonnet-4-5", 503, "overloaded_error", errors.New("overloaded"))

	tests := []struct {
		name   string
		script []reply
		want   []int
	}{{
		name:   "initial phase",
		script: []reply{fails(unavailable)},
		want:   []int{0},
	}, {
		name: "mid ladder",
		script: []reply{
			says("OVERALL SCORE: 60"),
			says("OVERALL SCORE: 70"),
			{chunks: []string{"Partial "}, err: unavailable},
		},
		want: []int{60, 70, 0},
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fake := &fakeStreamer{script: tt.script}
			j := newJudge(t, fake)

			o, err := j.Evaluate(context.Background(), request(judge.ModeMulti))
			if err != nil {
				t.Fatalf("Evaluate() = %v", err)
			}
			checkInvariants(t, o)
			if diff := cmp.Diff(tt.want, o.PerPhaseScores); diff != "" {
				t.Errorf("scores (-want +got):\n%s", diff)
			}
			if !o.Failed || o.FinalScore != scoring.FailureScore {
				t.Errorf("Failed = %v, FinalScore = %d", o.Failed, o.FinalScore)
			}
			if !strings.Contains(o.Error, "overloaded") || !strings.Contains(o.Transcript, "ERROR: ") {
				t.Errorf("error text not preserved: %q", o.Error)
			}
			if len(fake.prompts) != len(tt.script) {
				t.Errorf("calls = %d, wanted %d", len(fake.prompts), len(tt.script))
			}
		})
	}
}

func TestEvaluateUnparsedContinuesLadder(t *testing.T) {
	t.Parallel()
	fake := &fakeStreamer{script: []reply{
		says("I liked it a lot."),
		says("OVERALL SCORE: 72"),
		says("OVERALL SCORE: 74"),
		says("OVERALL SCORE: 74"),
	}}
	j := newJudge(t, fake)

	o, err := j.Evaluate(context.Background(), request(judge.ModeMulti))
	if err != nil {
		t.Fatalf("Evaluate() = %v", err)
	}
	if diff := cmp.Diff([]int{scoring.NeutralScore, 72, 74, 74}, o.PerPhaseScores); diff != "" {
		t.Errorf("scores (-want +got):\n%s", diff)
	}
	if !o.Phases[0].Unparsed || o.Failed {
		t.Errorf("phase 1 Unparsed = %v, Failed = %v", o.Phases[0].Unparsed, o.Failed)
	}
	if !strings.Contains(fake.prompts[1], "previous phase was 70 out of 100") {
		t.Error("neutral score was not carried into the pushback prompt")
	}
}

func TestEvaluateJSONRubric(t *testing.T) {
	t.Parallel()
	fake := &fakeStreamer{script: []reply{says(`{"score": 88, "explanation": "Rigorous.", "quotes": ["counted ships"]}`)}}
	j := newJudge(t, fake)
	req := request(judge.ModeSingle)
	req.AssessmentType = "academic"

	o, err := j.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate() = %v", err)
	}
	if o.FinalScore != 88 || o.Explanation() != "Rigorous." {
		t.Errorf("got score %d explanation %q", o.FinalScore, o.Explanation())
	}
	if diff := cmp.Diff([]string{"counted ships"}, o.Quotes()); diff != "" {
		t.Errorf("quotes (-want +got):\n%s", diff)
	}
	if !fake.json[0] {
		t.Error("JSON rubric should request JSON output")
	}
}

func TestEvaluateSegments(t *testing.T) {
	t.Parallel()
	fake := &fakeStreamer{respond: func(prompt string) reply {
		switch {
		case strings.Contains(prompt, "previous phase was"):
			return says("OVERALL SCORE: 85")
		case strings.Contains(prompt, "alpha"):
			return says("OVERALL SCORE: 80")
		case strings.Contains(prompt, "gamma"):
			return says("OVERALL SCORE: 60")
		default:
			return fails(errors.New("connection reset"))
		}
	}}
	rec := &events{}
	j := newJudge(t, fake, judge.WithPublisher(rec), judge.WithSegmentConcurrency(2))
	req := &judge.Request{
		EvaluationID:   "eval-seg",
		Document:       "alpha paragraph\n\nbeta paragraph\n\ngamma paragraph",
		AssessmentType: "business",
		Mode:           judge.ModeMulti,
		Provider:       executor.Anthropic,
		Segments:       []int{0, 1, 2},
	}

	o, err := j.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate() = %v", err)
	}
	checkInvariants(t, o)
	// The aggregate of 80 and 60 is below the threshold, so multi mode escalates.
	if diff := cmp.Diff([]int{70, 85, 85, 85}, o.PerPhaseScores); diff != "" {
		t.Errorf("scores (-want +got):\n%s", diff)
	}
	if o.Failed {
		t.Error("a partial segment failure must not fail the evaluation")
	}
	fake.mu.Lock()
	followups := fake.prompts[3:]
	fake.mu.Unlock()
	if len(followups) != 3 {
		t.Fatalf("follow-up calls = %d, wanted 3", len(followups))
	}
	if !strings.Contains(followups[0], "previous phase was 70 out of 100") {
		t.Error("pushback prompt does not carry the aggregate score")
	}
	for i, prompt := range followups {
		for _, para := range []string{"alpha paragraph", "beta paragraph", "gamma paragraph"} {
			if !strings.Contains(prompt, para) {
				t.Errorf("phase %d prompt missing selected segment %q", i+2, para)
			}
		}
	}
	if len(o.Segments) != 3 || o.Segments[1].Error == "" {
		t.Fatalf("segments: %+v", o.Segments)
	}
	if !strings.Contains(o.Explanation(), "ERROR: connection reset") {
		t.Errorf("explanation missing segment error: %q", o.Explanation())
	}
	// business has two questions: segment 2 pairs with question 0.
	if o.Segments[2].Question != o.Segments[0].Question {
		t.Errorf("question pairing: %q vs %q", o.Segments[2].Question, o.Segments[0].Question)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	var tagged bool
	for _, ev := range rec.evs {
		if ev.Segment != nil && *ev.Segment == 2 && ev.Question != nil && *ev.Question == 0 {
			tagged = true
		}
	}
	if !tagged {
		t.Error("no progress event tagged with segment 2 / question 0")
	}
}

func TestEvaluateSegmentsEscalationGate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		mode  judge.Mode
		score string
		want  []int
	}{
		{name: "single mode", mode: judge.ModeSingle, score: "60", want: []int{60}},
		{name: "at threshold", mode: judge.ModeMulti, score: "95", want: []int{95}},
		{name: "below threshold", mode: judge.ModeMulti, score: "60", want: []int{60, 65, 65, 65}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fake := &fakeStreamer{respond: func(prompt string) reply {
				if strings.Contains(prompt, "previous phase was") {
					return says("OVERALL SCORE: 65")
				}
				return says("OVERALL SCORE: " + tt.score)
			}}
			j := newJudge(t, fake)
			req := request(tt.mode)
			req.Segments = []int{1}

			o, err := j.Evaluate(context.Background(), req)
			if err != nil {
				t.Fatalf("Evaluate() = %v", err)
			}
			checkInvariants(t, o)
			if diff := cmp.Diff(tt.want, o.PerPhaseScores); diff != "" {
				t.Errorf("scores (-want +got):\n%s", diff)
			}
			for i, prompt := range fake.prompts[1:] {
				if strings.Contains(prompt, "lighthouse keeper") {
					t.Errorf("phase %d prompt contains an unselected segment", i+2)
				}
			}
		})
	}
}

func TestEvaluateSegmentsAllFailed(t *testing.T) {
	t.Parallel()
	fake := &fakeStreamer{respond: func(string) reply { return fails(errors.New("timeout")) }}
	j := newJudge(t, fake)
	req := request(judge.ModeSingle)
	req.Segments = []int{0, 1}

	o, err := j.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate() = %v", err)
	}
	if !o.Failed || o.FinalScore != scoring.FailureScore {
		t.Errorf("Failed = %v, FinalScore = %d", o.Failed, o.FinalScore)
	}
}

func TestEvaluateProgressAndHooks(t *testing.T) {
	t.Parallel()
	fake := &fakeStreamer{script: []reply{
		says("OVERALL SCORE: 50"),
		says("OVERALL SCORE: 55"),
		says("OVERALL SCORE: 58"),
		says("OVERALL SCORE: 60"),
	}}
	rec := &events{}
	var partials [][]int
	j := newJudge(t, fake,
		judge.WithPublisher(rec),
		judge.WithPhaseHook(func(_ context.Context, id string, o *judge.Outcome) {
			if id != "eval-1" {
				t.Errorf("hook id = %q", id)
			}
			partials = append(partials, o.PerPhaseScores)
		}),
	)

	if _, err := j.Evaluate(context.Background(), request(judge.ModeMulti)); err != nil {
		t.Fatalf("Evaluate() = %v", err)
	}
	want := [][]int{{50}, {50, 55}, {50, 55, 58}, {50, 55, 58, 60}}
	if diff := cmp.Diff(want, partials); diff != "" {
		t.Errorf("partials (-want +got):\n%s", diff)
	}

	var phases []int
	var text strings.Builder
	for _, ev := range rec.evs {
		if ev.Type != progress.TypeProgress {
			t.Errorf("unexpected event type %s", ev.Type)
		}
		if len(phases) == 0 || phases[len(phases)-1] != ev.Phase {
			phases = append(phases, ev.Phase)
		}
		text.WriteString(ev.Delta)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4}, phases); diff != "" {
		t.Errorf("progress phases (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(text.String(), "OVERALL SCORE: 50OVERALL SCORE: 55") {
		t.Errorf("progress text: %q", text.String())
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	j := newJudge(t, &fakeStreamer{})

	tests := []struct {
		name   string
		modify func(*judge.Request)
		field  string
		config bool
	}{
		{"valid", func(*judge.Request) {}, "", false},
		{"empty document", func(r *judge.Request) { r.Document = "  \n" }, "documentText", false},
		{"unknown rubric", func(r *judge.Request) { r.AssessmentType = "legal" }, "assessmentType", false},
		{"unknown mode", func(r *judge.Request) { r.Mode = "triple" }, "assessmentMode", false},
		{"unknown provider", func(r *judge.Request) { r.Provider = "mistral" }, "providerId", false},
		{"segment out of range", func(r *judge.Request) { r.Segments = []int{2} }, "selectedSegments", false},
		{"negative segment", func(r *judge.Request) { r.Segments = []int{-1} }, "selectedSegments", false},
		{"duplicate segment", func(r *judge.Request) { r.Segments = []int{1, 1} }, "selectedSegments", false},
		{"unconfigured provider", func(r *judge.Request) { r.Provider = executor.OpenAI }, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := request(judge.ModeSingle)
			tt.modify(req)
			err := j.Validate(req)

			var re *judge.RequestError
			var ce *executor.ConfigurationError
			switch {
			case tt.field != "":
				if !errors.As(err, &re) || re.Field != tt.field {
					t.Fatalf("Validate() = %v, wanted RequestError on %s", err, tt.field)
				}
				if !errors.Is(err, judge.ErrInvalidRequest) {
					t.Error("expected errors.Is(err, ErrInvalidRequest)")
				}
			case tt.config:
				if !errors.As(err, &ce) {
					t.Fatalf("Validate() = %v, wanted ConfigurationError", err)
				}
			default:
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
			}
		})
	}
}

func TestEvaluateRejectsInvalidRequest(t *testing.T) {
	t.Parallel()
	fake := &fakeStreamer{}
	j := newJudge(t, fake)
	req := request(judge.ModeSingle)
	req.Document = ""

	if _, err := j.Evaluate(context.Background(), req); !errors.Is(err, judge.ErrInvalidRequest) {
		t.Fatalf("Evaluate() = %v, wanted ErrInvalidRequest", err)
	}
	if len(fake.prompts) != 0 {
		t.Error("provider was called for an invalid request")
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()
	cat, err := rubric.Default()
	if err != nil {
		t.Fatal(err)
	}
	for name, opt := range map[string]judge.Option{
		"threshold too high": judge.WithCalibrationThreshold(101),
		"zero concurrency":   judge.WithSegmentConcurrency(0),
		"nil publisher":      judge.WithPublisher(nil),
	} {
		if _, err := judge.New(executor.NewRegistry(), cat, opt); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := judge.New(nil, cat); err == nil {
		t.Error("expected error for nil registry")
	}
}
