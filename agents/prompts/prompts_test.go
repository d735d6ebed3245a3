/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package prompts_test

import (
	"strconv"
	"strings"
	"testing"

	"chainguard.dev/docscore/agents/prompts"
	"chainguard.dev/docscore/agents/rubric"
	"github.com/google/go-cmp/cmp"
)

func newAssembler(t *testing.T) (*prompts.Assembler, *rubric.Catalog) {
	t.Helper()
	cat, err := rubric.Default()
	if err != nil {
		t.Fatalf("rubric.Default() = %v", err)
	}
	a, err := prompts.New(cat)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return a, cat
}

func mustRubric(t *testing.T, cat *rubric.Catalog, id string) rubric.Rubric {
	t.Helper()
	r, ok := cat.Get(id)
	if !ok {
		t.Fatalf("rubric %q not found", id)
	}
	return r
}

func TestAssembleInitial(t *testing.T) {
	a, cat := newAssembler(t)
	academic := mustRubric(t, cat, "academic")

	got, err := a.Assemble(prompts.Input{
		Document: "Cats <are> better & dogs agree.",
		Rubric:   academic,
		Phase:    prompts.PhaseInitial,
	})
	if err != nil {
		t.Fatalf("Assemble() = %v", err)
	}
	if got.Format != rubric.FormatJSON || got.Phase != prompts.PhaseInitial {
		t.Errorf("got format=%q phase=%v", got.Format, got.Phase)
	}
	if got.System != cat.System() {
		t.Errorf("system: got = %q", got.System)
	}
	for _, want := range []string{
		"Academic writing",
		academic.Criteria[0],
		"90-100: " + academic.Calibration[0].Meaning,
		"<document>Cats &lt;are&gt; better &amp; dogs agree.</document>",
		`"score"`,
	} {
		if !strings.Contains(got.Text, want) {
			t.Errorf("prompt lacks %q:\n%s", want, got.Text)
		}
	}
	if strings.Contains(got.Text, "{{") {
		t.Errorf("prompt has unfilled placeholders:\n%s", got.Text)
	}
}

func TestAssembleLabeledFormat(t *testing.T) {
	a, cat := newAssembler(t)
	got, err := a.Assemble(prompts.Input{
		Document: "Q3 revenue grew.",
		Rubric:   mustRubric(t, cat, "business"),
		Phase:    prompts.PhaseInitial,
		Question: "Is the purpose of this passage immediately clear?",
	})
	if err != nil {
		t.Fatalf("Assemble() = %v", err)
	}
	if got.Format != rubric.FormatLabeled {
		t.Errorf("format: got = %q, wanted %q", got.Format, rubric.FormatLabeled)
	}
	if !strings.Contains(got.Text, "OVERALL SCORE: <score>") {
		t.Errorf("prompt lacks labeled instruction:\n%s", got.Text)
	}
	if strings.Contains(got.Text, `"$schema"`) || strings.Contains(got.Text, `"properties"`) {
		t.Errorf("labeled prompt carries a JSON schema:\n%s", got.Text)
	}
	if !strings.Contains(got.Text, "Focus your assessment on this question: Is the purpose") {
		t.Errorf("prompt lacks segment question:\n%s", got.Text)
	}
}

func TestAssembleFollowupPhases(t *testing.T) {
	a, cat := newAssembler(t)
	academic := mustRubric(t, cat, "academic")
	phases := cat.Phases()

	for _, tt := range []struct {
		phase       prompts.Phase
		prior       int
		instruction string
	}{
		{prompts.PhasePushback, 60, phases.Pushback},
		{prompts.PhaseRecalibration, 55, phases.Recalibration},
		{prompts.PhaseFinalValidation, 58, phases.FinalValidation},
	} {
		t.Run(tt.phase.String(), func(t *testing.T) {
			got, err := a.Assemble(prompts.Input{
				Document:   "Essay text.",
				Rubric:     academic,
				Phase:      tt.phase,
				PriorScore: &tt.prior,
			})
			if err != nil {
				t.Fatalf("Assemble() = %v", err)
			}
			if !strings.Contains(got.Text, tt.instruction) {
				t.Errorf("prompt lacks phase instruction:\n%s", got.Text)
			}
			if !strings.Contains(got.Text, "previous phase was "+strconv.Itoa(tt.prior)+" out of 100") {
				t.Errorf("prompt lacks prior score %d:\n%s", tt.prior, got.Text)
			}
			for _, c := range academic.Criteria {
				if strings.Contains(got.Text, c) {
					t.Errorf("follow-up prompt repeats criterion %q", c)
				}
			}
			if !strings.Contains(got.Text, "<document>Essay text.</document>") {
				t.Errorf("prompt lacks document:\n%s", got.Text)
			}
		})
	}
}

func TestAssembleDeterministic(t *testing.T) {
	a, cat := newAssembler(t)
	prior := 42
	in := prompts.Input{Document: "Same text.", Rubric: mustRubric(t, cat, "technical"), Phase: prompts.PhaseRecalibration, PriorScore: &prior}
	first, err := a.Assemble(in)
	if err != nil {
		t.Fatalf("Assemble() = %v", err)
	}
	second, err := a.Assemble(in)
	if err != nil {
		t.Fatalf("Assemble() = %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Assemble() not deterministic (-first +second):\n%s", diff)
	}
}

func TestAssembleErrors(t *testing.T) {
	a, cat := newAssembler(t)
	r := mustRubric(t, cat, "academic")

	if _, err := a.Assemble(prompts.Input{Document: "x", Rubric: r, Phase: prompts.PhasePushback}); err == nil {
		t.Error("phase 2 without prior score: got = nil, wanted error")
	}
	if _, err := a.Assemble(prompts.Input{Document: "x", Rubric: r, Phase: 7}); err == nil {
		t.Error("unknown phase: got = nil, wanted error")
	}
}

func TestNewRejectsBrokenTemplates(t *testing.T) {
	for name, override := range map[string]string{
		"missing document": "templates:\n  initial: \"{{rubric}} {{format}}\"\n",
		"unknown placeholder": "templates:\n  followup: \"{{document}} {{format}} {{prior_score}} {{rubric}}\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			cat, err := rubric.Parse([]byte(override))
			if err != nil {
				t.Fatalf("rubric.Parse() = %v", err)
			}
			if _, err := prompts.New(cat); err == nil {
				t.Error("New(): got = nil, wanted error")
			}
		})
	}
}

func TestSegment(t *testing.T) {
	got := prompts.Segment("First paragraph\nstill first.\r\n\r\n\n  \nSecond.   \n\nThird.\n")
	want := []string{"First paragraph\nstill first.", "Second.", "Third."}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Segment() mismatch (-want +got):\n%s", diff)
	}
	if got := prompts.Segment("  \n\n "); len(got) != 0 {
		t.Errorf("Segment(blank): got = %q", got)
	}
}
