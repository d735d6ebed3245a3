/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package prompts

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"chainguard.dev/docscore/agents/promptbuilder"
	"chainguard.dev/docscore/agents/rubric"
	"chainguard.dev/docscore/agents/schema"
	"chainguard.dev/docscore/agents/scoring"
)

// Phase numbers the prompt-response rounds of one evaluation.
type Phase int

const (
	PhaseInitial Phase = iota + 1
	PhasePushback
	PhaseRecalibration
	PhaseFinalValidation
)

// LastPhase is the final rung of the escalation ladder.
const LastPhase = PhaseFinalValidation

func (p Phase) String() string {
	switch p {
	case PhaseInitial:
		return "initial"
	case PhasePushback:
		return "pushback"
	case PhaseRecalibration:
		return "recalibration"
	case PhaseFinalValidation:
		return "final_validation"
	}
	return "phase_" + strconv.Itoa(int(p))
}

// Title is the human-readable phase name used in prompts and transcripts.
func (p Phase) Title() string {
	switch p {
	case PhaseInitial:
		return "Initial assessment"
	case PhasePushback:
		return "Pushback"
	case PhaseRecalibration:
		return "Recalibration"
	case PhaseFinalValidation:
		return "Final validation"
	}
	return fmt.Sprintf("Phase %d", int(p))
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return p >= PhaseInitial && p <= LastPhase
}

// Input is everything a prompt depends on.
type Input struct {
	Document string
	Rubric   rubric.Rubric
	Phase    Phase
	// PriorScore is the score of the immediately preceding phase. It is
	// required for every phase after the first.
	PriorScore *int
	// Question focuses a phase-1 prompt on one rubric question in segment mode.
	Question string
}

// Assembled is a prompt ready to stream, plus the format its answer should
// be parsed with.
type Assembled struct {
	Text   string
	System string
	Format rubric.Format
	Phase  Phase
}

// Assembler builds prompts from a rubric catalogue. It holds no mutable
// state, so one Assembler serves every evaluation.
type Assembler struct {
	catalog    *rubric.Catalog
	jsonSchema string
}

// New returns an Assembler for catalog after checking that every rubric
// assembles at every phase.
func New(catalog *rubric.Catalog) (*Assembler, error) {
	doc, err := schema.Document[scoring.Verdict]()
	if err != nil {
		return nil, err
	}
	a := &Assembler{catalog: catalog, jsonSchema: doc}
	if err := a.check(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Assembler) check() error {
	prior := scoring.NeutralScore
	var errs []error
	for _, r := range a.catalog.List() {
		for p := PhaseInitial; p <= LastPhase; p++ {
			if _, err := a.Assemble(Input{Document: "x", Rubric: r, Phase: p, PriorScore: &prior}); err != nil {
				errs = append(errs, fmt.Errorf("rubric %q phase %d: %w", r.ID, p, err))
			}
		}
	}
	return errors.Join(errs...)
}

type document struct {
	XMLName xml.Name `xml:"document"`
	Text    string   `xml:",chardata"`
}

// Assemble renders the prompt for in. The output depends only on in and
// the catalogue.
//
// Phase 1 carries the full rubric. Later phases carry only the phase
// instruction and the immediately preceding score; the rubric criteria are
// never repeated.
func (a *Assembler) Assemble(in Input) (Assembled, error) {
	if !in.Phase.Valid() {
		return Assembled{}, fmt.Errorf("unknown phase %d", in.Phase)
	}
	format := in.Rubric.Format
	if format == "" {
		format = rubric.FormatJSON
	}

	var p *promptbuilder.Prompt
	var err error
	if in.Phase == PhaseInitial {
		p, err = a.initial(in, format)
	} else {
		p, err = a.followup(in, format)
	}
	if err != nil {
		return Assembled{}, err
	}
	text, err := p.Build()
	if err != nil {
		return Assembled{}, fmt.Errorf("building %s prompt: %w", in.Phase, err)
	}
	return Assembled{
		Text:   text,
		System: a.catalog.System(),
		Format: format,
		Phase:  in.Phase,
	}, nil
}

func (a *Assembler) initial(in Input, format rubric.Format) (*promptbuilder.Prompt, error) {
	question := ""
	if q := strings.TrimSpace(in.Question); q != "" {
		question = "Focus your assessment on this question: " + q + "\n"
	}
	return bindAll(a.catalog.InitialTemplate(), []string{"document", "format", "rubric"},
		textBinding{"rubric_name", in.Rubric.Name},
		textBinding{"rubric", renderRubric(in.Rubric)},
		textBinding{"question", question},
		xmlBinding{"document", document{Text: in.Document}},
		textBinding{"format", a.formatInstruction(format)},
	)
}

func (a *Assembler) followup(in Input, format rubric.Format) (*promptbuilder.Prompt, error) {
	if in.PriorScore == nil {
		return nil, fmt.Errorf("%s prompt requires the previous phase's score", in.Phase)
	}
	return bindAll(a.catalog.FollowupTemplate(), []string{"document", "format", "prior_score"},
		textBinding{"phase", strconv.Itoa(int(in.Phase))},
		textBinding{"phase_name", in.Phase.Title()},
		textBinding{"instruction", a.instruction(in.Phase)},
		textBinding{"prior_score", strconv.Itoa(*in.PriorScore)},
		xmlBinding{"document", document{Text: in.Document}},
		textBinding{"format", a.formatInstruction(format)},
	)
}

func (a *Assembler) instruction(p Phase) string {
	phases := a.catalog.Phases()
	switch p {
	case PhasePushback:
		return phases.Pushback
	case PhaseRecalibration:
		return phases.Recalibration
	default:
		return phases.FinalValidation
	}
}

func (a *Assembler) formatInstruction(f rubric.Format) string {
	text := a.catalog.FormatInstruction(f)
	if f == rubric.FormatJSON {
		text += "\n\n" + a.jsonSchema
	}
	return text
}

func renderRubric(r rubric.Rubric) string {
	var sb strings.Builder
	if r.Description != "" {
		sb.WriteString(r.Description)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Criteria:\n")
	for i, c := range r.Criteria {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, c)
	}
	if len(r.Calibration) > 0 {
		sb.WriteString("\nScore calibration:\n")
		for _, b := range r.Calibration {
			fmt.Fprintf(&sb, "- %d-%d: %s\n", b.Min, b.Max, b.Meaning)
		}
	}
	return sb.String()
}

type textBinding struct{ name, value string }

func (b textBinding) Bind(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	return p.BindText(b.name, b.value)
}

type xmlBinding struct {
	name string
	data any
}

func (b xmlBinding) Bind(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	return p.BindXML(b.name, b.data)
}

type namedBinding interface {
	promptbuilder.Bindable
	placeholder() string
}

func (b textBinding) placeholder() string { return b.name }
func (b xmlBinding) placeholder() string  { return b.name }

// bindAll binds the values whose placeholder appears in p. Templates may
// leave out any placeholder except those listed in required.
func bindAll(p *promptbuilder.Prompt, required []string, bs ...namedBinding) (*promptbuilder.Prompt, error) {
	present := p.GetBindings()
	for _, name := range required {
		if _, ok := present[name]; !ok {
			return nil, fmt.Errorf("template is missing the {{%s}} placeholder", name)
		}
	}
	use := make([]promptbuilder.Bindable, 0, len(bs))
	for _, b := range bs {
		if _, ok := present[b.placeholder()]; ok {
			use = append(use, b)
		}
	}
	p, err := promptbuilder.BindAll(p, use...)
	if err != nil {
		return nil, fmt.Errorf("binding prompt: %w", err)
	}
	return p, nil
}
