/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rubric

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"chainguard.dev/docscore/agents/promptbuilder"
)

// Format is the answer shape a rubric asks the model for.
type Format string

const (
	// FormatJSON asks for {"score", "explanation", "quotes"}.
	FormatJSON Format = "json"
	// FormatLabeled asks for free text ending in an "OVERALL SCORE: <n>" line.
	FormatLabeled Format = "labeled"
)

// Band maps a score range to its meaning.
type Band struct {
	Min     int    `yaml:"min" json:"min"`
	Max     int    `yaml:"max" json:"max"`
	Meaning string `yaml:"meaning" json:"meaning"`
}

// Rubric is one assessment type.
type Rubric struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Format      Format   `yaml:"format" json:"format"`
	Criteria    []string `yaml:"criteria" json:"criteria"`
	Calibration []Band   `yaml:"calibration" json:"calibration"`
	// Questions are asked one per segment in segment mode.
	Questions []string `yaml:"questions,omitempty" json:"questions,omitempty"`
}

// Templates hold the prompt skeletons. Initial is used for phase 1 and
// Followup for every later phase.
type Templates struct {
	Initial  string `yaml:"initial"`
	Followup string `yaml:"followup"`
}

// Formats hold the output instructions appended to every prompt.
type Formats struct {
	JSON    string `yaml:"json"`
	Labeled string `yaml:"labeled"`
}

// Phases hold the instruction text for the escalation phases.
type Phases struct {
	Pushback        string `yaml:"pushback"`
	Recalibration   string `yaml:"recalibration"`
	FinalValidation string `yaml:"final_validation"`
}

// Config is the on-disk shape of the rubric file.
type Config struct {
	System    string    `yaml:"system"`
	Templates Templates `yaml:"templates"`
	Formats   Formats   `yaml:"formats"`
	Phases    Phases    `yaml:"phases"`
	Rubrics   []Rubric  `yaml:"rubrics"`
}

// Catalog is a validated, read-only rubric configuration.
type Catalog struct {
	cfg      Config
	initial  *promptbuilder.Prompt
	followup *promptbuilder.Prompt
	byID     map[string]int
}

// New validates cfg and indexes its rubrics.
func New(cfg Config) (*Catalog, error) {
	for i := range cfg.Rubrics {
		if cfg.Rubrics[i].Format == "" {
			cfg.Rubrics[i].Format = FormatJSON
		}
	}

	var errs []error
	initial, err := promptbuilder.ParseTemplate(cfg.Templates.Initial)
	if err != nil {
		errs = append(errs, fmt.Errorf("templates.initial: %w", err))
	}
	followup, err := promptbuilder.ParseTemplate(cfg.Templates.Followup)
	if err != nil {
		errs = append(errs, fmt.Errorf("templates.followup: %w", err))
	}
	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid rubric configuration: %w", errors.Join(errs...))
	}

	byID := make(map[string]int, len(cfg.Rubrics))
	for i, r := range cfg.Rubrics {
		byID[r.ID] = i
	}
	return &Catalog{cfg: cfg, initial: initial, followup: followup, byID: byID}, nil
}

func (c Config) validate() []error {
	var errs []error
	require := func(field, v string) {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s is required", field))
		}
	}
	require("templates.initial", c.Templates.Initial)
	require("templates.followup", c.Templates.Followup)
	require("formats.json", c.Formats.JSON)
	require("formats.labeled", c.Formats.Labeled)
	require("phases.pushback", c.Phases.Pushback)
	require("phases.recalibration", c.Phases.Recalibration)
	require("phases.final_validation", c.Phases.FinalValidation)

	if len(c.Rubrics) == 0 {
		errs = append(errs, errors.New("at least one rubric is required"))
	}
	seen := make(map[string]bool, len(c.Rubrics))
	for i, r := range c.Rubrics {
		switch {
		case r.ID == "":
			errs = append(errs, fmt.Errorf("rubrics[%d]: id is required", i))
			continue
		case seen[r.ID]:
			errs = append(errs, fmt.Errorf("rubrics[%d]: duplicate id %q", i, r.ID))
		}
		seen[r.ID] = true

		if r.Format != FormatJSON && r.Format != FormatLabeled {
			errs = append(errs, fmt.Errorf("rubric %q: unknown format %q", r.ID, r.Format))
		}
		if len(r.Criteria) == 0 {
			errs = append(errs, fmt.Errorf("rubric %q: at least one criterion is required", r.ID))
		}
		for _, b := range r.Calibration {
			if b.Min < 0 || b.Max > 100 || b.Min > b.Max {
				errs = append(errs, fmt.Errorf("rubric %q: invalid calibration band %d-%d", r.ID, b.Min, b.Max))
			}
		}
	}
	return errs
}

// Get returns the rubric with the given id.
func (c *Catalog) Get(id string) (Rubric, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Rubric{}, false
	}
	return c.cfg.Rubrics[i], true
}

// IDs returns the rubric ids in configuration order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.cfg.Rubrics))
	for _, r := range c.cfg.Rubrics {
		ids = append(ids, r.ID)
	}
	return ids
}

// List returns a copy of every rubric in configuration order.
func (c *Catalog) List() []Rubric {
	return slices.Clone(c.cfg.Rubrics)
}

// System returns the system instruction sent with every call.
func (c *Catalog) System() string {
	return c.cfg.System
}

// InitialTemplate returns the unbound phase-1 template.
func (c *Catalog) InitialTemplate() *promptbuilder.Prompt {
	return c.initial
}

// FollowupTemplate returns the unbound template for phases after the first.
func (c *Catalog) FollowupTemplate() *promptbuilder.Prompt {
	return c.followup
}

// FormatInstruction returns the output instruction for f.
func (c *Catalog) FormatInstruction(f Format) string {
	if f == FormatLabeled {
		return c.cfg.Formats.Labeled
	}
	return c.cfg.Formats.JSON
}

// Phases returns the escalation instructions.
func (c *Catalog) Phases() Phases {
	return c.cfg.Phases
}
