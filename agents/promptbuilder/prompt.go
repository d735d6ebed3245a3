/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"fmt"
	"maps"
	"slices"
)

// Prompt is a parsed template plus the values bound so far.
type Prompt struct {
	template string
	values   map[string]renderer
}

// ParseTemplate parses a template loaded from rubric configuration. Only
// the template text must be trusted; bound content is escaped by the Bind
// method used.
func ParseTemplate(template string) (*Prompt, error) {
	values := make(map[string]renderer)
	if err := walkTemplate(template, nil, func(name string) (string, error) {
		values[name] = nil
		return "", nil
	}); err != nil {
		return nil, err
	}
	return &Prompt{template: template, values: values}, nil
}

// GetBindings returns the placeholder names found in the template as a set.
func (p *Prompt) GetBindings() map[string]struct{} {
	names := make(map[string]struct{}, len(p.values))
	for name := range p.values {
		names[name] = struct{}{}
	}
	return names
}

// Unbound returns the sorted names of placeholders that have no value yet.
func (p *Prompt) Unbound() []string {
	var names []string
	for name, r := range p.values {
		if r == nil {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// BindText substitutes value verbatim. It is meant for text the operator
// controls, such as rubric criteria or phase instructions. Document text
// goes through BindXML.
func (p *Prompt) BindText(name, value string) (*Prompt, error) {
	return p.bind(name, verbatim(value))
}

// BindXML marshals data with encoding/xml, escaping any markup it contains.
func (p *Prompt) BindXML(name string, data any) (*Prompt, error) {
	return p.bind(name, marshalXML(data))
}

// bind returns a copy of p with name bound to r.
func (p *Prompt) bind(name string, r renderer) (*Prompt, error) {
	current, ok := p.values[name]
	switch {
	case !ok:
		return nil, fmt.Errorf("binding %q not found in template", name)
	case current != nil:
		return nil, fmt.Errorf("binding %q already bound", name)
	}
	next := &Prompt{template: p.template, values: maps.Clone(p.values)}
	next.values[name] = r
	return next, nil
}

// Build renders the prompt. It fails if any placeholder is unbound.
func (p *Prompt) Build() (string, error) {
	if unbound := p.Unbound(); len(unbound) > 0 {
		return "", fmt.Errorf("unbound placeholder: %s", unbound[0])
	}
	rendered := make(map[string]string, len(p.values))
	for name, r := range p.values {
		v, err := r()
		if err != nil {
			return "", fmt.Errorf("rendering %q: %w", name, err)
		}
		rendered[name] = v
	}

	var out []byte
	if err := walkTemplate(p.template, func(text string) {
		out = append(out, text...)
	}, func(name string) (string, error) {
		out = append(out, rendered[name]...)
		return rendered[name], nil
	}); err != nil {
		return "", err
	}
	return string(out), nil
}
