/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

// Bindable is implemented by request types that know how to fill a template.
type Bindable interface {
	// Bind returns a new prompt with the receiver's values bound.
	Bind(prompt *Prompt) (*Prompt, error)
}

// BindAll applies each Bindable to p in order.
func BindAll(p *Prompt, bs ...Bindable) (*Prompt, error) {
	var err error
	for _, b := range bs {
		if p, err = b.Bind(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}
