/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package promptbuilder fills rubric prompt templates with named placeholders.

Placeholders use the {{name}} syntax, where name starts with a letter and
contains letters, digits and underscores:

	p, err := promptbuilder.ParseTemplate(cfg.Templates.Initial)
	p, err = p.BindText("rubric", criteria)
	p, err = p.BindXML("document", doc)
	text, err := p.Build()

Every Bind method returns a new Prompt, so a parsed template is shared by
all evaluations. Build fails while any placeholder is unbound. Substitution
is a single pass and bound values are never rescanned for placeholders.
*/
package promptbuilder
