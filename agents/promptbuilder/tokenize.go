/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"fmt"
	"strings"
	"unicode"
)

// walkTemplate splits template into literal text and {{name}} placeholders
// in a single pass. text may be nil. Substituted values are never rescanned,
// so a bound value containing "{{x}}" is emitted as-is.
func walkTemplate(template string, text func(string), resolve func(name string) (string, error)) error {
	offset := 0
	for len(template) > 0 {
		before, rest, found := strings.Cut(template, "{{")
		if text != nil {
			text(before)
		}
		if !found {
			return nil
		}
		offset += len(before)

		inner, after, closed := strings.Cut(rest, "}}")
		if !closed {
			return fmt.Errorf("unclosed binding at offset %d: missing '}}'", offset)
		}
		name := strings.TrimSpace(inner)
		if !isValidIdentifier(name) {
			return fmt.Errorf("invalid binding identifier %q at offset %d", name, offset)
		}
		if _, err := resolve(name); err != nil {
			return err
		}
		offset += len("{{") + len(inner) + len("}}")
		template = after
	}
	return nil
}

// isValidIdentifier reports whether s starts with a letter and contains only
// letters, digits and underscores.
func isValidIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '_'):
		default:
			return false
		}
	}
	return s != ""
}
