/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package prompts

import "strings"

// Segment splits a document into paragraphs separated by blank lines.
// Whitespace-only paragraphs are dropped and line endings are normalized.
func Segment(document string) []string {
	document = strings.ReplaceAll(document, "\r\n", "\n")
	var segments []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			segments = append(segments, strings.Join(current, "\n"))
			current = current[:0]
		}
	}
	for line := range strings.SplitSeq(document, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, strings.TrimRight(line, " \t"))
	}
	flush()
	return segments
}
