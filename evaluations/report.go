/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluations

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RenderReport renders rec as a plain-text document. rubricName labels the
// assessment type.
func RenderReport(rec *Record, rubricName string) string {
	var b strings.Builder

	b.WriteString("DOCUMENT EVALUATION REPORT\n")
	b.WriteString(strings.Repeat("=", len("DOCUMENT EVALUATION REPORT")) + "\n\n")
	fmt.Fprintf(&b, "Evaluation:  %s\n", rec.ID)
	fmt.Fprintf(&b, "Assessment:  %s (%s)\n", rubricName, rec.AssessmentType)
	fmt.Fprintf(&b, "Mode:        %s\n", rec.AssessmentMode)
	fmt.Fprintf(&b, "Provider:    %s\n", rec.ProviderID)
	fmt.Fprintf(&b, "Status:      %s\n", rec.Status)
	fmt.Fprintf(&b, "Submitted:   %s\n", rec.CreatedAt.UTC().Format(time.RFC3339))
	if rec.CompletedAt != nil {
		fmt.Fprintf(&b, "Completed:   %s\n", rec.CompletedAt.UTC().Format(time.RFC3339))
	}
	if rec.OverallScore != nil {
		fmt.Fprintf(&b, "\nOVERALL SCORE: %d/100\n", *rec.OverallScore)
	}
	if rec.Error != "" {
		fmt.Fprintf(&b, "\nThe evaluation did not complete: %s\n", rec.Error)
	}

	o := rec.Outcome
	if o == nil {
		return b.String()
	}

	section(&b, "Phase scores")
	table := newTable([]string{"Phase", "Name", "Score", "Note"}, &b)
	for _, p := range o.Phases {
		note := string(p.Strategy)
		switch {
		case p.Failed:
			note = "provider failure"
		case p.Unparsed:
			note = "no score found, neutral score assigned"
		}
		_ = table.Append([]string{strconv.Itoa(int(p.Phase)), p.Name, strconv.Itoa(p.Score), note})
	}
	_ = table.Render()

	if explanation := strings.TrimSpace(o.Explanation()); explanation != "" {
		section(&b, "Explanation")
		b.WriteString(explanation + "\n")
	}

	if quotes := o.Quotes(); len(quotes) > 0 {
		section(&b, "Supporting quotes")
		for _, q := range quotes {
			fmt.Fprintf(&b, "- %q\n", q)
		}
	}

	if len(o.Segments) > 0 {
		section(&b, "Segments")
		table := newTable([]string{"Segment", "Question", "Score", "Note"}, &b)
		for _, s := range o.Segments {
			score, note := strconv.Itoa(s.Result.Score), ""
			switch {
			case s.Error != "":
				score, note = "-", "error: "+s.Error
			case s.Result.Unparsed:
				note = "excluded, no score found"
			}
			_ = table.Append([]string{strconv.Itoa(s.Index + 1), s.Question, score, note})
		}
		_ = table.Render()
	}

	section(&b, "Transcript")
	b.WriteString(o.Transcript + "\n")
	return b.String()
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
}
