/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package schema_test

import (
	"encoding/json"
	"strings"
	"testing"

	"chainguard.dev/docscore/agents/schema"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"
)

type verdict struct {
	Score       int      `json:"score" jsonschema:"required,minimum=0,maximum=100,description=Overall score"`
	Explanation string   `json:"explanation" jsonschema:"required,description=Why the score was given"`
	Quotes      []string `json:"quotes,omitempty" jsonschema:"description=Supporting quotes"`
}

func TestReflect(t *testing.T) {
	s := schema.ReflectType[verdict]()
	if s.Type != "object" {
		t.Fatalf("type: got = %q, wanted object", s.Type)
	}
	if diff := cmp.Diff([]string{"score", "explanation"}, s.Required); diff != "" {
		t.Errorf("required mismatch (-want +got):\n%s", diff)
	}
	score, ok := s.Properties.Get("score")
	if !ok {
		t.Fatal("missing score property")
	}
	if score.Type != "integer" || score.Description != "Overall score" {
		t.Errorf("score: got type=%q description=%q", score.Type, score.Description)
	}
	quotes, ok := s.Properties.Get("quotes")
	if !ok || quotes.Type != "array" || quotes.Items == nil || quotes.Items.Type != "string" {
		t.Errorf("quotes: got %+v", quotes)
	}
}

func TestDocument(t *testing.T) {
	doc, err := schema.Document[verdict]()
	if err != nil {
		t.Fatalf("Document() = %v", err)
	}
	if strings.Contains(doc, "$schema") {
		t.Errorf("Document() kept $schema:\n%s", doc)
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("Document() is not JSON: %v", err)
	}
	if parsed["type"] != "object" {
		t.Errorf("type: got = %v, wanted object", parsed["type"])
	}
}

func TestGenAI(t *testing.T) {
	got := schema.GenAI(schema.ReflectType[verdict]())

	zero, hundred := 0.0, 100.0
	want := &genai.Schema{
		Type:     genai.TypeObject,
		Required: []string{"score", "explanation"},
		Properties: map[string]*genai.Schema{
			"score": {
				Type:        genai.TypeInteger,
				Description: "Overall score",
				Minimum:     &zero,
				Maximum:     &hundred,
			},
			"explanation": {
				Type:        genai.TypeString,
				Description: "Why the score was given",
			},
			"quotes": {
				Type:        genai.TypeArray,
				Description: "Supporting quotes",
				Items:       &genai.Schema{Type: genai.TypeString},
			},
		},
		PropertyOrdering: []string{"score", "explanation", "quotes"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GenAI() mismatch (-want +got):\n%s", diff)
	}

	if schema.GenAI(nil) != nil {
		t.Error("GenAI(nil): got non-nil")
	}
}
