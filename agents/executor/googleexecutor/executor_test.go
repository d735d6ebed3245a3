/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"chainguard.dev/docscore/agents/executor"
	"chainguard.dev/docscore/agents/executor/googleexecutor"
	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

// fakeGemini serves streamGenerateContent. Requests for missingModel get a
// NOT_FOUND error.
type fakeGemini struct {
	missingModel string
	parts        []string

	mu        sync.Mutex
	models    []string
	mimeTypes []string
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, rest, ok := strings.Cut(r.URL.Path, "/models/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	model, _, _ := strings.Cut(rest, ":")

	var body struct {
		GenerationConfig struct {
			ResponseMIMEType string `json:"responseMimeType"`
		} `json:"generationConfig"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.models = append(f.models, model)
	f.mimeTypes = append(f.mimeTypes, body.GenerationConfig.ResponseMIMEType)
	f.mu.Unlock()

	if model == f.missingModel {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"error":{"code":404,"message":"models/%s is not found","status":"NOT_FOUND"}}`, model)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	for _, p := range f.parts {
		b, _ := json.Marshal(p)
		fmt.Fprintf(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":%s}]}}],\"usageMetadata\":{\"promptTokenCount\":10,\"candidatesTokenCount\":3}}\n\n", b)
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
	}
}

func newClient(t *testing.T, url string) *genai.Client {
	t.Helper()
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: url},
	})
	if err != nil {
		t.Fatalf("genai.NewClient() = %v", err)
	}
	return client
}

func TestStreamDeliversParts(t *testing.T) {
	fake := &fakeGemini{parts: []string{`{"score": `, `64, "explanation": "thin argument"}`}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s, err := googleexecutor.New(newClient(t, srv.URL))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	got, err := executor.Collect(s.Stream(context.Background(), "Evaluate this.", "Be strict.", executor.WithJSONOutput()))
	if err != nil {
		t.Fatalf("Stream() = %v", err)
	}
	if want := strings.Join(fake.parts, ""); got != want {
		t.Errorf("text: got = %q, wanted %q", got, want)
	}
	if diff := cmp.Diff([]string{"application/json"}, fake.mimeTypes); diff != "" {
		t.Errorf("mime types mismatch (-want +got):\n%s", diff)
	}
}

func TestStreamFallsBackOnUnknownModel(t *testing.T) {
	fake := &fakeGemini{missingModel: "gemini-retired", parts: []string{"OVERALL SCORE: 81"}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s, err := googleexecutor.New(newClient(t, srv.URL),
		googleexecutor.WithModel("gemini-retired"),
		googleexecutor.WithFallbackModel("gemini-2.5-flash"),
	)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	got, err := executor.Collect(s.Stream(context.Background(), "Evaluate this.", ""))
	if err != nil {
		t.Fatalf("Stream() = %v", err)
	}
	if got != "OVERALL SCORE: 81" {
		t.Errorf("text: got = %q", got)
	}
	if diff := cmp.Diff([]string{"gemini-retired", "gemini-2.5-flash"}, fake.models); diff != "" {
		t.Errorf("models mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"", ""}, fake.mimeTypes); diff != "" {
		t.Errorf("mime types mismatch (-want +got):\n%s", diff)
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()
	client := newClient(t, "http://127.0.0.1:0")

	tests := []struct {
		name    string
		opt     googleexecutor.Option
		wantErr bool
	}{
		{"valid model", googleexecutor.WithModel("gemini-2.5-pro"), false},
		{"non-gemini model", googleexecutor.WithModel("claude-sonnet-4-5"), true},
		{"disable fallback", googleexecutor.WithFallbackModel(""), false},
		{"temperature too high", googleexecutor.WithTemperature(2.5), true},
		{"too many tokens", googleexecutor.WithMaxOutputTokens(64000), true},
		{"zero timeout", googleexecutor.WithTimeout(0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := googleexecutor.New(client, tt.opt)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if _, err := googleexecutor.New(nil); err == nil {
		t.Error("expected error for nil client")
	}
}

func TestStreamEnrichesTokenMetrics(t *testing.T) {
	fake := &fakeGemini{parts: []string{"OVERALL SCORE: 70"}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	var mu sync.Mutex
	var seen []attribute.KeyValue
	enrich := func(_ context.Context, attrs []attribute.KeyValue) []attribute.KeyValue {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, attrs...)
		return attrs
	}
	s, err := googleexecutor.New(newClient(t, srv.URL), googleexecutor.WithAttributeEnricher(enrich))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if _, err := executor.Collect(s.Stream(context.Background(), "Evaluate this.", "")); err != nil {
		t.Fatalf("Stream() = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []attribute.KeyValue{
		attribute.String("provider", "google"),
		attribute.String("model", googleexecutor.DefaultModel),
	}
	if diff := cmp.Diff(want, seen, cmp.Comparer(func(a, b attribute.KeyValue) bool { return a == b })); diff != "" {
		t.Errorf("enriched attributes (-want +got):\n%s", diff)
	}
}
