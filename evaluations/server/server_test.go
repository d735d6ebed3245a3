/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package server_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chainguard.dev/docscore/agents/executor"
	"chainguard.dev/docscore/agents/rubric"
	"chainguard.dev/docscore/evaluations"
	"chainguard.dev/docscore/evaluations/server"
	"chainguard.dev/docscore/evaluations/store"
	"chainguard.dev/docscore/progress"
	"github.com/stretchr/testify/require"
)

type gatedStreamer struct {
	gate chan struct{}
}

func (g *gatedStreamer) Stream(ctx context.Context, _, _ string, _ ...executor.CallOption) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		select {
		case <-g.gate:
		case <-ctx.Done():
			yield("", ctx.Err())
			return
		}
		if !yield("Direct and brief. ", nil) {
			return
		}
		yield("OVERALL SCORE: 77", nil)
	}
}

type fixture struct {
	url  string
	gate chan struct{}
	db   *store.SQLite
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := rubric.Default()
	require.NoError(t, err)

	gate := make(chan struct{})
	reg := executor.NewRegistry()
	require.NoError(t, reg.Register(executor.OpenAI, &gatedStreamer{gate: gate}))

	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	cached, err := store.NewCached(db, 16)
	require.NoError(t, err)

	relay := progress.New()
	t.Cleanup(relay.Close)

	svc, err := evaluations.New(reg, cat, cached, relay, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(server.New(svc, relay).Handler())
	t.Cleanup(srv.Close)
	return &fixture{url: srv.URL, gate: gate, db: db}
}

func (f *fixture) submit(t *testing.T, body any) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.url+"/api/evaluations", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func (f *fixture) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(f.url + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func validBody() map[string]any {
	return map[string]any{
		"documentText":   "Please approve the Q3 hiring plan by Friday.",
		"assessmentType": "business",
		"assessmentMode": "single",
		"providerId":     "openai",
	}
}

type sseEvent struct {
	Type string
	Data map[string]any
}

// readEvents parses events from r until one of type until arrives or the stream ends.
func readEvents(t *testing.T, r io.Reader, until string) []sseEvent {
	t.Helper()
	var events []sseEvent
	var current sseEvent
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.Type = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &current.Data))
		case line == "":
			if current.Type == "" {
				continue
			}
			events = append(events, current)
			if current.Type == until {
				return events
			}
			current = sseEvent{}
		}
	}
	return events
}

func types(events []sseEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	close(f.gate)

	body := validBody()
	body["assessmentMode"] = "triple"
	resp, out := f.submit(t, body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "assessmentMode", out["field"])

	body = validBody()
	body["providerId"] = "anthropic"
	resp, _ = f.submit(t, body)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	r, err := http.Post(f.url+"/api/evaluations", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	r.Body.Close()
	require.Equal(t, http.StatusBadRequest, r.StatusCode)
}

func TestEvaluationLifecycle(t *testing.T) {
	f := newFixture(t)

	resp, out := f.submit(t, validBody())
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id, _ := out["evaluationId"].(string)
	require.NotEmpty(t, id)

	code, body := f.get(t, "/api/evaluations/"+id)
	require.Equal(t, http.StatusOK, code)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &rec))
	require.Nil(t, rec["overallScore"])

	code, _ = f.get(t, "/api/evaluations/"+id+"/report")
	require.Equal(t, http.StatusConflict, code)

	stream, err := http.Get(f.url + "/api/evaluations/" + id + "/stream")
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	// The first two events arrive before the provider answers.
	reader := bufio.NewReader(stream.Body)
	head := readEventsN(t, reader, 2)
	require.Equal(t, []string{"connected", "update"}, types(head))

	close(f.gate)
	rest := readEvents(t, reader, "complete")
	require.NotEmpty(t, rest)
	require.Equal(t, "complete", rest[len(rest)-1].Type)
	require.Contains(t, types(rest), "progress")
	require.EqualValues(t, 77, rest[len(rest)-1].Data["score"])

	code, body = f.get(t, "/api/evaluations/"+id+"/report")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "OVERALL SCORE: 77/100")
}

// readEventsN reads exactly n events.
func readEventsN(t *testing.T, r *bufio.Reader, n int) []sseEvent {
	t.Helper()
	var events []sseEvent
	var current sseEvent
	for len(events) < n {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			current.Type = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &current.Data))
		case line == "" && current.Type != "":
			events = append(events, current)
			current = sseEvent{}
		}
	}
	return events
}

func TestStreamAfterCompletion(t *testing.T) {
	f := newFixture(t)
	close(f.gate)

	_, out := f.submit(t, validBody())
	id := out["evaluationId"].(string)

	require.Eventually(t, func() bool {
		code, _ := f.get(t, "/api/evaluations/"+id+"/report")
		return code == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	stream, err := http.Get(f.url + "/api/evaluations/" + id + "/stream")
	require.NoError(t, err)
	defer stream.Body.Close()

	events := readEvents(t, stream.Body, "complete")
	require.Equal(t, []string{"connected", "update", "complete"}, types(events))
	data, ok := events[1].Data["data"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "complete", data["status"])
}

func TestStreamInterruptedEvaluation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, f.db.Save(ctx, &evaluations.Record{
		ID:             "stale",
		Status:         evaluations.StatusRunning,
		AssessmentType: "business",
		ProviderID:     executor.OpenAI,
		CreatedAt:      created,
		UpdatedAt:      created,
	}))
	n, err := f.db.FailInterrupted(ctx, created.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// A stream left open would hit the client timeout and miss the error event.
	client := &http.Client{Timeout: 5 * time.Second}
	stream, err := client.Get(f.url + "/api/evaluations/stale/stream")
	require.NoError(t, err)
	defer stream.Body.Close()

	events := readEvents(t, stream.Body, "error")
	require.Equal(t, []string{"connected", "update", "error"}, types(events))
	require.Equal(t, evaluations.ErrInterrupted.Error(), events[2].Data["message"])
	require.EqualValues(t, 0, events[2].Data["score"])
}

func TestUnknownEvaluation(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{
		"/api/evaluations/nope",
		"/api/evaluations/nope/report",
		"/api/evaluations/nope/stream",
	} {
		code, _ := f.get(t, path)
		require.Equal(t, http.StatusNotFound, code, path)
	}
}

func TestRubricsAndHealth(t *testing.T) {
	f := newFixture(t)

	code, body := f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "ok")

	code, body = f.get(t, "/api/rubrics")
	require.Equal(t, http.StatusOK, code)
	var out struct {
		Rubrics []struct {
			ID     string `json:"id"`
			Format string `json:"format"`
		} `json:"rubrics"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	require.Len(t, out.Rubrics, 4)
	require.Equal(t, "academic", out.Rubrics[0].ID)
	require.Equal(t, "json", out.Rubrics[0].Format)
}
