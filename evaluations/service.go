/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluations

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chainguard.dev/docscore/agents/executor"
	"chainguard.dev/docscore/agents/judge"
	"chainguard.dev/docscore/agents/rubric"
	"chainguard.dev/docscore/agents/scoring"
	"chainguard.dev/docscore/progress"
	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
)

// SubmitRequest is the body of a submission.
type SubmitRequest struct {
	DocumentText     string `json:"documentText"`
	AssessmentType   string `json:"assessmentType"`
	AssessmentMode   string `json:"assessmentMode"`
	ProviderID       string `json:"providerId"`
	SelectedSegments []int  `json:"selectedSegments,omitempty"`
}

// Service accepts submissions, runs them in the background and serves their
// records and reports.
type Service struct {
	judge *judge.Judge
	store Store
	relay *progress.Relay
	now   func() time.Time
	newID func() string

	mu       sync.Mutex
	closed   bool
	inflight map[string]*Record
	wg       sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces uuid.NewString for evaluation ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// New creates a Service. The judge publishes to relay and reports every
// completed phase back to the service, which persists it.
func New(providers *executor.Registry, catalog *rubric.Catalog, store Store, relay *progress.Relay, judgeOpts []judge.Option, opts ...Option) (*Service, error) {
	s := &Service{
		store:    store,
		relay:    relay,
		now:      time.Now,
		newID:    uuid.NewString,
		inflight: make(map[string]*Record),
	}
	for _, opt := range opts {
		opt(s)
	}

	jopts := append([]judge.Option{}, judgeOpts...)
	jopts = append(jopts, judge.WithPublisher(relay), judge.WithPhaseHook(s.onPhase))
	j, err := judge.New(providers, catalog, jopts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create judge: %w", err)
	}
	s.judge = j
	return s, nil
}

// Rubrics lists the configured assessment types.
func (s *Service) Rubrics() []rubric.Rubric {
	return s.judge.Catalog().List()
}

// Submit validates in, stores a pending record and starts the evaluation in
// the background. The evaluation is detached from ctx: cancelling the
// request does not stop it.
//
// A malformed request returns a *ValidationError; an unconfigured provider
// returns an *executor.ConfigurationError.
func (s *Service) Submit(ctx context.Context, in SubmitRequest) (string, error) {
	req := &judge.Request{
		EvaluationID:   s.newID(),
		Document:       in.DocumentText,
		AssessmentType: in.AssessmentType,
		Mode:           judge.Mode(in.AssessmentMode),
		Provider:       executor.ProviderID(in.ProviderID),
		Segments:       in.SelectedSegments,
	}
	if err := s.judge.Validate(req); err != nil {
		return "", err
	}

	now := s.now()
	rec := &Record{
		ID:               req.EvaluationID,
		Status:           StatusPending,
		AssessmentType:   req.AssessmentType,
		AssessmentMode:   req.Mode,
		ProviderID:       req.Provider,
		SelectedSegments: req.Segments,
		DocumentChars:    len([]rune(req.Document)),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	if err := s.store.Save(ctx, rec); err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("saving evaluation: %w", err)
	}
	s.inflight[rec.ID] = rec
	s.wg.Add(1)
	s.mu.Unlock()

	s.relay.Begin(rec.ID)
	go s.run(context.WithoutCancel(ctx), req, rec)

	clog.FromContext(ctx).With("evaluation_id", rec.ID).
		With("assessment_type", rec.AssessmentType).
		With("mode", string(rec.AssessmentMode)).
		With("provider", string(rec.ProviderID)).
		Info("Evaluation submitted")
	return rec.ID, nil
}

// Status returns the current record for id, or ErrNotFound.
func (s *Service) Status(ctx context.Context, id string) (*Record, error) {
	return s.store.Get(ctx, id)
}

// Report renders the plain-text report for id. It returns ErrNotReady until
// a final score exists.
func (s *Service) Report(ctx context.Context, id string) (string, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if rec.OverallScore == nil {
		return "", ErrNotReady
	}
	name := rec.AssessmentType
	if r, ok := s.judge.Catalog().Get(rec.AssessmentType); ok {
		name = r.Name
	}
	return RenderReport(rec, name), nil
}

// Close stops accepting submissions and waits for running evaluations
// until ctx is done.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running evaluations: %w", ctx.Err())
	}
}

func (s *Service) run(ctx context.Context, req *judge.Request, rec *Record) {
	defer s.wg.Done()
	defer s.relay.End(rec.ID)
	defer func() {
		s.mu.Lock()
		delete(s.inflight, rec.ID)
		s.mu.Unlock()
	}()

	rec.Status = StatusRunning
	s.persist(ctx, rec, progress.TypeUpdate)

	outcome, err := s.judge.Evaluate(ctx, req)
	score := scoring.FailureScore
	switch {
	case err != nil:
		rec.Status = StatusFailed
		rec.Error = err.Error()
	case outcome.Failed:
		rec.Outcome = outcome
		rec.Status = StatusFailed
		rec.Error = outcome.Error
		score = outcome.FinalScore
	default:
		rec.Outcome = outcome
		rec.Status = StatusComplete
		score = outcome.FinalScore
	}
	rec.OverallScore = &score
	completed := s.now()
	rec.CompletedAt = &completed

	if rec.Status == StatusFailed {
		s.persist(ctx, rec, progress.TypeError)
		return
	}
	s.persist(ctx, rec, progress.TypeComplete)
}

// onPhase stores the partial outcome of a running evaluation.
func (s *Service) onPhase(ctx context.Context, id string, partial *judge.Outcome) {
	s.mu.Lock()
	rec, ok := s.inflight[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	rec.Outcome = partial
	s.persist(ctx, rec, progress.TypeUpdate)
}

// persist saves rec and publishes a snapshot of it. Storage failures are
// logged; the evaluation keeps running.
func (s *Service) persist(ctx context.Context, rec *Record, typ progress.Type) {
	rec.UpdatedAt = s.now()
	if err := s.store.Save(ctx, rec); err != nil {
		clog.FromContext(ctx).With("evaluation_id", rec.ID).
			With("error", err).
			Error("Failed to persist evaluation")
	}

	snapshot := *rec
	ev := progress.Event{Type: typ, Data: &snapshot, Score: snapshot.OverallScore}
	if typ == progress.TypeError {
		ev.Message = rec.Error
	}
	s.relay.Publish(rec.ID, ev)
}
