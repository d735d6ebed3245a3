/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluations

import (
	"context"
	"errors"
	"time"

	"chainguard.dev/docscore/agents/executor"
	"chainguard.dev/docscore/agents/judge"
	"chainguard.dev/docscore/agents/scoring"
)

// Status is the lifecycle state of an evaluation.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Terminal reports whether the evaluation has finished.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Record is the persisted view of an evaluation. While the evaluation runs,
// Outcome holds the phases completed so far and OverallScore is nil.
type Record struct {
	ID               string              `json:"id"`
	Status           Status              `json:"status"`
	AssessmentType   string              `json:"assessmentType"`
	AssessmentMode   judge.Mode          `json:"assessmentMode"`
	ProviderID       executor.ProviderID `json:"providerId"`
	SelectedSegments []int               `json:"selectedSegments,omitempty"`
	DocumentChars    int                 `json:"documentChars"`

	OverallScore *int           `json:"overallScore"`
	Outcome      *judge.Outcome `json:"outcome,omitempty"`
	Error        string         `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ErrInterrupted is the error recorded on evaluations that a previous
// process left unfinished.
var ErrInterrupted = errors.New("evaluation was interrupted by a service restart")

// Interrupt marks an evaluation that can no longer finish as failed with
// the failure score. Phases completed before the interruption are kept.
func (r *Record) Interrupt(now time.Time) {
	score := scoring.FailureScore
	r.Status = StatusFailed
	r.OverallScore = &score
	r.Error = ErrInterrupted.Error()
	r.UpdatedAt = now
	r.CompletedAt = &now
}

// ErrNotFound is returned by a Store for an unknown id.
var ErrNotFound = errors.New("evaluation not found")

// Store persists records. Implementations must not retain rec after Save
// returns.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
}
