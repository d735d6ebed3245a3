/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package progress

import "time"

// Type identifies an event on the progress stream.
type Type string

const (
	TypeConnected Type = "connected"
	TypeProgress  Type = "progress"
	TypeUpdate    Type = "update"
	TypeComplete  Type = "complete"
	TypeError     Type = "error"
	TypeHeartbeat Type = "heartbeat"
)

// Terminal reports whether no further events follow t for an evaluation.
func (t Type) Terminal() bool {
	return t == TypeComplete || t == TypeError
}

// Event is one message for the subscribers of an evaluation.
type Event struct {
	Type         Type      `json:"type"`
	EvaluationID string    `json:"evaluationId"`
	Time         time.Time `json:"time"`

	// Phase, Delta, Segment and Question describe a progress chunk.
	Phase    int    `json:"phase,omitempty"`
	Delta    string `json:"delta,omitempty"`
	Segment  *int   `json:"segment,omitempty"`
	Question *int   `json:"question,omitempty"`

	// Score is the latest extracted score, when there is one.
	Score   *int   `json:"score,omitempty"`
	Message string `json:"message,omitempty"`
	// Data carries the record snapshot for update, complete and error events.
	Data any `json:"data,omitempty"`
}
