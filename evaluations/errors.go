/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluations

import (
	"errors"

	"chainguard.dev/docscore/agents/judge"
)

// ValidationError reports a malformed submission.
type ValidationError = judge.RequestError

var (
	// ErrNotReady is returned by Report before a final score exists.
	ErrNotReady = errors.New("evaluation has no final score yet")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("evaluation service is shutting down")
)
