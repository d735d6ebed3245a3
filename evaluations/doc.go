/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package evaluations accepts document evaluations, runs them in the
// background and serves their records and reports.
//
// A submission is validated synchronously. Once accepted it is stored as
// pending and handed to a goroutine owned by the Service, detached from the
// submitting request. Each completed phase is persisted and published to
// the progress relay as an update, and the final record is published as
// complete or error.
package evaluations
