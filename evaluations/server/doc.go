/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package server exposes the evaluation service over HTTP.
//
//	POST /api/evaluations              submit, 202 with the evaluation id
//	GET  /api/evaluations/:id          current record
//	GET  /api/evaluations/:id/stream   Server-Sent Events progress
//	GET  /api/evaluations/:id/report   plain-text report, 409 until scored
//	GET  /api/rubrics                  configured assessment types
//	GET  /healthz                      liveness
package server
