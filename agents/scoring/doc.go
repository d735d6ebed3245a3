/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package scoring turns free-form provider output into a bounded score.
//
// Extract trusts the model: it only parses and clamps, and never adjusts a
// score based on the content of the document. When a response carries no
// score at all, NeutralScore is used and the response is counted in
// docscore_unparsed_responses_total.
package scoring
