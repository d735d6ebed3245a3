/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package progress relays evaluation progress to live subscribers.
//
// The relay is an explicit object shared by the evaluation runner and the
// HTTP layer. Events are not buffered: a subscriber that connects late reads
// the current state from the store and then receives only new events.
package progress
