/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package store persists evaluation records in SQLite, with an optional
// in-memory LRU layer for finished records.
package store
