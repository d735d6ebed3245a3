/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package rubric loads assessment types and prompt wording from YAML.
//
// The built-in catalogue is embedded from defaults.yaml. An operator file
// passed to LoadFile is decoded on top of it, so it may override only the
// keys it sets. Unknown keys are rejected. Templates are parsed with
// promptbuilder.ParseTemplate when the catalogue is built, so a malformed
// template fails at startup rather than on the first evaluation.
package rubric
