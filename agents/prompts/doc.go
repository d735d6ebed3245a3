/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package prompts assembles provider prompts from rubric configuration.
//
// There is a single assembly path for every rubric; rubrics differ only in
// the configuration data they carry. Document text is always bound through
// XML so that markup in a submission cannot alter the prompt structure.
package prompts
