/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package scoring

import (
	"chainguard.dev/docscore/agents/rubric"
	"github.com/prometheus/client_golang/prometheus"
)

func UnparsedCounter(f rubric.Format) prometheus.Counter {
	return unparsedResponses.WithLabelValues(string(f))
}
