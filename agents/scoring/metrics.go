/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package scoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var unparsedResponses = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "docscore_unparsed_responses_total",
		Help: "Provider responses from which no score could be extracted",
	},
	[]string{"format"},
)
