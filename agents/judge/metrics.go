/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docscore_evaluations_total",
			Help: "Completed evaluations by provider, mode and result",
		},
		[]string{"provider", "mode", "result"},
	)
	phasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docscore_phases_total",
			Help: "Executed evaluation phases",
		},
		[]string{"phase"},
	)
	finalScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docscore_final_score",
			Help:    "Distribution of final evaluation scores",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)
)
