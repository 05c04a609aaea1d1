// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus counters updated by optimizers. A single
// Metrics can be shared by any number of optimizers.
type Metrics struct {
	// RuleApplied counts the rewrites performed by each rule.
	RuleApplied *prometheus.CounterVec
	// RuleSkipped counts the times a rule met input it could not handle and
	// was skipped.
	RuleSkipped *prometheus.CounterVec
	// Runs counts the optimizations by outcome, "success" or "failure".
	Runs *prometheus.CounterVec
}

// NewMetrics creates the optimizer metrics and registers them with reg. A
// nil reg creates unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RuleApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "optimizer",
			Name:      "rule_applied_total",
			Help:      "Number of plan rewrites performed by each rule.",
		}, []string{"rule"}),
		RuleSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "optimizer",
			Name:      "rule_skipped_total",
			Help:      "Number of times a rule was skipped because of an error.",
		}, []string{"rule"}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "optimizer",
			Name:      "runs_total",
			Help:      "Number of optimizations by outcome.",
		}, []string{"status"}),
	}
}
