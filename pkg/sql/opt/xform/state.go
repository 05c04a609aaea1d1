// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/plan"
)

// optState tracks the subtrees that the heuristic driver has brought to a
// fixpoint: no rule applies to any of their nodes. Since plan nodes are
// immutable, a subtree stays at its fixpoint however many times it is
// referenced, so the state is keyed by node identity.
type optState struct {
	// done is the set of roots of the subtrees at fixpoint.
	done map[plan.RelExpr]struct{}
}

func (s *optState) init() {
	s.done = make(map[plan.RelExpr]struct{})
}

// isDone returns true if no rule applies to any node of the subtree.
func (s *optState) isDone(e plan.RelExpr) bool {
	_, ok := s.done[e]
	return ok
}

// markDone records that no rule applies to any node of the subtree.
func (s *optState) markDone(e plan.RelExpr) {
	s.done[e] = struct{}{}
}

// clean releases the state once the optimization is complete.
func (s *optState) clean() {
	s.done = nil
}

// Stats counts the work performed by an optimizer.
type Stats struct {
	// Applied is the number of rewrites performed by each rule.
	Applied [opt.NumRuleNames]int
	// Skipped is the number of times each rule was skipped because of an
	// error.
	Skipped [opt.NumRuleNames]int
}

// TotalApplied returns the number of rewrites performed by all rules.
func (s Stats) TotalApplied() int {
	n := 0
	for _, c := range s.Applied {
		n += c
	}
	return n
}
