// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/plan"
	"github.com/planopt/planopt/pkg/util/log"
)

// heuristicOptimizer applies a list of rules to a plan tree until none of
// them applies to any node.
//
// The tree is traversed bottom-up. At each node, the rules are tried in
// order; the first one that applies replaces the node, and trying restarts
// from the first rule against the replacement. New children of a replacement
// are brought to their own fixpoint first, so that, for example, a filter
// pushed below a join can be folded into a scan. When no rule applies, the
// driver moves to the parent.
type heuristicOptimizer struct {
	ctx   context.Context
	rules []Rule
	o     *Optimizer
	state optState

	// skipLog rate limits the warnings about skipped rules.
	skipLog log.EveryN
}

func (h *heuristicOptimizer) init(ctx context.Context, o *Optimizer, rules []Rule) {
	*h = heuristicOptimizer{
		ctx:     ctx,
		rules:   rules,
		o:       o,
		skipLog: log.Every(time.Second),
	}
	h.state.init()
}

// optimize returns the fixpoint of the subtree. It panics with an error if a
// rule breaks the contract of the Rule interface or, in strict mode, if a
// rule fails.
func (h *heuristicOptimizer) optimize(e plan.RelExpr) plan.RelExpr {
	if h.state.isDone(e) {
		return e
	}
	e = h.optimizeChildren(e)
	e = h.applyRules(e)
	h.state.markDone(e)
	return e
}

func (h *heuristicOptimizer) optimizeChildren(e plan.RelExpr) plan.RelExpr {
	n := e.ChildCount()
	if n == 0 {
		return e
	}
	children := make([]plan.RelExpr, n)
	for i := range children {
		children[i] = h.optimize(e.Child(i))
	}
	return plan.WithChildren(e, children...)
}

// applyRules brings the node to a local fixpoint. The children of e must be
// at their fixpoint.
func (h *heuristicOptimizer) applyRules(e plan.RelExpr) plan.RelExpr {
	limit := h.o.cfg.MaxRewritesPerNode
	for rewrites := 0; ; {
		var (
			replacement plan.RelExpr
			applied     Rule
		)
		for _, r := range h.rules {
			if repl, ok := h.tryRule(r, e); ok {
				replacement, applied = repl, r
				break
			}
		}
		if replacement == nil {
			return e
		}
		rewrites++
		if rewrites > limit {
			panic(errors.AssertionFailedf(
				"%s exceeded %d rewrites of a %s node", applied.Name(), limit, e.Op()))
		}
		e = h.optimizeChildren(replacement)
	}
}

// tryRule applies the rule to the node and returns the replacement, or false
// if the rule does not apply. Errors from the rule are handled here.
func (h *heuristicOptimizer) tryRule(r Rule, e plan.RelExpr) (plan.RelExpr, bool) {
	replacement, ok, err := r.Apply(e)
	if err != nil {
		if !opt.IsRuleError(err) || h.o.cfg.StrictRuleErrors {
			panic(errors.Wrapf(err, "applying %s to %s", r.Name(), e.Op()))
		}
		h.o.ruleSkipped(r.Name())
		if h.skipLog.ShouldLog() {
			ctx := logtags.AddTag(h.ctx, "rule", r.Name())
			log.Warningf(ctx, "skipping rule at %s: %v", e.Op(), err)
		}
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if replacement == nil {
		panic(errors.AssertionFailedf("%s returned no replacement for %s", r.Name(), e.Op()))
	}
	if !plan.SameSchema(e.OutputTypes(), replacement.OutputTypes()) {
		panic(errors.AssertionFailedf(
			"%s changed the output types of %s from %s to %s", r.Name(), e.Op(),
			plan.FormatTypes(e.OutputTypes()), plan.FormatTypes(replacement.OutputTypes())))
	}
	h.o.ruleApplied(r.Name(), e, replacement)
	return replacement, true
}
