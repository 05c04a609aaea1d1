// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package norm contains the normalization rules and the column pruning pass.
//
// Normalization rules are always-on rewrites of the scalar expressions of a
// plan (and of the few plan nodes that those rewrites make trivial). Each rule
// runs once over the whole tree, in a fixed order:
//
//	ConstantFolding, ArithSimplification, BoolSimplification, ConstantMoving
//
// so that the heuristic rules that follow see simplified predicates in the
// canonical "expr OP constant" form.
package norm

import (
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/plan"
	"github.com/planopt/planopt/pkg/sql/opt/scalar"
)

// MatchedRuleFunc defines the callback function for the NotifyOnMatchedRule
// event supported by the factory. It is invoked before a normalization rule
// runs. If it returns false, the rule is skipped.
type MatchedRuleFunc func(ruleName opt.RuleName) bool

// AppliedRuleFunc defines the callback function for the NotifyOnAppliedRule
// event supported by the factory. It is invoked each time a normalization
// rule rewrites a plan node, with the node before and after the rewrite.
type AppliedRuleFunc func(ruleName opt.RuleName, source, target plan.RelExpr)

// Rules lists the normalization rules in the order they run.
var Rules = []opt.RuleName{
	opt.ConstantFolding,
	opt.ArithSimplification,
	opt.BoolSimplification,
	opt.ConstantMoving,
}

// Factory runs the normalization rules over plan trees.
type Factory struct {
	funcs CustomFuncs

	// matchedRule is the callback function that is invoked each time a
	// normalization rule is about to run. It can be set via a call to the
	// NotifyOnMatchedRule method.
	matchedRule MatchedRuleFunc

	// appliedRule is the callback function which is invoked each time a
	// normalization rule has rewritten a node. It can be set via a call to
	// the NotifyOnAppliedRule method.
	appliedRule AppliedRuleFunc
}

// Init initializes a Factory structure with a new, blank state.
func (f *Factory) Init() {
	// This initialization pattern ensures that fields are not unwittingly
	// reused. Field reuse must be explicit.
	*f = Factory{}
	f.funcs.Init(f)
}

// CustomFuncs returns the set of custom functions used by the normalization
// rules.
func (f *Factory) CustomFuncs() *CustomFuncs {
	return &f.funcs
}

// NotifyOnMatchedRule sets a callback function which is invoked each time a
// normalization rule is about to run. If the function returns false, the rule
// is not applied. By default, all rules are applied, but callers can set the
// callback function to override the default behavior. In addition, callers
// can invoke the DisableOptimizations convenience method to disable all
// rules.
func (f *Factory) NotifyOnMatchedRule(matchedRule MatchedRuleFunc) {
	f.matchedRule = matchedRule
}

// NotifyOnAppliedRule sets a callback function which is invoked each time a
// normalization rule has been applied by the factory.
func (f *Factory) NotifyOnAppliedRule(appliedRule AppliedRuleFunc) {
	f.appliedRule = appliedRule
}

// DisableOptimizations disables all normalization rules.
func (f *Factory) DisableOptimizations() {
	f.NotifyOnMatchedRule(func(opt.RuleName) bool { return false })
}

// Normalize runs every normalization rule once over the tree, in order, and
// returns the rewritten tree. Subtrees that no rule changes are shared with
// the input tree.
func (f *Factory) Normalize(e plan.RelExpr) plan.RelExpr {
	for _, rule := range Rules {
		e = f.ApplyRule(rule, e)
	}
	return e
}

// ApplyRule runs a single normalization rule over the tree.
func (f *Factory) ApplyRule(ruleName opt.RuleName, e plan.RelExpr) plan.RelExpr {
	if f.matchedRule != nil && !f.matchedRule(ruleName) {
		return e
	}
	var replace scalar.ReplaceFunc
	var rewriteRel func(plan.RelExpr) plan.RelExpr
	switch ruleName {
	case opt.ConstantFolding:
		replace = f.funcs.FoldConstant
	case opt.ArithSimplification:
		replace = f.funcs.SimplifyArith
	case opt.BoolSimplification:
		replace = f.funcs.SimplifyBool
		rewriteRel = f.funcs.SimplifyConstFilter
	case opt.ConstantMoving:
		replace = f.funcs.MoveConstants
	default:
		return e
	}
	return f.walk(ruleName, e, replace, rewriteRel)
}

// walk rewrites the tree bottom-up: the children of a node are rewritten
// before the node itself.
func (f *Factory) walk(
	ruleName opt.RuleName,
	e plan.RelExpr,
	replace scalar.ReplaceFunc,
	rewriteRel func(plan.RelExpr) plan.RelExpr,
) plan.RelExpr {
	n := e.ChildCount()
	var children []plan.RelExpr
	if n > 0 {
		children = make([]plan.RelExpr, n)
		for i := range children {
			children[i] = f.walk(ruleName, e.Child(i), replace, rewriteRel)
		}
	}
	withChildren := plan.WithChildren(e, children...)

	res := plan.ReplaceScalars(withChildren, replace)
	if rewriteRel != nil {
		res = rewriteRel(res)
	}
	if res != withChildren && f.appliedRule != nil {
		f.appliedRule(ruleName, withChildren, res)
	}
	return res
}
