// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"github.com/cockroachdb/errors"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/plan"
)

// Rule is a rewrite of a plan subtree into an equivalent one. Apply returns
// the replacement for the given subtree and true, or false if the rule does
// not apply to it. A rule that does not apply returns a nil error; an error
// means the rule met input it cannot handle.
//
// A rule never mutates the subtree it is given, and its replacement has the
// same output types. The replacement of a rule must not match the rule
// again, so that applying rules until none applies terminates.
type Rule interface {
	Name() opt.RuleName
	Apply(e plan.RelExpr) (_ plan.RelExpr, ok bool, _ error)
}

// ApplyFunc is the signature of the function that implements a rule.
type ApplyFunc func(e plan.RelExpr) (plan.RelExpr, bool, error)

type rule struct {
	name  opt.RuleName
	apply ApplyFunc
}

var _ Rule = (*rule)(nil)

// NewRule returns a Rule with the given name, implemented by apply.
func NewRule(name opt.RuleName, apply ApplyFunc) Rule {
	return &rule{name: name, apply: apply}
}

// Name implements the Rule interface.
func (r *rule) Name() opt.RuleName { return r.name }

// Apply implements the Rule interface.
func (r *rule) Apply(e plan.RelExpr) (plan.RelExpr, bool, error) { return r.apply(e) }

// HeuristicRules lists the heuristic rules in the order the driver tries
// them. FilterScan and RangeScan are only used when filters may be pushed
// into scans.
var HeuristicRules = []opt.RuleName{
	opt.FilterAggregate,
	opt.FilterJoin,
	opt.LimitProject,
	opt.LimitSort,
	opt.FilterScan,
	opt.RangeScan,
}

// Rule returns the heuristic rule with the given name.
func (c *CustomFuncs) Rule(name opt.RuleName) Rule {
	var apply ApplyFunc
	switch name {
	case opt.FilterAggregate:
		apply = c.PushFilterIntoAggregate
	case opt.FilterJoin:
		apply = c.PushFilterIntoJoin
	case opt.LimitProject:
		apply = c.PushLimitIntoProject
	case opt.LimitSort:
		apply = c.FuseLimitAndSort
	case opt.FilterScan:
		apply = c.PushFilterIntoScan
	case opt.RangeScan:
		apply = c.GenerateRangeScan
	default:
		panic(errors.AssertionFailedf("%s is not a heuristic rule", name))
	}
	return NewRule(name, apply)
}

// Rules returns the heuristic rules enabled by the configuration, in the
// order they are tried.
func (c *CustomFuncs) Rules(cfg *Config) []Rule {
	rules := make([]Rule, 0, len(HeuristicRules))
	for _, name := range HeuristicRules {
		if !cfg.ruleEnabled(name) {
			continue
		}
		rules = append(rules, c.Rule(name))
	}
	return rules
}
