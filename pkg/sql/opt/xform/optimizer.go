// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/exec/execbuilder"
	"github.com/planopt/planopt/pkg/sql/opt/norm"
	"github.com/planopt/planopt/pkg/sql/opt/plan"
	"github.com/planopt/planopt/pkg/util/log"
)

// AppliedRuleFunc defines the callback function for the NotifyOnAppliedRule
// event supported by the optimizer. It is invoked each time a rule rewrites
// a plan node, with the node before and after the rewrite.
type AppliedRuleFunc = norm.AppliedRuleFunc

// Stage identifies the last step of the optimization pipeline to run.
type Stage int

const (
	// NormalizeStage runs the normalization rules.
	NormalizeStage Stage = iota
	// ExploreStage also runs the heuristic rules.
	ExploreStage
	// PruneStage also prunes the columns that the root does not need.
	PruneStage
	// PhysicalStage also converts the plan into a physical plan. It is the
	// whole pipeline.
	PhysicalStage
)

// Optimizer transforms a bound logical plan into an equivalent physical
// plan:
//
//  1. The normalization rules simplify the scalar expressions of the plan.
//  2. The heuristic rules rewrite the tree until none applies.
//  3. The columns the root does not need are pruned.
//  4. The logical plan is converted to a physical plan.
//
// An Optimizer must be initialized with Init before use, and must not be
// copied afterwards. It can optimize any number of plans; the Stats
// accumulate across them.
type Optimizer struct {
	ctx   context.Context
	cfg   Config
	f     norm.Factory
	funcs CustomFuncs

	// rules are the heuristic rules tried by the driver, in order.
	rules []Rule

	metrics     *Metrics
	stats       Stats
	appliedRule AppliedRuleFunc
}

// Init initializes the Optimizer with a new, blank state. It returns an
// error if the configuration is invalid.
func (o *Optimizer) Init(ctx context.Context, cfg Config) error {
	// This initialization pattern ensures that fields are not unwittingly
	// reused. Field reuse must be explicit.
	*o = Optimizer{
		ctx: logtags.AddTag(ctx, "opt", nil),
		cfg: cfg,
	}
	if err := o.cfg.Validate(); err != nil {
		return err
	}
	o.f.Init()
	o.f.NotifyOnMatchedRule(o.cfg.ruleEnabled)
	o.f.NotifyOnAppliedRule(o.ruleApplied)
	o.funcs.Init(&o.f)
	o.rules = o.funcs.Rules(&o.cfg)
	return nil
}

// Config returns the validated configuration of the optimizer.
func (o *Optimizer) Config() Config {
	return o.cfg
}

// Factory returns the factory that runs the normalization rules.
func (o *Optimizer) Factory() *norm.Factory {
	return &o.f
}

// Rules returns the heuristic rules that the optimizer tries, in order.
func (o *Optimizer) Rules() []Rule {
	return o.rules
}

// SetMetrics makes the optimizer update the given metrics.
func (o *Optimizer) SetMetrics(m *Metrics) {
	o.metrics = m
}

// NotifyOnAppliedRule sets a callback function which is invoked each time
// a normalization or heuristic rule has been applied.
func (o *Optimizer) NotifyOnAppliedRule(appliedRule AppliedRuleFunc) {
	o.appliedRule = appliedRule
}

// Stats returns the counts of rule applications since Init.
func (o *Optimizer) Stats() Stats {
	return o.stats
}

// Optimize runs the whole pipeline and returns the physical plan. The input
// plan is not modified; subtrees that no step changes are shared with it. A
// physical input plan is treated as its logical counterpart, so optimizing
// the output of Optimize again gives an equivalent plan.
func (o *Optimizer) Optimize(root plan.RelExpr) (plan.RelExpr, error) {
	return o.OptimizeTo(root, PhysicalStage)
}

// OptimizeTo runs the pipeline up to and including the given stage. The
// result is checked for consistency and has the same output types as the
// input.
func (o *Optimizer) OptimizeTo(root plan.RelExpr, last Stage) (_ plan.RelExpr, err error) {
	defer func() {
		if r := recover(); r != nil {
			// This code allows us to propagate internal errors without having to add
			// error checks everywhere throughout the code. This is only possible
			// because the code does not update shared state and does not manipulate
			// locks.
			err = opt.CatchOptimizerError(r)
		}
		o.finishRun(err)
	}()

	if root == nil {
		return nil, errors.AssertionFailedf("no plan to optimize")
	}
	want := root.OutputTypes()

	e := o.f.Normalize(plan.ToLogicalTree(root))
	o.logPlan("normalized", e)

	if last >= ExploreStage {
		e = o.explore(e)
		o.logPlan("explored", e)
	}
	if last >= PruneStage {
		e = o.funcs.PruneCols(e, opt.MakeColSetRange(0, len(e.OutputTypes())))
		o.logPlan("pruned", e)
	}
	if last >= PhysicalStage {
		if e, err = execbuilder.Build(o.ctx, e); err != nil {
			return nil, err
		}
	}

	if err := plan.Check(e); err != nil {
		return nil, err
	}
	if !plan.SameSchema(want, e.OutputTypes()) {
		return nil, errors.AssertionFailedf("optimized plan has output types %s instead of %s",
			plan.FormatTypes(e.OutputTypes()), plan.FormatTypes(want))
	}
	return e, nil
}

// explore runs the heuristic rules over the tree.
func (o *Optimizer) explore(e plan.RelExpr) plan.RelExpr {
	var h heuristicOptimizer
	h.init(o.ctx, o, o.rules)
	defer h.state.clean()
	return h.optimize(e)
}

func (o *Optimizer) ruleApplied(name opt.RuleName, source, target plan.RelExpr) {
	o.stats.Applied[name]++
	if o.metrics != nil {
		o.metrics.RuleApplied.WithLabelValues(name.String()).Inc()
	}
	if log.V(3) {
		log.Infof(logtags.AddTag(o.ctx, "rule", name), "rewrote %s into %s", source.Op(), target.Op())
	}
	if o.appliedRule != nil {
		o.appliedRule(name, source, target)
	}
}

func (o *Optimizer) ruleSkipped(name opt.RuleName) {
	o.stats.Skipped[name]++
	if o.metrics != nil {
		o.metrics.RuleSkipped.WithLabelValues(name.String()).Inc()
	}
}

func (o *Optimizer) finishRun(err error) {
	if err != nil {
		log.VEventf(o.ctx, 1, "optimization failed: %v", err)
	}
	if o.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	o.metrics.Runs.WithLabelValues(status).Inc()
}

func (o *Optimizer) logPlan(step string, e plan.RelExpr) {
	if log.ExpensiveLogEnabled(o.ctx, 2) {
		log.Infof(o.ctx, "%s plan:\n%s", step, plan.Format(e))
	}
}

// Optimize optimizes the plan with a new optimizer. See Optimizer.Optimize.
func Optimize(ctx context.Context, root plan.RelExpr, cfg Config) (plan.RelExpr, error) {
	var o Optimizer
	if err := o.Init(ctx, cfg); err != nil {
		return nil, err
	}
	return o.Optimize(root)
}
