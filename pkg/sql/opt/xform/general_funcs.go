// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package xform contains the heuristic rewrite rules and the optimizer
// pipeline that runs them.
package xform

import (
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/constraint"
	"github.com/planopt/planopt/pkg/sql/opt/norm"
	"github.com/planopt/planopt/pkg/sql/opt/plan"
	"github.com/planopt/planopt/pkg/sql/opt/scalar"
)

// CustomFuncs contains all the custom match and replace functions used by the
// heuristic rules. The unnamed norm.CustomFuncs allows CustomFuncs to provide
// a clean interface for calling functions from both the xform and norm
// packages using the same struct.
//
// Every function takes the candidate node and returns the replacement, or
// false if the rule does not apply to the node. Only logical nodes are
// matched: physical nodes share the Go types of their logical counterparts,
// so every match checks the operator as well as the type.
type CustomFuncs struct {
	norm.CustomFuncs
}

// Init initializes a new CustomFuncs with the given factory.
func (c *CustomFuncs) Init(f *norm.Factory) {
	// This initialization pattern ensures that fields are not unwittingly
	// reused. Field reuse must be explicit.
	*c = CustomFuncs{}
	c.CustomFuncs.Init(f)
}

// ----------------------------------------------------------------------
//
// Filter functions
//
// ----------------------------------------------------------------------

// PushFilterIntoAggregate pushes the conjuncts of a filter over an
// aggregation that only reference grouping keys below the aggregation. The
// key references are replaced by the grouping expressions. Conjuncts that
// reference aggregates stay above. A scalar aggregation is never matched,
// since it returns a row even if its input is empty.
func (c *CustomFuncs) PushFilterIntoAggregate(e plan.RelExpr) (plan.RelExpr, bool, error) {
	filter, ok := matchFilter(e)
	if !ok {
		return nil, false, nil
	}
	agg, ok := filter.Input.(*plan.AggregateExpr)
	if !ok || agg.Op() != opt.AggregateOp || len(agg.GroupBy) == 0 {
		return nil, false, nil
	}

	numAggs := len(agg.Aggregates)
	keys := opt.MakeColSetRange(numAggs, numAggs+len(agg.GroupBy))
	pushed, remaining := splitConjuncts(filter.Predicate, func(cols opt.ColSet) bool {
		return !cols.Empty() && cols.SubsetOf(keys)
	})
	if len(pushed) == 0 {
		return nil, false, nil
	}

	below := scalar.Substitute(scalar.Shift(scalar.And(pushed...), -numAggs), agg.GroupBy)
	newAgg := plan.WithChildren(agg, plan.NewFilter(agg.Input, below))
	return constructFilter(newAgg, remaining), true, nil
}

// PushFilterIntoJoin pushes the conjuncts of a filter over a join into the
// join inputs whose columns they reference.
//
// For inner and cross joins, the conjuncts of the filter and of the join
// condition are considered together: the ones that only reference one side
// are pushed into that side and the others form the new join condition. An
// inner join left without a condition becomes a cross join.
//
// For outer joins, only the conjuncts that reference the preserved side are
// pushed; the other conjuncts stay above the join. Full joins are not
// matched.
func (c *CustomFuncs) PushFilterIntoJoin(e plan.RelExpr) (plan.RelExpr, bool, error) {
	filter, ok := matchFilter(e)
	if !ok {
		return nil, false, nil
	}
	join, ok := filter.Input.(*plan.JoinExpr)
	if !ok || join.Op() != opt.JoinOp {
		return nil, false, nil
	}

	leftWidth := len(join.Left.OutputTypes())
	width := len(join.OutputTypes())
	leftCols := opt.MakeColSetRange(0, leftWidth)
	rightCols := opt.MakeColSetRange(leftWidth, width)
	onlyIn := func(side opt.ColSet) func(cols opt.ColSet) bool {
		return func(cols opt.ColSet) bool {
			return !cols.Empty() && cols.SubsetOf(side)
		}
	}

	switch join.JoinType {
	case plan.InnerJoin, plan.CrossJoin:
		conjuncts := append(scalar.Conjuncts(join.On), scalar.Conjuncts(filter.Predicate)...)
		left, rest := splitList(conjuncts, onlyIn(leftCols))
		right, on := splitList(rest, onlyIn(rightCols))
		for i := range right {
			right[i] = scalar.Shift(right[i], -leftWidth)
		}
		joinType := plan.InnerJoin
		if len(on) == 0 {
			joinType = plan.CrossJoin
		}
		return plan.NewJoin(
			constructFilter(join.Left, left),
			constructFilter(join.Right, right),
			joinType,
			scalar.And(on...),
		), true, nil

	case plan.LeftOuterJoin:
		pushed, remaining := splitConjuncts(filter.Predicate, onlyIn(leftCols))
		if len(pushed) == 0 {
			return nil, false, nil
		}
		newJoin := plan.WithChildren(join, constructFilter(join.Left, pushed), join.Right)
		return constructFilter(newJoin, remaining), true, nil

	case plan.RightOuterJoin:
		pushed, remaining := splitConjuncts(filter.Predicate, onlyIn(rightCols))
		if len(pushed) == 0 {
			return nil, false, nil
		}
		for i := range pushed {
			pushed[i] = scalar.Shift(pushed[i], -leftWidth)
		}
		newJoin := plan.WithChildren(join, join.Left, constructFilter(join.Right, pushed))
		return constructFilter(newJoin, remaining), true, nil
	}
	return nil, false, nil
}

// PushFilterIntoScan folds a filter directly above a table scan into the
// residual filter of the scan. An existing residual filter is combined with
// the new predicate, and the bounds derived from it are cleared so that they
// can be derived again from the combined filter.
func (c *CustomFuncs) PushFilterIntoScan(e plan.RelExpr) (plan.RelExpr, bool, error) {
	filter, ok := matchFilter(e)
	if !ok {
		return nil, false, nil
	}
	scan, ok := filter.Input.(*plan.ScanExpr)
	if !ok || scan.Op() != opt.ScanOp {
		return nil, false, nil
	}

	private := scan.ScanPrivate
	if private.Filter == nil {
		private.Filter = filter.Predicate
	} else {
		private.Filter = scalar.MakeBinary(opt.AndOp, private.Filter, filter.Predicate)
	}
	private.Lower, private.Upper = nil, nil
	return plan.NewScan(private), true, nil
}

// GenerateRangeScan derives the bounds of the leading primary key column of
// a scan from its residual filter. The filter is kept, since the bounds do
// not distinguish strict from non-strict comparisons. The rule does not apply
// to a scan that already has bounds, that has no key predicates, or whose key
// predicates contradict each other.
func (c *CustomFuncs) GenerateRangeScan(e plan.RelExpr) (plan.RelExpr, bool, error) {
	scan, ok := e.(*plan.ScanExpr)
	if !ok || scan.Op() != opt.ScanOp || scan.Filter == nil || scan.HasBounds() {
		return nil, false, nil
	}
	key := scan.KeyOrdinal()
	if key < 0 {
		return nil, false, nil
	}

	preds, err := constraint.KeyPredicates(scan.Filter, key)
	if err != nil || len(preds) == 0 {
		return nil, false, err
	}
	bounds, err := constraint.DeriveBounds(preds)
	if err != nil {
		return nil, false, err
	}
	if bounds.Unbounded() {
		return nil, false, nil
	}
	if empty, err := bounds.Contradiction(); err != nil || empty {
		return nil, false, err
	}

	private := scan.ScanPrivate
	private.Lower, private.Upper = bounds.Lower, bounds.Upper
	return plan.NewScan(private), true, nil
}

// ----------------------------------------------------------------------
//
// Limit functions
//
// ----------------------------------------------------------------------

// PushLimitIntoProject moves a limit below a projection. A projection keeps
// the order and the number of its input rows, so the limit can be applied to
// its input.
func (c *CustomFuncs) PushLimitIntoProject(e plan.RelExpr) (plan.RelExpr, bool, error) {
	limit, ok := matchLimit(e)
	if !ok {
		return nil, false, nil
	}
	project, ok := limit.Input.(*plan.ProjectExpr)
	if !ok || project.Op() != opt.ProjectOp {
		return nil, false, nil
	}
	return plan.WithChildren(project, plan.NewLimit(project.Input, limit.Offset, limit.Limit)), true, nil
}

// FuseLimitAndSort replaces a limit over a sort with a top-n.
func (c *CustomFuncs) FuseLimitAndSort(e plan.RelExpr) (plan.RelExpr, bool, error) {
	limit, ok := matchLimit(e)
	if !ok {
		return nil, false, nil
	}
	sort, ok := limit.Input.(*plan.SortExpr)
	if !ok || sort.Op() != opt.SortOp {
		return nil, false, nil
	}
	return plan.NewTopN(sort.Input, limit.Offset, limit.Limit, sort.Ordering), true, nil
}

func matchFilter(e plan.RelExpr) (*plan.FilterExpr, bool) {
	filter, ok := e.(*plan.FilterExpr)
	return filter, ok && filter.Op() == opt.FilterOp
}

func matchLimit(e plan.RelExpr) (*plan.LimitExpr, bool) {
	limit, ok := e.(*plan.LimitExpr)
	return limit, ok && limit.Op() == opt.LimitOp
}

// splitConjuncts splits the conjuncts of the predicate into the ones whose
// input columns satisfy the test and the others. Both lists keep the
// original order.
func splitConjuncts(
	pred scalar.Expr, test func(cols opt.ColSet) bool,
) (matched, remaining []scalar.Expr) {
	return splitList(scalar.Conjuncts(pred), test)
}

func splitList(
	conjuncts []scalar.Expr, test func(cols opt.ColSet) bool,
) (matched, remaining []scalar.Expr) {
	for _, c := range conjuncts {
		if test(scalar.InputCols(c)) {
			matched = append(matched, c)
		} else {
			remaining = append(remaining, c)
		}
	}
	return matched, remaining
}

// constructFilter returns a filter over input with the conjunction of the
// given conjuncts, or input itself if there are none.
func constructFilter(input plan.RelExpr, conjuncts []scalar.Expr) plan.RelExpr {
	if len(conjuncts) == 0 {
		return input
	}
	return plan.NewFilter(input, scalar.And(conjuncts...))
}
