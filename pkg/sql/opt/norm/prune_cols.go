// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package norm

import (
	"github.com/cockroachdb/errors"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/cat"
	"github.com/planopt/planopt/pkg/sql/opt/plan"
	"github.com/planopt/planopt/pkg/sql/opt/scalar"
	"github.com/planopt/planopt/pkg/sql/types"
)

// PruneCols removes the output columns of the plan that are not required and
// returns the narrowed plan. See CustomFuncs.PruneCols.
func PruneCols(e plan.RelExpr, required opt.ColSet) plan.RelExpr {
	var f Factory
	f.Init()
	return f.CustomFuncs().PruneCols(e, required)
}

// PruneCols rewrites the tree top-down so that the output of every node only
// holds the columns its consumer needs. required is a set of output ordinals
// of target. The returned expression produces exactly the required columns,
// in their original relative order.
//
// Every node asks its children for the columns it needs to produce the
// required columns plus the columns referenced by its own expressions. When a
// node needs more columns for its own expressions than its consumer does, the
// extra columns are dropped by a column selection Project above the node.
// Such a Project is merged into a Project consumer, so running the pass twice
// gives the same tree.
//
// A scan selects exactly the required columns and the columns referenced by
// its residual filter. Group keys are never pruned, since they determine the
// number of output rows. A node from which no column is required still
// produces one column (wrapped in a Project without columns), so that the row
// count is preserved.
func (c *CustomFuncs) PruneCols(target plan.RelExpr, required opt.ColSet) plan.RelExpr {
	width := len(target.OutputTypes())
	if !required.SubsetOf(opt.MakeColSetRange(0, width)) {
		panic(errors.AssertionFailedf(
			"required columns %s out of range for %s with %d columns", required, target.Op(), width))
	}
	if !target.Op().IsLogical() {
		panic(errors.AssertionFailedf("cannot prune columns of %s", target.Op()))
	}

	switch t := target.(type) {
	case *plan.ScanExpr:
		return c.pruneScanCols(t, required)

	case *plan.FilterExpr:
		needed := required.Union(scalar.InputCols(t.Predicate))
		input := c.PruneCols(t.Input, needed)
		pred := scalar.Remap(t.Predicate, needed.Ranks())
		return c.constructSimpleProject(plan.NewFilter(input, pred), needed, required)

	case *plan.ProjectExpr:
		return c.pruneProjectCols(t, required)

	case *plan.AggregateExpr:
		return c.pruneAggregateCols(t, required)

	case *plan.JoinExpr:
		return c.pruneJoinCols(t, required)

	case *plan.LimitExpr:
		input := c.PruneCols(t.Input, required)
		// Keep column selections above the limit, where LimitProject would
		// move them.
		if p, ok := input.(*plan.ProjectExpr); ok && isColumnSelection(p) {
			return plan.NewProject(plan.NewLimit(p.Input, t.Offset, t.Limit), p.Projections)
		}
		return plan.NewLimit(input, t.Offset, t.Limit)

	case *plan.SortExpr:
		needed := required.Union(orderingCols(t.Ordering))
		input := c.PruneCols(t.Input, needed)
		sort := plan.NewSort(input, remapOrdering(t.Ordering, needed.Ranks()))
		return c.constructSimpleProject(sort, needed, required)

	case *plan.TopNExpr:
		needed := required.Union(orderingCols(t.Ordering))
		input := c.PruneCols(t.Input, needed)
		topN := plan.NewTopN(input, t.Offset, t.Limit, remapOrdering(t.Ordering, needed.Ranks()))
		return c.constructSimpleProject(topN, needed, required)

	case *plan.ValuesExpr:
		return c.pruneValuesCols(t, required)

	case *plan.InsertExpr:
		all := opt.MakeColSetRange(0, len(t.Input.OutputTypes()))
		insert := plan.NewInsert(c.PruneCols(t.Input, all), t.TablePrivate, t.Cols)
		return c.constructSimpleProject(insert, keepOne(required, width), required)

	case *plan.DeleteExpr:
		all := opt.MakeColSetRange(0, len(t.Input.OutputTypes()))
		del := plan.NewDelete(c.PruneCols(t.Input, all), t.TablePrivate)
		return c.constructSimpleProject(del, keepOne(required, width), required)
	}
	panic(errors.AssertionFailedf("unhandled operator %s", target.Op()))
}

// pruneScanCols constructs a new Scan operator based on the given existing
// Scan operator, but selecting only the needed columns: the required ones and
// the ones referenced by the residual filter, which is remapped to the new
// output ordinals.
func (c *CustomFuncs) pruneScanCols(scan *plan.ScanExpr, required opt.ColSet) plan.RelExpr {
	width := len(scan.OutputTypes())
	needed := required.Union(scalar.InputCols(scan.Filter))
	if key := scan.KeyOrdinal(); key >= 0 && scan.HasBounds() {
		// The bounds apply to the leading key column, so it must stay leading.
		needed.Add(key)
	}
	needed = keepOne(needed, width)

	private := scan.ScanPrivate
	private.Cols = make([]cat.Column, 0, needed.Len())
	for i := range scan.Cols {
		if needed.Contains(i) {
			private.Cols = append(private.Cols, scan.Cols[i])
		}
	}
	private.WithRowHandler = scan.WithRowHandler && needed.Contains(scan.RowHandlerOrdinal())
	if scan.Filter != nil {
		private.Filter = scalar.Remap(scan.Filter, needed.Ranks())
	}
	return c.constructSimpleProject(plan.NewScan(private), needed, required)
}

func (c *CustomFuncs) pruneProjectCols(project *plan.ProjectExpr, required opt.ColSet) plan.RelExpr {
	projections := make([]scalar.Expr, 0, required.Len())
	required.ForEach(func(i int) {
		projections = append(projections, project.Projections[i])
	})
	needed := scalar.InputColsList(projections)
	input := c.PruneCols(project.Input, needed)
	ranks := needed.Ranks()
	for i := range projections {
		projections[i] = scalar.Remap(projections[i], ranks)
	}

	// Merge with a column selection below.
	if p, ok := input.(*plan.ProjectExpr); ok && isColumnSelection(p) {
		for i := range projections {
			projections[i] = scalar.Substitute(projections[i], p.Projections)
		}
		input = p.Input
	}
	return plan.NewProject(input, projections)
}

func (c *CustomFuncs) pruneAggregateCols(agg *plan.AggregateExpr, required opt.ColSet) plan.RelExpr {
	numAggs := len(agg.Aggregates)
	keys := opt.MakeColSetRange(numAggs, numAggs+len(agg.GroupBy))
	keptAggs := required.Intersection(opt.MakeColSetRange(0, numAggs))
	if keptAggs.Empty() && keys.Empty() && numAggs > 0 {
		// A scalar aggregation returns one row; it still needs an aggregate to
		// produce it.
		keptAggs.Add(0)
	}

	aggs := make([]*scalar.AggregateExpr, 0, keptAggs.Len())
	keptAggs.ForEach(func(i int) {
		aggs = append(aggs, agg.Aggregates[i])
	})
	needed := scalar.InputColsList(agg.GroupBy)
	for _, a := range aggs {
		needed.UnionWith(scalar.InputCols(a))
	}

	input := c.PruneCols(agg.Input, needed)
	ranks := needed.Ranks()
	for i := range aggs {
		aggs[i] = scalar.Remap(aggs[i], ranks).(*scalar.AggregateExpr)
	}
	groupBy := make([]scalar.Expr, len(agg.GroupBy))
	for i := range groupBy {
		groupBy[i] = scalar.Remap(agg.GroupBy[i], ranks)
	}

	newAgg := plan.NewAggregate(input, aggs, groupBy)
	return c.constructSimpleProject(newAgg, keptAggs.Union(keys), required)
}

func (c *CustomFuncs) pruneJoinCols(join *plan.JoinExpr, required opt.ColSet) plan.RelExpr {
	leftWidth := len(join.Left.OutputTypes())
	width := len(join.OutputTypes())
	needed := required.Union(scalar.InputCols(join.On))

	leftNeeded := needed.Intersection(opt.MakeColSetRange(0, leftWidth))
	rightNeeded := needed.Intersection(opt.MakeColSetRange(leftWidth, width)).Shift(-leftWidth)
	left := c.PruneCols(join.Left, leftNeeded)
	right := c.PruneCols(join.Right, rightNeeded)

	var on scalar.Expr
	if join.On != nil {
		on = scalar.Remap(join.On, needed.Ranks())
	}
	newJoin := plan.NewJoin(left, right, join.JoinType, on)
	return c.constructSimpleProject(newJoin, needed, required)
}

// pruneValuesCols constructs a new Values operator based on the given
// existing Values operator. The new operator will have the same set of rows,
// but containing only the needed columns. Other columns are discarded.
func (c *CustomFuncs) pruneValuesCols(values *plan.ValuesExpr, required opt.ColSet) plan.RelExpr {
	typs := values.OutputTypes()
	needed := keepOne(required, len(typs))
	if needed.Len() == len(typs) {
		return c.constructSimpleProject(values, needed, required)
	}

	newTypes := make([]*types.T, 0, needed.Len())
	needed.ForEach(func(i int) {
		newTypes = append(newTypes, typs[i])
	})
	rows := make([][]scalar.Expr, len(values.Rows))
	for r, row := range values.Rows {
		rows[r] = make([]scalar.Expr, 0, needed.Len())
		needed.ForEach(func(i int) {
			rows[r] = append(rows[r], row[i])
		})
	}
	return c.constructSimpleProject(plan.NewValues(newTypes, rows), needed, required)
}

// constructSimpleProject wraps input, whose output holds the columns of
// the have set, in a Project that selects the required subset of them. If
// the two sets are equal, input is returned as is.
func (c *CustomFuncs) constructSimpleProject(
	input plan.RelExpr, have, required opt.ColSet,
) plan.RelExpr {
	if !required.SubsetOf(have) {
		panic(errors.AssertionFailedf("required columns %s are not a subset of %s", required, have))
	}
	if have.Equals(required) {
		return input
	}
	typs := input.OutputTypes()
	ranks := have.Ranks()
	projections := make([]scalar.Expr, 0, required.Len())
	required.ForEach(func(i int) {
		projections = append(projections, scalar.NewInputRef(ranks[i], typs[ranks[i]]))
	})
	return plan.NewProject(input, projections)
}

// isColumnSelection returns true if every projection is an input reference.
func isColumnSelection(p *plan.ProjectExpr) bool {
	for _, e := range p.Projections {
		if _, ok := e.(*scalar.InputRefExpr); !ok {
			return false
		}
	}
	return true
}

// keepOne returns cols, or the first column if cols is empty and the node
// has columns at all.
func keepOne(cols opt.ColSet, width int) opt.ColSet {
	if cols.Empty() && width > 0 {
		return opt.MakeColSet(0)
	}
	return cols
}

func orderingCols(ordering []plan.OrderBy) opt.ColSet {
	var cols opt.ColSet
	for _, o := range ordering {
		cols.UnionWith(scalar.InputCols(o.Expr))
	}
	return cols
}

func remapOrdering(ordering []plan.OrderBy, ranks map[int]int) []plan.OrderBy {
	res := make([]plan.OrderBy, len(ordering))
	for i, o := range ordering {
		res[i] = plan.OrderBy{Expr: scalar.Remap(o.Expr, ranks), Descending: o.Descending}
	}
	return res
}
