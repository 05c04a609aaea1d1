// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package plan

import (
	"github.com/cockroachdb/errors"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/cat"
	"github.com/planopt/planopt/pkg/sql/opt/scalar"
	"github.com/planopt/planopt/pkg/sql/types"
)

// The constructors in this file build logical nodes. They derive the output
// schema of the node and perform no other validation; see Check.

// NewScan constructs a logical scan.
func NewScan(private ScanPrivate) *ScanExpr {
	e := &ScanExpr{ScanPrivate: private}
	e.init(opt.ScanOp)
	return e
}

// NewFilter constructs a logical filter.
func NewFilter(input RelExpr, predicate scalar.Expr) *FilterExpr {
	e := &FilterExpr{Input: input, Predicate: predicate}
	e.init(opt.FilterOp)
	return e
}

// NewProject constructs a logical projection.
func NewProject(input RelExpr, projections []scalar.Expr) *ProjectExpr {
	e := &ProjectExpr{Input: input, Projections: projections}
	e.init(opt.ProjectOp)
	return e
}

// NewAggregate constructs a logical aggregation.
func NewAggregate(
	input RelExpr, aggregates []*scalar.AggregateExpr, groupBy []scalar.Expr,
) *AggregateExpr {
	e := &AggregateExpr{Input: input, Aggregates: aggregates, GroupBy: groupBy}
	e.init(opt.AggregateOp)
	return e
}

// NewJoin constructs a logical join.
func NewJoin(left, right RelExpr, joinType JoinType, on scalar.Expr) *JoinExpr {
	e := &JoinExpr{Left: left, Right: right, JoinType: joinType, On: on}
	e.init(opt.JoinOp)
	return e
}

// NewLimit constructs a logical limit.
func NewLimit(input RelExpr, offset, limit uint64) *LimitExpr {
	e := &LimitExpr{Input: input, Offset: offset, Limit: limit}
	e.init(opt.LimitOp)
	return e
}

// NewSort constructs a logical sort.
func NewSort(input RelExpr, ordering []OrderBy) *SortExpr {
	e := &SortExpr{Input: input, Ordering: ordering}
	e.init(opt.SortOp)
	return e
}

// NewTopN constructs a logical top-n.
func NewTopN(input RelExpr, offset, limit uint64, ordering []OrderBy) *TopNExpr {
	e := &TopNExpr{Input: input, Offset: offset, Limit: limit, Ordering: ordering}
	e.init(opt.TopNOp)
	return e
}

// NewValues constructs a logical values node with the given output schema.
// The schema is explicit so that a node without rows still has one.
func NewValues(typs []*types.T, rows [][]scalar.Expr) *ValuesExpr {
	e := &ValuesExpr{Rows: rows}
	e.op = opt.ValuesOp
	e.typs = typs
	return e
}

// NewInsert constructs a logical insert.
func NewInsert(input RelExpr, table TablePrivate, cols []cat.Column) *InsertExpr {
	e := &InsertExpr{TablePrivate: table, Input: input, Cols: cols}
	e.init(opt.InsertOp)
	return e
}

// NewDelete constructs a logical delete.
func NewDelete(input RelExpr, table TablePrivate) *DeleteExpr {
	e := &DeleteExpr{TablePrivate: table, Input: input}
	e.init(opt.DeleteOp)
	return e
}

var mutationOutputTypes = []*types.T{types.Int}

func (e *ScanExpr) init(op opt.Operator) {
	e.op = op
	e.typs = make([]*types.T, 0, len(e.Cols)+1)
	for i := range e.Cols {
		e.typs = append(e.typs, e.Cols[i].Type)
	}
	if e.WithRowHandler {
		e.typs = append(e.typs, cat.RowHandlerType)
	}
}

func (e *FilterExpr) init(op opt.Operator) {
	e.op = op
	e.typs = e.Input.OutputTypes()
}

func (e *ProjectExpr) init(op opt.Operator) {
	e.op = op
	e.typs = make([]*types.T, len(e.Projections))
	for i, p := range e.Projections {
		e.typs[i] = p.DataType()
	}
}

func (e *AggregateExpr) init(op opt.Operator) {
	e.op = op
	e.typs = make([]*types.T, 0, len(e.Aggregates)+len(e.GroupBy))
	for _, a := range e.Aggregates {
		e.typs = append(e.typs, a.DataType())
	}
	for _, g := range e.GroupBy {
		e.typs = append(e.typs, g.DataType())
	}
}

func (e *JoinExpr) init(op opt.Operator) {
	e.op = op
	left, right := e.Left.OutputTypes(), e.Right.OutputTypes()
	e.typs = make([]*types.T, 0, len(left)+len(right))
	e.typs = append(e.typs, left...)
	e.typs = append(e.typs, right...)
}

func (e *LimitExpr) init(op opt.Operator) {
	e.op = op
	e.typs = e.Input.OutputTypes()
}

func (e *SortExpr) init(op opt.Operator) {
	e.op = op
	e.typs = e.Input.OutputTypes()
}

func (e *TopNExpr) init(op opt.Operator) {
	e.op = op
	e.typs = e.Input.OutputTypes()
}

func (e *InsertExpr) init(op opt.Operator) {
	e.op = op
	e.typs = mutationOutputTypes
}

func (e *DeleteExpr) init(op opt.Operator) {
	e.op = op
	e.typs = mutationOutputTypes
}

// WithChildren returns a node of the same operator and data as e over the
// given children. The family of e is preserved. If the children are
// identical to the existing ones, e itself is returned.
func WithChildren(e RelExpr, children ...RelExpr) RelExpr {
	if len(children) != e.ChildCount() {
		panic(errors.AssertionFailedf(
			"%s expects %d children, got %d", e.Op(), e.ChildCount(), len(children)))
	}
	same := true
	for i := range children {
		if children[i] != e.Child(i) {
			same = false
			break
		}
	}
	if same {
		return e
	}

	switch t := e.(type) {
	case *FilterExpr:
		n := *t
		n.Input = children[0]
		n.init(t.op)
		return &n

	case *ProjectExpr:
		n := *t
		n.Input = children[0]
		return &n

	case *AggregateExpr:
		n := *t
		n.Input = children[0]
		return &n

	case *JoinExpr:
		n := *t
		n.Left, n.Right = children[0], children[1]
		n.init(t.op)
		return &n

	case *LimitExpr:
		n := *t
		n.Input = children[0]
		n.init(t.op)
		return &n

	case *SortExpr:
		n := *t
		n.Input = children[0]
		n.init(t.op)
		return &n

	case *TopNExpr:
		n := *t
		n.Input = children[0]
		n.init(t.op)
		return &n

	case *InsertExpr:
		n := *t
		n.Input = children[0]
		return &n

	case *DeleteExpr:
		n := *t
		n.Input = children[0]
		return &n
	}
	panic(errors.AssertionFailedf("unhandled operator %s", e.Op()))
}

// ToPhysical returns the physical counterpart of a node: a node with the same
// data and children whose operator is the physical counterpart of the
// operator of e. Physical nodes are returned unchanged. The children are not
// converted.
func ToPhysical(e RelExpr) RelExpr {
	op, ok := opt.PhysicalCounterpart(e.Op())
	if !ok {
		panic(errors.AssertionFailedf("%s has no physical counterpart", e.Op()))
	}
	return retag(e, op)
}

// ToLogical is the inverse of ToPhysical. Logical nodes are returned
// unchanged. The children are not converted.
func ToLogical(e RelExpr) RelExpr {
	op, ok := opt.LogicalCounterpart(e.Op())
	if !ok {
		panic(errors.AssertionFailedf("%s has no logical counterpart", e.Op()))
	}
	return retag(e, op)
}

// ToLogicalTree converts every node of the tree to its logical counterpart.
// Subtrees that are already logical are shared.
func ToLogicalTree(e RelExpr) RelExpr {
	n := e.ChildCount()
	var children []RelExpr
	for i := 0; i < n; i++ {
		child := e.Child(i)
		newChild := ToLogicalTree(child)
		if newChild != child && children == nil {
			children = Children(e)
		}
		if children != nil {
			children[i] = newChild
		}
	}
	if children != nil {
		e = WithChildren(e, children...)
	}
	return ToLogical(e)
}

// retag returns a copy of e with the given operator, or e itself if it
// already has that operator.
func retag(e RelExpr, op opt.Operator) RelExpr {
	if op == e.Op() {
		return e
	}
	switch t := e.(type) {
	case *ScanExpr:
		n := *t
		n.op = op
		return &n
	case *FilterExpr:
		n := *t
		n.op = op
		return &n
	case *ProjectExpr:
		n := *t
		n.op = op
		return &n
	case *AggregateExpr:
		n := *t
		n.op = op
		return &n
	case *JoinExpr:
		n := *t
		n.op = op
		return &n
	case *LimitExpr:
		n := *t
		n.op = op
		return &n
	case *SortExpr:
		n := *t
		n.op = op
		return &n
	case *TopNExpr:
		n := *t
		n.op = op
		return &n
	case *ValuesExpr:
		n := *t
		n.op = op
		return &n
	case *InsertExpr:
		n := *t
		n.op = op
		return &n
	case *DeleteExpr:
		n := *t
		n.op = op
		return &n
	}
	panic(errors.AssertionFailedf("unhandled operator %s", e.Op()))
}

// IsPhysical returns true if every node of the tree is a physical node.
func IsPhysical(e RelExpr) bool {
	if !e.Op().IsPhysical() {
		return false
	}
	for i, n := 0, e.ChildCount(); i < n; i++ {
		if !IsPhysical(e.Child(i)) {
			return false
		}
	}
	return true
}

// ReplaceScalars rewrites every scalar expression owned by the node e (not
// by its descendants) with scalar.Replace. If no expression changes, e itself
// is returned. The family of e is preserved.
func ReplaceScalars(e RelExpr, replace scalar.ReplaceFunc) RelExpr {
	switch t := e.(type) {
	case *ScanExpr:
		filter := scalar.Replace(t.Filter, replace)
		if filter == t.Filter {
			return t
		}
		n := *t
		n.Filter = filter
		return &n

	case *FilterExpr:
		pred := scalar.Replace(t.Predicate, replace)
		if pred == t.Predicate {
			return t
		}
		n := *t
		n.Predicate = pred
		return &n

	case *ProjectExpr:
		projs, changed := replaceList(t.Projections, replace)
		if !changed {
			return t
		}
		n := *t
		n.Projections = projs
		n.init(t.op)
		return &n

	case *AggregateExpr:
		var aggs []*scalar.AggregateExpr
		for i, a := range t.Aggregates {
			na := scalar.Replace(a, replace).(*scalar.AggregateExpr)
			if na != a && aggs == nil {
				aggs = make([]*scalar.AggregateExpr, len(t.Aggregates))
				copy(aggs, t.Aggregates)
			}
			if aggs != nil {
				aggs[i] = na
			}
		}
		groupBy, changed := replaceList(t.GroupBy, replace)
		if !changed && aggs == nil {
			return t
		}
		if aggs == nil {
			aggs = t.Aggregates
		}
		n := *t
		n.Aggregates = aggs
		n.GroupBy = groupBy
		n.init(t.op)
		return &n

	case *JoinExpr:
		on := scalar.Replace(t.On, replace)
		if on == t.On {
			return t
		}
		n := *t
		n.On = on
		return &n

	case *SortExpr:
		ordering, changed := replaceOrdering(t.Ordering, replace)
		if !changed {
			return t
		}
		n := *t
		n.Ordering = ordering
		return &n

	case *TopNExpr:
		ordering, changed := replaceOrdering(t.Ordering, replace)
		if !changed {
			return t
		}
		n := *t
		n.Ordering = ordering
		return &n

	case *ValuesExpr:
		var rows [][]scalar.Expr
		for i, row := range t.Rows {
			newRow, changed := replaceList(row, replace)
			if changed && rows == nil {
				rows = make([][]scalar.Expr, len(t.Rows))
				copy(rows, t.Rows)
			}
			if rows != nil {
				rows[i] = newRow
			}
		}
		if rows == nil {
			return t
		}
		n := *t
		n.Rows = rows
		return &n
	}
	return e
}

func replaceList(list []scalar.Expr, replace scalar.ReplaceFunc) ([]scalar.Expr, bool) {
	var res []scalar.Expr
	for i, e := range list {
		ne := scalar.Replace(e, replace)
		if ne != e && res == nil {
			res = make([]scalar.Expr, len(list))
			copy(res, list)
		}
		if res != nil {
			res[i] = ne
		}
	}
	if res == nil {
		return list, false
	}
	return res, true
}

func replaceOrdering(ordering []OrderBy, replace scalar.ReplaceFunc) ([]OrderBy, bool) {
	var res []OrderBy
	for i, o := range ordering {
		ne := scalar.Replace(o.Expr, replace)
		if ne != o.Expr && res == nil {
			res = make([]OrderBy, len(ordering))
			copy(res, ordering)
		}
		if res != nil {
			res[i] = OrderBy{Expr: ne, Descending: o.Descending}
		}
	}
	if res == nil {
		return ordering, false
	}
	return res, true
}
