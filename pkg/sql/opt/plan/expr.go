// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package plan defines the immutable plan node tree that the optimizer
// rewrites.
//
// A plan is a tree of relational expressions. Every node has an operator, an
// ordered list of children, operator-specific data and an output schema (the
// ordered list of output column types). Nodes are never mutated once they
// are constructed: a rewrite builds new nodes along the changed path and
// reuses the untouched subtrees, so a subtree may be referenced from several
// trees at once. Columns are referenced positionally, by their ordinal in the
// output of the child.
//
// The operator tag determines the family of a node. Every logical operator
// has exactly one physical counterpart that shares its Go type and its data;
// ToPhysical moves a node from one family to the other.
package plan

import (
	"github.com/cockroachdb/errors"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/cat"
	"github.com/planopt/planopt/pkg/sql/opt/scalar"
	"github.com/planopt/planopt/pkg/sql/sem/tree"
	"github.com/planopt/planopt/pkg/sql/types"
)

// RelExpr is a node of a plan tree. The set of implementations is closed;
// see the Expr types in this package.
type RelExpr interface {
	// Op returns the operator of the node. It is a logical operator for nodes
	// of a logical plan and a physical operator for nodes of a physical plan.
	Op() opt.Operator

	// ChildCount returns the number of children of the node.
	ChildCount() int

	// Child returns the nth child of the node.
	Child(nth int) RelExpr

	// OutputTypes returns the output schema of the node. The returned slice
	// must not be modified.
	OutputTypes() []*types.T

	relExpr()
}

// relBase holds the fields common to every node.
type relBase struct {
	op   opt.Operator
	typs []*types.T
}

// Op implements the RelExpr interface.
func (b *relBase) Op() opt.Operator { return b.op }

// OutputTypes implements the RelExpr interface.
func (b *relBase) OutputTypes() []*types.T { return b.typs }

func (*relBase) relExpr() {}

// ScanPrivate is the data of a table scan.
type ScanPrivate struct {
	// Table and TableName identify the scanned table.
	Table     cat.TableID
	TableName string

	// Cols are the descriptors of the selected columns, in output order.
	Cols []cat.Column

	// WithRowHandler adds the hidden row handler column after Cols. It is
	// produced by scans under a delete.
	WithRowHandler bool

	// IsSorted is set when the scan must return rows in primary key order.
	IsSorted bool

	// Filter is the residual filter evaluated by the scan, or nil. Its input
	// references are ordinals in the output of the scan.
	Filter scalar.Expr

	// Lower and Upper are the bounds on the leading primary key column, or
	// nil when the scan is unbounded on that side. Both bounds are inclusive
	// and a bounded scan always retains the Filter the bounds were derived
	// from.
	Lower tree.Datum
	Upper tree.Datum
}

// HasBounds returns true if the scan is restricted to a key range.
func (p *ScanPrivate) HasBounds() bool {
	return p.Lower != nil || p.Upper != nil
}

// RowHandlerOrdinal returns the output ordinal of the row handler column, or
// -1 if the scan does not produce it.
func (p *ScanPrivate) RowHandlerOrdinal() int {
	if !p.WithRowHandler {
		return -1
	}
	return len(p.Cols)
}

// KeyOrdinal returns the output ordinal of the leading primary key column,
// or -1 if no primary key column is selected.
func (p *ScanPrivate) KeyOrdinal() int {
	for i := range p.Cols {
		if p.Cols[i].PrimaryKey {
			return i
		}
	}
	return -1
}

// ScanExpr reads rows from a table.
type ScanExpr struct {
	relBase
	ScanPrivate
}

// FilterExpr returns the rows of its input for which the predicate is true.
type FilterExpr struct {
	relBase
	Input     RelExpr
	Predicate scalar.Expr
}

// ProjectExpr computes one output column per projection over the rows of its
// input.
type ProjectExpr struct {
	relBase
	Input       RelExpr
	Projections []scalar.Expr
}

// AggregateExpr groups its input by the group keys and computes the
// aggregates for every group. Its output holds the aggregates, then the group
// keys.
type AggregateExpr struct {
	relBase
	Input      RelExpr
	Aggregates []*scalar.AggregateExpr
	GroupBy    []scalar.Expr
}

// JoinType enumerates the supported join types.
type JoinType uint8

const (
	InnerJoin JoinType = iota
	LeftOuterJoin
	RightOuterJoin
	FullOuterJoin
	CrossJoin
)

var joinTypeNames = [...]string{
	InnerJoin:      "inner",
	LeftOuterJoin:  "left",
	RightOuterJoin: "right",
	FullOuterJoin:  "full",
	CrossJoin:      "cross",
}

func (t JoinType) String() string {
	if int(t) < len(joinTypeNames) {
		return joinTypeNames[t]
	}
	return "unknown"
}

// ParseJoinType returns the join type with the given name.
func ParseJoinType(name string) (JoinType, error) {
	for i, n := range joinTypeNames {
		if n == name {
			return JoinType(i), nil
		}
	}
	return 0, errors.Newf("unknown join type %q", name)
}

// JoinExpr joins two inputs. Its output holds the columns of the left input,
// then the columns of the right input, and the On condition references that
// combined row. On is nil for a cross join.
type JoinExpr struct {
	relBase
	Left     RelExpr
	Right    RelExpr
	JoinType JoinType
	On       scalar.Expr
}

// LimitExpr skips the first Offset rows of its input and returns at most
// Limit of the remaining rows.
type LimitExpr struct {
	relBase
	Input  RelExpr
	Offset uint64
	Limit  uint64
}

// OrderBy is one element of an ordering.
type OrderBy struct {
	Expr       scalar.Expr
	Descending bool
}

func (o OrderBy) String() string {
	if o.Descending {
		return o.Expr.String() + " desc"
	}
	return o.Expr.String() + " asc"
}

// SortExpr orders the rows of its input.
type SortExpr struct {
	relBase
	Input    RelExpr
	Ordering []OrderBy
}

// TopNExpr orders the rows of its input, skips the first Offset rows and
// returns at most Limit of the remaining rows.
type TopNExpr struct {
	relBase
	Input    RelExpr
	Offset   uint64
	Limit    uint64
	Ordering []OrderBy
}

// ValuesExpr returns constant rows.
type ValuesExpr struct {
	relBase
	Rows [][]scalar.Expr
}

// TablePrivate identifies the target table of a mutation.
type TablePrivate struct {
	Table     cat.TableID
	TableName string
}

// InsertExpr inserts the rows of its input into Cols of a table. It returns
// the number of inserted rows.
type InsertExpr struct {
	relBase
	TablePrivate
	Input RelExpr
	Cols  []cat.Column
}

// DeleteExpr deletes the rows identified by the row handler column of its
// input, which must be the last column. It returns the number of deleted
// rows.
type DeleteExpr struct {
	relBase
	TablePrivate
	Input RelExpr
}

var (
	_ RelExpr = &ScanExpr{}
	_ RelExpr = &FilterExpr{}
	_ RelExpr = &ProjectExpr{}
	_ RelExpr = &AggregateExpr{}
	_ RelExpr = &JoinExpr{}
	_ RelExpr = &LimitExpr{}
	_ RelExpr = &SortExpr{}
	_ RelExpr = &TopNExpr{}
	_ RelExpr = &ValuesExpr{}
	_ RelExpr = &InsertExpr{}
	_ RelExpr = &DeleteExpr{}
)

// ChildCount implements the RelExpr interface.
func (*ScanExpr) ChildCount() int { return 0 }

// ChildCount implements the RelExpr interface.
func (*FilterExpr) ChildCount() int { return 1 }

// ChildCount implements the RelExpr interface.
func (*ProjectExpr) ChildCount() int { return 1 }

// ChildCount implements the RelExpr interface.
func (*AggregateExpr) ChildCount() int { return 1 }

// ChildCount implements the RelExpr interface.
func (*JoinExpr) ChildCount() int { return 2 }

// ChildCount implements the RelExpr interface.
func (*LimitExpr) ChildCount() int { return 1 }

// ChildCount implements the RelExpr interface.
func (*SortExpr) ChildCount() int { return 1 }

// ChildCount implements the RelExpr interface.
func (*TopNExpr) ChildCount() int { return 1 }

// ChildCount implements the RelExpr interface.
func (*ValuesExpr) ChildCount() int { return 0 }

// ChildCount implements the RelExpr interface.
func (*InsertExpr) ChildCount() int { return 1 }

// ChildCount implements the RelExpr interface.
func (*DeleteExpr) ChildCount() int { return 1 }

func childOutOfRange(e RelExpr, nth int) RelExpr {
	panic(errors.AssertionFailedf("child %d out of range for %s", nth, e.Op()))
}

// Child implements the RelExpr interface.
func (e *ScanExpr) Child(nth int) RelExpr { return childOutOfRange(e, nth) }

// Child implements the RelExpr interface.
func (e *ValuesExpr) Child(nth int) RelExpr { return childOutOfRange(e, nth) }

// Child implements the RelExpr interface.
func (e *JoinExpr) Child(nth int) RelExpr {
	switch nth {
	case 0:
		return e.Left
	case 1:
		return e.Right
	}
	return childOutOfRange(e, nth)
}

// Child implements the RelExpr interface.
func (e *FilterExpr) Child(nth int) RelExpr { return onlyChild(e, e.Input, nth) }

// Child implements the RelExpr interface.
func (e *ProjectExpr) Child(nth int) RelExpr { return onlyChild(e, e.Input, nth) }

// Child implements the RelExpr interface.
func (e *AggregateExpr) Child(nth int) RelExpr { return onlyChild(e, e.Input, nth) }

// Child implements the RelExpr interface.
func (e *LimitExpr) Child(nth int) RelExpr { return onlyChild(e, e.Input, nth) }

// Child implements the RelExpr interface.
func (e *SortExpr) Child(nth int) RelExpr { return onlyChild(e, e.Input, nth) }

// Child implements the RelExpr interface.
func (e *TopNExpr) Child(nth int) RelExpr { return onlyChild(e, e.Input, nth) }

// Child implements the RelExpr interface.
func (e *InsertExpr) Child(nth int) RelExpr { return onlyChild(e, e.Input, nth) }

// Child implements the RelExpr interface.
func (e *DeleteExpr) Child(nth int) RelExpr { return onlyChild(e, e.Input, nth) }

func onlyChild(e, input RelExpr, nth int) RelExpr {
	if nth != 0 {
		return childOutOfRange(e, nth)
	}
	return input
}

// Children returns the children of the node.
func Children(e RelExpr) []RelExpr {
	n := e.ChildCount()
	if n == 0 {
		return nil
	}
	children := make([]RelExpr, n)
	for i := range children {
		children[i] = e.Child(i)
	}
	return children
}

// SameSchema returns true if the two output schemas have the same number of
// columns with identical types, in the same order.
func SameSchema(left, right []*types.T) bool {
	if len(left) != len(right) {
		return false
	}
	for i := range left {
		if !left[i].Identical(right[i]) {
			return false
		}
	}
	return true
}
