// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package plan

import (
	"github.com/cockroachdb/errors"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/scalar"
	"github.com/planopt/planopt/pkg/sql/sem/tree"
	"github.com/planopt/planopt/pkg/sql/types"
)

// Check does sanity checking on a plan tree. It verifies that:
//   - every node belongs to the same family as its parent;
//   - every input reference is in range and has the type of the column it
//     references;
//   - predicates are boolean;
//   - scan bounds are comparable with the key column and ordered;
//   - values rows and insert columns match their schema.
//
// It returns an assertion failure describing the first violation found.
func Check(e RelExpr) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = opt.CatchOptimizerError(r)
		}
	}()
	checkExpr(e, e.Op().IsPhysical())
	return nil
}

func checkExpr(e RelExpr, physical bool) {
	if !e.Op().IsRelational() {
		panic(errors.AssertionFailedf("%s is not a relational operator", e.Op()))
	}
	if e.Op().IsPhysical() != physical {
		panic(errors.AssertionFailedf("%s is mixed with nodes of a different family", e.Op()))
	}
	for i, n := 0, e.ChildCount(); i < n; i++ {
		if e.Child(i) == nil {
			panic(errors.AssertionFailedf("%s has a nil child", e.Op()))
		}
		checkExpr(e.Child(i), physical)
	}

	switch t := e.(type) {
	case *ScanExpr:
		if t.Filter != nil {
			checkPredicate(t, t.Filter, t.OutputTypes())
		}
		checkBounds(t)

	case *FilterExpr:
		checkPredicate(t, t.Predicate, t.Input.OutputTypes())

	case *ProjectExpr:
		for _, p := range t.Projections {
			checkScalar(t, p, t.Input.OutputTypes())
		}

	case *AggregateExpr:
		for _, a := range t.Aggregates {
			checkScalar(t, a, t.Input.OutputTypes())
		}
		for _, g := range t.GroupBy {
			checkScalar(t, g, t.Input.OutputTypes())
		}

	case *JoinExpr:
		switch {
		case t.On != nil:
			checkPredicate(t, t.On, t.OutputTypes())
		case t.JoinType != CrossJoin:
			panic(errors.AssertionFailedf("%s join without a condition", t.JoinType))
		}

	case *SortExpr:
		checkOrdering(t, t.Ordering, t.Input.OutputTypes())

	case *TopNExpr:
		checkOrdering(t, t.Ordering, t.Input.OutputTypes())

	case *ValuesExpr:
		for i, row := range t.Rows {
			if len(row) != len(t.OutputTypes()) {
				panic(errors.AssertionFailedf(
					"values row %d has %d columns, expected %d", i, len(row), len(t.OutputTypes())))
			}
			for j, v := range row {
				checkScalar(t, v, nil)
				if !v.DataType().Equivalent(t.OutputTypes()[j]) {
					panic(errors.AssertionFailedf(
						"values row %d column %d has type %s, expected %s",
						i, j, v.DataType(), t.OutputTypes()[j]))
				}
			}
		}

	case *InsertExpr:
		in := t.Input.OutputTypes()
		if len(in) != len(t.Cols) {
			panic(errors.AssertionFailedf(
				"insert into %d columns from an input of %d columns", len(t.Cols), len(in)))
		}
		for i := range t.Cols {
			if !in[i].Equivalent(t.Cols[i].Type) {
				panic(errors.AssertionFailedf(
					"cannot insert %s into column %s", in[i], t.Cols[i].Name))
			}
		}

	case *DeleteExpr:
		if len(t.Input.OutputTypes()) == 0 {
			panic(errors.AssertionFailedf("delete input produces no row handler"))
		}
	}
}

// checkScalar verifies that every input reference of e is in range of the
// given input schema and has the same type.
func checkScalar(owner RelExpr, e scalar.Expr, input []*types.T) {
	if e == nil {
		panic(errors.AssertionFailedf("%s has a nil expression", owner.Op()))
	}
	if ref, ok := e.(*scalar.InputRefExpr); ok {
		if ref.Index >= len(input) {
			panic(errors.AssertionFailedf(
				"%s references input column %d out of %d", owner.Op(), ref.Index+1, len(input)))
		}
		if !ref.Typ.Equivalent(input[ref.Index]) {
			panic(errors.AssertionFailedf(
				"%s references input column %d as %s, but it has type %s",
				owner.Op(), ref.Index+1, ref.Typ, input[ref.Index]))
		}
		return
	}
	for i, n := 0, e.ChildCount(); i < n; i++ {
		c := e.Child(i)
		if c.Op() == opt.AggCallOp {
			panic(errors.AssertionFailedf("%s contains a nested aggregate", owner.Op()))
		}
		checkScalar(owner, c, input)
	}
}

func checkPredicate(owner RelExpr, e scalar.Expr, input []*types.T) {
	checkScalar(owner, e, input)
	if e.Op() == opt.AggCallOp {
		panic(errors.AssertionFailedf("%s predicate is an aggregate", owner.Op()))
	}
	if !e.DataType().Equivalent(types.Bool) {
		panic(errors.AssertionFailedf(
			"%s predicate has type %s, expected bool", owner.Op(), e.DataType()))
	}
}

func checkOrdering(owner RelExpr, ordering []OrderBy, input []*types.T) {
	for _, o := range ordering {
		checkScalar(owner, o.Expr, input)
	}
}

func checkBounds(t *ScanExpr) {
	if !t.HasBounds() {
		return
	}
	key := t.KeyOrdinal()
	if key < 0 {
		panic(errors.AssertionFailedf("bounded scan of %s selects no primary key column", t.TableName))
	}
	keyType := t.Cols[key].Type
	checkBoundType("lower", t.Lower, keyType)
	checkBoundType("upper", t.Upper, keyType)
	if t.Lower != nil && t.Upper != nil {
		cmp, err := t.Lower.Compare(t.Upper)
		if err != nil {
			panic(errors.NewAssertionErrorWithWrappedErrf(err, "comparing scan bounds"))
		}
		if cmp > 0 {
			panic(errors.AssertionFailedf("scan lower bound %s exceeds upper bound %s", t.Lower, t.Upper))
		}
	}
}

func checkBoundType(name string, bound tree.Datum, keyType *types.T) {
	if bound == nil {
		return
	}
	typ := bound.ResolvedType()
	if !typ.Equivalent(keyType) && !(typ.IsNumeric() && keyType.IsNumeric()) {
		panic(errors.AssertionFailedf(
			"%s bound of type %s on key column of type %s", name, typ, keyType))
	}
}
