// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package norm

import (
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/plan"
	"github.com/planopt/planopt/pkg/sql/opt/scalar"
	"github.com/planopt/planopt/pkg/sql/types"
)

// SimplifyBool removes boolean identities:
//
//	true AND p, p AND true   =>  p
//	false AND p, p AND false =>  false
//	true OR p, p OR true     =>  true
//	false OR p, p OR false   =>  p
//	NOT NOT p                =>  p
//
// The remaining operand replaces the expression only if it is boolean, so
// that a NULL operand keeps its place.
func (c *CustomFuncs) SimplifyBool(e scalar.Expr) scalar.Expr {
	switch t := e.(type) {
	case *scalar.BinaryExpr:
		left, right := t.Left, t.Right
		switch t.Operator {
		case opt.AndOp:
			switch {
			case scalar.IsFalse(left) || scalar.IsFalse(right):
				return scalar.FalseExpr
			case scalar.IsTrue(left) && c.HasColType(right, types.Bool):
				return right
			case scalar.IsTrue(right) && c.HasColType(left, types.Bool):
				return left
			}

		case opt.OrOp:
			switch {
			case scalar.IsTrue(left) || scalar.IsTrue(right):
				return scalar.TrueExpr
			case scalar.IsFalse(left) && c.HasColType(right, types.Bool):
				return right
			case scalar.IsFalse(right) && c.HasColType(left, types.Bool):
				return left
			}
		}

	case *scalar.UnaryExpr:
		if t.Operator == opt.NotOp {
			if inner, ok := t.Input.(*scalar.UnaryExpr); ok && inner.Operator == opt.NotOp &&
				c.HasColType(inner.Input, types.Bool) {
				return inner.Input
			}
		}
	}
	return e
}

// SimplifyConstFilter removes filters whose predicate is constant:
//   - a filter with a true predicate is replaced by its input;
//   - a filter with a false or NULL predicate is replaced by an empty values
//     node with the same output schema;
//   - the same applies to the residual filter of a scan, which is dropped
//     when true and turns the scan into an empty values node when false.
func (c *CustomFuncs) SimplifyConstFilter(e plan.RelExpr) plan.RelExpr {
	if !e.Op().IsLogical() {
		return e
	}
	switch t := e.(type) {
	case *plan.FilterExpr:
		switch {
		case scalar.IsTrue(t.Predicate):
			return t.Input
		case scalar.IsFalse(t.Predicate) || scalar.IsNull(t.Predicate):
			return plan.NewValues(t.OutputTypes(), nil)
		}

	case *plan.ScanExpr:
		if t.Filter == nil {
			return e
		}
		switch {
		case scalar.IsTrue(t.Filter) && !t.HasBounds():
			private := t.ScanPrivate
			private.Filter = nil
			return plan.NewScan(private)
		case scalar.IsFalse(t.Filter) || scalar.IsNull(t.Filter):
			return plan.NewValues(t.OutputTypes(), nil)
		}
	}
	return e
}
