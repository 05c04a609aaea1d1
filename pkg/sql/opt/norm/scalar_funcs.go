// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package norm

import (
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/scalar"
)

// SimplifyArith removes arithmetic identities:
//
//	x + 0, 0 + x, x - 0, x * 1, 1 * x, x / 1  =>  x
//	-(-x)                                      =>  x
//
// An identity is only removed if it does not change the type of the
// expression; 1 * x with a decimal 1 and an integer x stays, for example.
func (c *CustomFuncs) SimplifyArith(e scalar.Expr) scalar.Expr {
	switch t := e.(type) {
	case *scalar.BinaryExpr:
		left, right := t.Left, t.Right
		switch t.Operator {
		case opt.PlusOp:
			if c.IsConstValueEqual(right, 0) && c.HasColType(left, t.Typ) {
				return left
			}
			if c.IsConstValueEqual(left, 0) && c.HasColType(right, t.Typ) {
				return right
			}

		case opt.MinusOp:
			if c.IsConstValueEqual(right, 0) && c.HasColType(left, t.Typ) {
				return left
			}

		case opt.MultOp:
			if c.IsConstValueEqual(right, 1) && c.HasColType(left, t.Typ) {
				return left
			}
			if c.IsConstValueEqual(left, 1) && c.HasColType(right, t.Typ) {
				return right
			}

		case opt.DivOp:
			if c.IsConstValueEqual(right, 1) && c.HasColType(left, t.Typ) {
				return left
			}
		}

	case *scalar.UnaryExpr:
		if t.Operator == opt.UnaryMinusOp {
			if inner, ok := t.Input.(*scalar.UnaryExpr); ok && inner.Operator == opt.UnaryMinusOp &&
				c.HasColType(inner.Input, t.Typ) {
				return inner.Input
			}
		}
	}
	return e
}
