// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package norm

import (
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/scalar"
	"github.com/planopt/planopt/pkg/sql/sem/eval"
)

// MoveConstants puts a comparison into the canonical "expr OP constant" form.
// It repeats the following rewrites until none applies:
//
//	c OP x         =>  x OP' c         (OP' is OP with its operands swapped)
//	(x + c1) OP c2 =>  x OP (c2 - c1)
//	(c1 + x) OP c2 =>  x OP (c2 - c1)
//	(x - c1) OP c2 =>  x OP (c2 + c1)
//
// The last three only apply to integer and decimal operands, and only if the
// new constant can be computed without error.
func (c *CustomFuncs) MoveConstants(e scalar.Expr) scalar.Expr {
	for {
		next := c.moveConstantsOnce(e)
		if next == e {
			return e
		}
		e = next
	}
}

func (c *CustomFuncs) moveConstantsOnce(e scalar.Expr) scalar.Expr {
	cmp, ok := e.(*scalar.BinaryExpr)
	if !ok || !opt.IsComparisonOp(cmp.Operator) {
		return e
	}

	// c OP x => x OP' c
	if c.IsNonNullConst(cmp.Left) && !scalar.IsConstant(cmp.Right) {
		op, ok := opt.CommuteComparison(cmp.Operator)
		if !ok {
			return e
		}
		return scalar.MakeBinary(op, cmp.Right, cmp.Left)
	}

	if !c.IsNonNullConst(cmp.Right) {
		return e
	}
	arith, ok := cmp.Left.(*scalar.BinaryExpr)
	if !ok || !c.IsIntOrDecimal(arith) || !c.IsIntOrDecimal(cmp.Right) {
		return e
	}

	var x, c1 scalar.Expr
	var inverse opt.Operator
	switch arith.Operator {
	case opt.PlusOp:
		inverse = opt.MinusOp
		switch {
		case c.IsNonNullConst(arith.Right) && !scalar.IsConstant(arith.Left):
			x, c1 = arith.Left, arith.Right
		case c.IsNonNullConst(arith.Left) && !scalar.IsConstant(arith.Right):
			x, c1 = arith.Right, arith.Left
		}
	case opt.MinusOp:
		inverse = opt.PlusOp
		if c.IsNonNullConst(arith.Right) && !scalar.IsConstant(arith.Left) {
			x, c1 = arith.Left, arith.Right
		}
	}
	if x == nil || !c.IsIntOrDecimal(x) || !c.IsIntOrDecimal(c1) {
		return e
	}

	c2 := cmp.Right.(*scalar.ConstExpr)
	d, err := eval.BinaryOp(inverse, c2.Value, c1.(*scalar.ConstExpr).Value)
	if err != nil {
		return e
	}
	moved, err := scalar.NewBinary(cmp.Operator, x, c.MakeConst(d, c2.Typ))
	if err != nil {
		return e
	}
	return moved
}
