// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package norm

import (
	"github.com/planopt/planopt/pkg/sql/opt/scalar"
	"github.com/planopt/planopt/pkg/sql/sem/eval"
	"github.com/planopt/planopt/pkg/sql/sem/tree"
)

// FoldConstant evaluates an operator whose operands are all constants and
// returns the result as a constant. Aggregate calls are never folded.
//
// If the evaluation results in an error (for example a division by zero or
// an integer overflow), the expression is returned unchanged, so that the
// error is raised when the expression is evaluated for real. The same happens
// if the result does not have the type of the expression.
func (c *CustomFuncs) FoldConstant(e scalar.Expr) scalar.Expr {
	if !c.AllConstants(e) {
		return e
	}
	var d tree.Datum
	var err error
	switch t := e.(type) {
	case *scalar.BinaryExpr:
		d, err = eval.BinaryOp(t.Operator, t.Left.(*scalar.ConstExpr).Value, t.Right.(*scalar.ConstExpr).Value)
	case *scalar.UnaryExpr:
		d, err = eval.UnaryOp(t.Operator, t.Input.(*scalar.ConstExpr).Value)
	default:
		return e
	}
	if err != nil {
		return e
	}
	if d != tree.DNull && !d.ResolvedType().Identical(e.DataType()) {
		return e
	}
	return c.MakeConst(d, e.DataType())
}
