// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package eval

import (
	"math"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/sem/tree"
	"github.com/planopt/planopt/pkg/sql/types"
)

// DecimalCtx is the default context for decimal operations. Any change
// in the exponent limits must still guarantee a safe conversion to the
// postgres binary decimal format in the wire protocol, which uses an
// int16.
var DecimalCtx = &apd.Context{
	Precision:   20,
	Rounding:    apd.RoundHalfUp,
	MaxExponent: 2000,
	MinExponent: -2000,
	Traps:       apd.DefaultTraps,
}

// BinaryOp evaluates a binary scalar operator over two constant operands,
// following SQL NULL semantics:
//   - AND and OR use three-valued logic, so false AND NULL is false and
//     true OR NULL is true;
//   - every other operator returns NULL if either operand is NULL.
//
// Integer overflow and division by zero are reported as errors;
// callers that fold constants leave the expression unevaluated on error so
// that the error surfaces at execution time instead.
func BinaryOp(op opt.Operator, left, right tree.Datum) (tree.Datum, error) {
	switch op {
	case opt.AndOp:
		return evalAnd(left, right)
	case opt.OrOp:
		return evalOr(left, right)
	}

	if left == tree.DNull || right == tree.DNull {
		if !opt.IsBinaryOp(op) {
			return nil, opt.UnsupportedOperatorf("%s is not a binary operator", op)
		}
		return tree.DNull, nil
	}

	switch {
	case opt.IsComparisonOp(op):
		return evalComparison(op, left, right)
	case opt.IsArithmeticOp(op):
		return evalArithmetic(op, left, right)
	case op == opt.ConcatOp:
		l, lok := left.(*tree.DString)
		r, rok := right.(*tree.DString)
		if !lok || !rok {
			return nil, opt.UnsupportedOperatorf(
				"unsupported operand types for %s: %s, %s", op, left.ResolvedType(), right.ResolvedType())
		}
		return tree.NewDString(string(*l) + string(*r)), nil
	}
	return nil, opt.UnsupportedOperatorf("%s is not a binary operator", op)
}

func boolOperand(op opt.Operator, d tree.Datum) (val bool, isNull bool, err error) {
	if d == tree.DNull {
		return false, true, nil
	}
	b, ok := d.(*tree.DBool)
	if !ok {
		return false, false, unsupportedOperand(op, d)
	}
	return bool(*b), false, nil
}

func evalAnd(left, right tree.Datum) (tree.Datum, error) {
	l, lNull, err := boolOperand(opt.AndOp, left)
	if err != nil {
		return nil, err
	}
	r, rNull, err := boolOperand(opt.AndOp, right)
	if err != nil {
		return nil, err
	}
	if (!lNull && !l) || (!rNull && !r) {
		return tree.DBoolFalse, nil
	}
	if lNull || rNull {
		return tree.DNull, nil
	}
	return tree.DBoolTrue, nil
}

func evalOr(left, right tree.Datum) (tree.Datum, error) {
	l, lNull, err := boolOperand(opt.OrOp, left)
	if err != nil {
		return nil, err
	}
	r, rNull, err := boolOperand(opt.OrOp, right)
	if err != nil {
		return nil, err
	}
	if (!lNull && l) || (!rNull && r) {
		return tree.DBoolTrue, nil
	}
	if lNull || rNull {
		return tree.DNull, nil
	}
	return tree.DBoolFalse, nil
}

func evalComparison(op opt.Operator, left, right tree.Datum) (tree.Datum, error) {
	cmp, err := left.Compare(right)
	if err != nil {
		return nil, err
	}
	var res bool
	switch op {
	case opt.EqOp:
		res = cmp == 0
	case opt.NeOp:
		res = cmp != 0
	case opt.LtOp:
		res = cmp < 0
	case opt.LeOp:
		res = cmp <= 0
	case opt.GtOp:
		res = cmp > 0
	case opt.GeOp:
		res = cmp >= 0
	}
	return tree.MakeDBool(res), nil
}

func evalArithmetic(op opt.Operator, left, right tree.Datum) (tree.Datum, error) {
	lt, rt := left.ResolvedType(), right.ResolvedType()
	if !lt.IsNumeric() || !rt.IsNumeric() {
		return nil, opt.UnsupportedOperatorf(
			"unsupported operand types for %s: %s, %s", op, lt, rt)
	}
	switch types.CommonNumeric(lt, rt).Family() {
	case types.IntFamily:
		return evalIntArithmetic(op, int64(*left.(*tree.DInt)), int64(*right.(*tree.DInt)))
	case types.FloatFamily:
		l, err := toFloat(left)
		if err != nil {
			return nil, err
		}
		r, err := toFloat(right)
		if err != nil {
			return nil, err
		}
		return evalFloatArithmetic(op, l, r)
	default:
		var l, r apd.Decimal
		toDecimal(&l, left)
		toDecimal(&r, right)
		return evalDecimalArithmetic(op, &l, &r)
	}
}

func evalIntArithmetic(op opt.Operator, l, r int64) (tree.Datum, error) {
	switch op {
	case opt.PlusOp:
		res := l + r
		if (l > 0 && r > 0 && res < 0) || (l < 0 && r < 0 && res >= 0) {
			return nil, ErrIntOutOfRange
		}
		return tree.NewDInt(tree.DInt(res)), nil

	case opt.MinusOp:
		res := l - r
		if (r < 0 && l > 0 && res < 0) || (r > 0 && l < 0 && res >= 0) || (r == math.MinInt64 && l >= 0) {
			return nil, ErrIntOutOfRange
		}
		return tree.NewDInt(tree.DInt(res)), nil

	case opt.MultOp:
		if l == 0 || r == 0 {
			return tree.NewDInt(0), nil
		}
		res := l * r
		if res/r != l || (l == -1 && r == math.MinInt64) || (r == -1 && l == math.MinInt64) {
			return nil, ErrIntOutOfRange
		}
		return tree.NewDInt(tree.DInt(res)), nil

	case opt.DivOp:
		if r == 0 {
			return nil, ErrDivisionByZero
		}
		if l == math.MinInt64 && r == -1 {
			return nil, ErrIntOutOfRange
		}
		return tree.NewDInt(tree.DInt(l / r)), nil

	case opt.ModOp:
		if r == 0 {
			return nil, ErrDivisionByZero
		}
		if r == -1 {
			return tree.NewDInt(0), nil
		}
		return tree.NewDInt(tree.DInt(l % r)), nil
	}
	return nil, opt.UnsupportedOperatorf("%s is not an arithmetic operator", op)
}

func evalFloatArithmetic(op opt.Operator, l, r float64) (tree.Datum, error) {
	switch op {
	case opt.PlusOp:
		return tree.NewDFloat(tree.DFloat(l + r)), nil
	case opt.MinusOp:
		return tree.NewDFloat(tree.DFloat(l - r)), nil
	case opt.MultOp:
		return tree.NewDFloat(tree.DFloat(l * r)), nil
	case opt.DivOp:
		if r == 0 {
			return nil, ErrDivisionByZero
		}
		return tree.NewDFloat(tree.DFloat(l / r)), nil
	case opt.ModOp:
		if r == 0 {
			return nil, ErrDivisionByZero
		}
		return tree.NewDFloat(tree.DFloat(math.Mod(l, r))), nil
	}
	return nil, opt.UnsupportedOperatorf("%s is not an arithmetic operator", op)
}

func evalDecimalArithmetic(op opt.Operator, l, r *apd.Decimal) (tree.Datum, error) {
	dd := &tree.DDecimal{}
	var err error
	switch op {
	case opt.PlusOp:
		_, err = DecimalCtx.Add(&dd.Decimal, l, r)
	case opt.MinusOp:
		_, err = DecimalCtx.Sub(&dd.Decimal, l, r)
	case opt.MultOp:
		_, err = DecimalCtx.Mul(&dd.Decimal, l, r)
	case opt.DivOp:
		if r.IsZero() {
			return nil, ErrDivisionByZero
		}
		_, err = DecimalCtx.Quo(&dd.Decimal, l, r)
	case opt.ModOp:
		if r.IsZero() {
			return nil, ErrDivisionByZero
		}
		_, err = DecimalCtx.Rem(&dd.Decimal, l, r)
	default:
		return nil, opt.UnsupportedOperatorf("%s is not an arithmetic operator", op)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "evaluating %s", op)
	}
	return dd, nil
}

func toFloat(d tree.Datum) (float64, error) {
	switch t := d.(type) {
	case *tree.DInt:
		return float64(*t), nil
	case *tree.DFloat:
		return float64(*t), nil
	case *tree.DDecimal:
		return t.Float64()
	}
	return 0, errors.AssertionFailedf("%s is not numeric", d.ResolvedType())
}

func toDecimal(dst *apd.Decimal, d tree.Datum) {
	switch t := d.(type) {
	case *tree.DInt:
		dst.SetInt64(int64(*t))
	case *tree.DDecimal:
		dst.Set(&t.Decimal)
	default:
		panic(errors.AssertionFailedf("%s cannot be converted to decimal", d.ResolvedType()))
	}
}
