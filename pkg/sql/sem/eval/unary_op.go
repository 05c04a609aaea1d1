// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package eval

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/sem/tree"
)

// UnaryOp will evaluate a unary scalar operator on a Datum into another
// Datum.
func UnaryOp(op opt.Operator, in tree.Datum) (tree.Datum, error) {
	switch op {
	case opt.IsNullOp:
		return tree.MakeDBool(in == tree.DNull), nil
	case opt.IsNotNullOp:
		return tree.MakeDBool(in != tree.DNull), nil
	}
	if in == tree.DNull {
		return tree.DNull, nil
	}
	switch op {
	case opt.NotOp:
		b, ok := in.(*tree.DBool)
		if !ok {
			return nil, unsupportedOperand(op, in)
		}
		return tree.MakeDBool(!bool(*b)), nil

	case opt.UnaryMinusOp:
		return evalUnaryMinus(in)
	}
	return nil, opt.UnsupportedOperatorf("%s is not a unary operator", op)
}

func evalUnaryMinus(d tree.Datum) (tree.Datum, error) {
	switch t := d.(type) {
	case *tree.DInt:
		if *t == math.MinInt64 {
			return nil, ErrIntOutOfRange
		}
		return tree.NewDInt(-*t), nil

	case *tree.DFloat:
		return tree.NewDFloat(-*t), nil

	case *tree.DDecimal:
		dd := &tree.DDecimal{}
		dd.Decimal.Neg(&t.Decimal)
		return dd, nil
	}
	return nil, unsupportedOperand(opt.UnaryMinusOp, d)
}

func unsupportedOperand(op opt.Operator, d tree.Datum) error {
	return opt.UnsupportedOperatorf("unsupported operand type for %s: %s", op, d.ResolvedType())
}

// ErrIntOutOfRange is reported when integer arithmetic overflows.
var ErrIntOutOfRange = errors.New("integer out of range")

// ErrDivisionByZero is reported on a division by zero.
var ErrDivisionByZero = errors.New("division by zero")
