// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package scalar

import (
	"github.com/cockroachdb/errors"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/types"
)

// ErrTypeMismatch marks errors reported by the expression constructors when
// the operands of an operator have types it cannot accept.
var ErrTypeMismatch = errors.New("type mismatch")

func typeMismatchf(format string, args ...interface{}) error {
	return errors.Mark(errors.NewWithDepthf(1, format, args...), ErrTypeMismatch)
}

func isNumericOrUnknown(t *types.T) bool {
	return t.IsNumeric() || t.Family() == types.UnknownFamily
}

func isFamilyOrUnknown(t *types.T, f types.Family) bool {
	return t.Family() == f || t.Family() == types.UnknownFamily
}

func binaryType(op opt.Operator, left, right *types.T) (*types.T, error) {
	switch {
	case op == opt.AndOp || op == opt.OrOp:
		if isFamilyOrUnknown(left, types.BoolFamily) && isFamilyOrUnknown(right, types.BoolFamily) {
			return types.Bool, nil
		}

	case opt.IsComparisonOp(op):
		if left.Equivalent(right) || (left.IsNumeric() && right.IsNumeric()) {
			return types.Bool, nil
		}

	case opt.IsArithmeticOp(op):
		if isNumericOrUnknown(left) && isNumericOrUnknown(right) {
			switch {
			case left.Family() == types.UnknownFamily:
				return right, nil
			case right.Family() == types.UnknownFamily:
				return left, nil
			}
			return types.CommonNumeric(left, right), nil
		}

	case op == opt.ConcatOp:
		if isFamilyOrUnknown(left, types.StringFamily) && isFamilyOrUnknown(right, types.StringFamily) {
			return types.String, nil
		}

	default:
		return nil, errors.AssertionFailedf("%s is not a binary operator", op)
	}
	return nil, typeMismatchf("unsupported binary operator: <%s> %s <%s>", left, op.Symbol(), right)
}

func unaryType(op opt.Operator, input *types.T) (*types.T, error) {
	switch op {
	case opt.NotOp:
		if isFamilyOrUnknown(input, types.BoolFamily) {
			return types.Bool, nil
		}

	case opt.UnaryMinusOp:
		if isNumericOrUnknown(input) {
			return input, nil
		}

	case opt.IsNullOp, opt.IsNotNullOp:
		return types.Bool, nil

	default:
		return nil, errors.AssertionFailedf("%s is not a unary operator", op)
	}
	return nil, typeMismatchf("unsupported unary operator: %s <%s>", op.Symbol(), input)
}
