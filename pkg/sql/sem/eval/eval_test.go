// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package eval_test

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/sem/eval"
	"github.com/planopt/planopt/pkg/sql/sem/tree"
	"github.com/stretchr/testify/require"
)

func TestBinaryOp(t *testing.T) {
	i := func(v int64) tree.Datum { return tree.NewDInt(tree.DInt(v)) }
	testCases := []struct {
		op          opt.Operator
		left, right tree.Datum
		expected    string
	}{
		{opt.PlusOp, i(1), i(2), "3"},
		{opt.MinusOp, i(1), i(2), "-1"},
		{opt.MultOp, i(-4), i(5), "-20"},
		{opt.DivOp, i(7), i(2), "3"},
		{opt.ModOp, i(7), i(-1), "0"},
		{opt.PlusOp, i(1), tree.NewDFloat(0.5), "1.5"},
		{opt.PlusOp, i(1), tree.NewDDecimal(15, -1), "2.5"},
		{opt.ConcatOp, tree.NewDString("a"), tree.NewDString("b"), "'ab'"},
		{opt.LtOp, i(1), i(2), "true"},
		{opt.GeOp, i(1), i(2), "false"},
		{opt.NeOp, tree.NewDString("a"), tree.NewDString("a"), "false"},
		{opt.EqOp, i(1), tree.DNull, "NULL"},
		{opt.PlusOp, tree.DNull, i(1), "NULL"},

		// Three-valued logic.
		{opt.AndOp, tree.DBoolFalse, tree.DNull, "false"},
		{opt.AndOp, tree.DBoolTrue, tree.DNull, "NULL"},
		{opt.AndOp, tree.DBoolTrue, tree.DBoolTrue, "true"},
		{opt.OrOp, tree.DNull, tree.DBoolTrue, "true"},
		{opt.OrOp, tree.DNull, tree.DBoolFalse, "NULL"},
		{opt.OrOp, tree.DBoolFalse, tree.DBoolFalse, "false"},
	}
	for _, tc := range testCases {
		res, err := eval.BinaryOp(tc.op, tc.left, tc.right)
		require.NoError(t, err, "%s %s %s", tc.left, tc.op, tc.right)
		require.Equal(t, tc.expected, res.String(), "%s %s %s", tc.left, tc.op, tc.right)
	}
}

func TestBinaryOpErrors(t *testing.T) {
	i := func(v int64) tree.Datum { return tree.NewDInt(tree.DInt(v)) }

	_, err := eval.BinaryOp(opt.PlusOp, i(math.MaxInt64), i(1))
	require.True(t, errors.Is(err, eval.ErrIntOutOfRange))
	_, err = eval.BinaryOp(opt.MultOp, i(math.MinInt64), i(-1))
	require.True(t, errors.Is(err, eval.ErrIntOutOfRange))
	_, err = eval.BinaryOp(opt.DivOp, i(1), i(0))
	require.True(t, errors.Is(err, eval.ErrDivisionByZero))
	_, err = eval.BinaryOp(opt.ModOp, tree.NewDDecimal(1, 0), tree.NewDDecimal(0, 0))
	require.True(t, errors.Is(err, eval.ErrDivisionByZero))

	_, err = eval.BinaryOp(opt.PlusOp, i(1), tree.NewDString("a"))
	require.True(t, errors.Is(err, opt.ErrUnsupportedOperator))
	_, err = eval.BinaryOp(opt.AndOp, i(1), tree.DBoolTrue)
	require.True(t, errors.Is(err, opt.ErrUnsupportedOperator))
	_, err = eval.BinaryOp(opt.NotOp, i(1), i(1))
	require.True(t, errors.Is(err, opt.ErrUnsupportedOperator))
}

func TestUnaryOp(t *testing.T) {
	testCases := []struct {
		op       opt.Operator
		in       tree.Datum
		expected string
	}{
		{opt.NotOp, tree.DBoolTrue, "false"},
		{opt.NotOp, tree.DNull, "NULL"},
		{opt.UnaryMinusOp, tree.NewDInt(3), "-3"},
		{opt.UnaryMinusOp, tree.NewDFloat(1.5), "-1.5"},
		{opt.UnaryMinusOp, tree.NewDDecimal(15, -1), "-1.5"},
		{opt.IsNullOp, tree.DNull, "true"},
		{opt.IsNullOp, tree.NewDInt(0), "false"},
		{opt.IsNotNullOp, tree.DNull, "false"},
	}
	for _, tc := range testCases {
		res, err := eval.UnaryOp(tc.op, tc.in)
		require.NoError(t, err)
		require.Equal(t, tc.expected, res.String(), "%s %s", tc.op, tc.in)
	}

	_, err := eval.UnaryOp(opt.UnaryMinusOp, tree.NewDInt(math.MinInt64))
	require.True(t, errors.Is(err, eval.ErrIntOutOfRange))
	_, err = eval.UnaryOp(opt.NotOp, tree.NewDInt(1))
	require.True(t, errors.Is(err, opt.ErrUnsupportedOperator))
	_, err = eval.UnaryOp(opt.PlusOp, tree.NewDInt(1))
	require.True(t, errors.Is(err, opt.ErrUnsupportedOperator))
}
