// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package constraint

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/scalar"
	"github.com/planopt/planopt/pkg/sql/sem/tree"
	"github.com/planopt/planopt/pkg/sql/types"
	"github.com/stretchr/testify/require"
)

var (
	pk = scalar.NewInputRef(0, types.Int)
	v  = scalar.NewInputRef(1, types.Int)
)

func c(i int64) scalar.Expr { return scalar.NewConst(tree.NewDInt(tree.DInt(i))) }

func cmp(op opt.Operator, l, r scalar.Expr) scalar.Expr { return scalar.MakeBinary(op, l, r) }

func derive(t *testing.T, filter scalar.Expr) Bounds {
	t.Helper()
	preds, err := KeyPredicates(filter, 0)
	require.NoError(t, err)
	b, err := DeriveBounds(preds)
	require.NoError(t, err)
	return b
}

func TestDeriveBounds(t *testing.T) {
	testCases := []struct {
		filter   scalar.Expr
		expected string
	}{
		{scalar.And(cmp(opt.GtOp, pk, c(3)), cmp(opt.LtOp, pk, c(10))), "[/3 - /10]"},
		{scalar.And(cmp(opt.GeOp, pk, c(5)), cmp(opt.EqOp, pk, c(7))), "[/7 - /7]"},
		{cmp(opt.GtOp, pk, c(3)), "[/3 - ]"},
		{cmp(opt.LeOp, pk, c(3)), "[ - /3]"},
		{cmp(opt.LtOp, c(3), pk), "[/3 - ]"},
		{cmp(opt.GeOp, c(10), pk), "[ - /10]"},
		{cmp(opt.EqOp, c(4), pk), "[/4 - /4]"},
		{scalar.And(cmp(opt.GtOp, pk, c(3)), cmp(opt.GtOp, pk, c(8)), cmp(opt.LtOp, pk, c(20)), cmp(opt.LeOp, pk, c(12))), "[/8 - /12]"},
		// Predicates on other columns, inequalities and NULL comparisons are
		// ignored.
		{scalar.And(cmp(opt.GtOp, v, c(100)), cmp(opt.NeOp, pk, c(5)), cmp(opt.GtOp, pk, c(1))), "[/1 - ]"},
		{cmp(opt.EqOp, pk, scalar.NewConst(tree.DNull)), "[ - ]"},
		{cmp(opt.GtOp, pk, v), "[ - ]"},
	}
	for _, tc := range testCases {
		t.Run(tc.filter.String(), func(t *testing.T) {
			require.Equal(t, tc.expected, derive(t, tc.filter).String())
		})
	}
}

func TestNormalizationSymmetry(t *testing.T) {
	require.Equal(t, derive(t, cmp(opt.GtOp, pk, c(3))), derive(t, cmp(opt.LtOp, c(3), pk)))
	require.Equal(t, derive(t, cmp(opt.LeOp, pk, c(3))), derive(t, cmp(opt.GeOp, c(3), pk)))
}

func TestNormalizeErrors(t *testing.T) {
	_, err := Normalize(cmp(opt.NeOp, pk, c(3)).(*scalar.BinaryExpr), 0)
	require.True(t, errors.Is(err, opt.ErrUnsupportedOperator))

	_, err = Normalize(cmp(opt.GtOp, v, c(3)).(*scalar.BinaryExpr), 0)
	require.True(t, errors.Is(err, opt.ErrMalformedPredicate))

	_, err = Normalize(cmp(opt.GtOp, pk, v).(*scalar.BinaryExpr), 0)
	require.True(t, errors.Is(err, opt.ErrMalformedPredicate))

	_, err = DeriveBounds([]KeyPredicate{{Op: opt.NeOp, Value: tree.NewDInt(1)}})
	require.True(t, errors.Is(err, opt.ErrUnsupportedOperator))

	_, err = DeriveBounds([]KeyPredicate{
		{Op: opt.GtOp, Value: tree.NewDInt(1)},
		{Op: opt.GtOp, Value: tree.NewDString("a")},
	})
	require.True(t, errors.Is(err, opt.ErrMalformedPredicate))
}

func TestContradiction(t *testing.T) {
	contradiction := func(b Bounds) bool {
		t.Helper()
		res, err := b.Contradiction()
		require.NoError(t, err)
		return res
	}

	b := derive(t, scalar.And(cmp(opt.GtOp, pk, c(10)), cmp(opt.LtOp, pk, c(3))))
	require.Equal(t, "[/10 - /3]", b.String())
	require.True(t, contradiction(b))

	require.False(t, contradiction(derive(t, cmp(opt.EqOp, pk, c(3)))))
	require.False(t, contradiction(derive(t, cmp(opt.GtOp, pk, c(3)))))
	require.True(t, Bounds{}.Unbounded())

	// Bounds of different families are an error rather than a panic.
	_, err := Bounds{Lower: tree.NewDInt(1), Upper: tree.NewDString("a")}.Contradiction()
	require.True(t, errors.Is(err, opt.ErrMalformedPredicate))
	require.Contains(t, err.Error(), "comparing key bounds 1 and 'a'")
}
