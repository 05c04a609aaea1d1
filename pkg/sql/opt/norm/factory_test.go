// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package norm_test

import (
	"testing"

	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/cat"
	"github.com/planopt/planopt/pkg/sql/opt/norm"
	"github.com/planopt/planopt/pkg/sql/opt/plan"
	"github.com/planopt/planopt/pkg/sql/opt/scalar"
	"github.com/planopt/planopt/pkg/sql/sem/tree"
	"github.com/planopt/planopt/pkg/sql/types"
	"github.com/stretchr/testify/require"
)

func testScan() *plan.ScanExpr {
	return plan.NewScan(plan.ScanPrivate{
		Table:     1,
		TableName: "t",
		Cols: []cat.Column{
			{ID: 1, Name: "pk", Type: types.Int, PrimaryKey: true},
			{ID: 2, Name: "v", Type: types.Int, Nullable: true},
			{ID: 3, Name: "s", Type: types.String, Nullable: true},
		},
	})
}

func i(v int64) scalar.Expr { return scalar.NewConst(tree.NewDInt(tree.DInt(v))) }

func ref(idx int) scalar.Expr { return scalar.NewInputRef(idx, types.Int) }

func bin(op opt.Operator, l, r scalar.Expr) scalar.Expr { return scalar.MakeBinary(op, l, r) }

func normalizeFilter(t *testing.T, f *norm.Factory, pred scalar.Expr) string {
	t.Helper()
	return plan.Format(f.Normalize(plan.NewFilter(testScan(), pred)))
}

func TestNormalize(t *testing.T) {
	var f norm.Factory
	f.Init()

	testCases := []struct {
		name     string
		pred     scalar.Expr
		expected string
	}{
		{
			name:     "fold",
			pred:     bin(opt.GtOp, ref(0), bin(opt.PlusOp, i(1), i(2))),
			expected: "filter (@1 > 3)\n  scan t cols=(pk, v, s)\n",
		},
		{
			name:     "fold error is kept",
			pred:     bin(opt.GtOp, ref(0), bin(opt.DivOp, i(1), i(0))),
			expected: "filter (@1 > (1 / 0))\n  scan t cols=(pk, v, s)\n",
		},
		{
			name:     "arith",
			pred:     bin(opt.EqOp, bin(opt.MultOp, bin(opt.PlusOp, ref(1), i(0)), i(1)), ref(0)),
			expected: "filter (@2 = @1)\n  scan t cols=(pk, v, s)\n",
		},
		{
			name:     "bool",
			pred:     bin(opt.AndOp, scalar.TrueExpr, bin(opt.GtOp, ref(0), i(1))),
			expected: "filter (@1 > 1)\n  scan t cols=(pk, v, s)\n",
		},
		{
			name:     "constant on the left",
			pred:     bin(opt.LtOp, i(3), ref(0)),
			expected: "filter (@1 > 3)\n  scan t cols=(pk, v, s)\n",
		},
		{
			name:     "move across plus and minus",
			pred:     bin(opt.LeOp, i(10), bin(opt.MinusOp, bin(opt.PlusOp, i(2), ref(0)), i(3))),
			expected: "filter (@1 >= 11)\n  scan t cols=(pk, v, s)\n",
		},
		{
			name:     "true filter",
			pred:     bin(opt.LtOp, i(1), i(2)),
			expected: "scan t cols=(pk, v, s)\n",
		},
		{
			name:     "false filter",
			pred:     bin(opt.AndOp, bin(opt.GtOp, ref(0), i(1)), bin(opt.GtOp, i(1), i(2))),
			expected: "values types=(int, int, string) rows=[]\n",
		},
		{
			name:     "null filter",
			pred:     bin(opt.GtOp, i(1), scalar.NewConst(tree.DNull)),
			expected: "values types=(int, int, string) rows=[]\n",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, normalizeFilter(t, &f, tc.pred))
		})
	}
}

func TestMoveConstantsFloat(t *testing.T) {
	var f norm.Factory
	f.Init()
	// Float arithmetic is inexact, so the constant stays where it is.
	x := scalar.NewInputRef(0, types.Float)
	pred := bin(opt.GtOp, bin(opt.PlusOp, x, scalar.NewConst(tree.NewDFloat(0.1))), scalar.NewConst(tree.NewDFloat(0.3)))
	res := f.CustomFuncs().MoveConstants(pred)
	require.Same(t, pred, res)
}

func TestNotifyOnRules(t *testing.T) {
	var f norm.Factory
	f.Init()

	var applied []opt.RuleName
	f.NotifyOnAppliedRule(func(ruleName opt.RuleName, source, target plan.RelExpr) {
		require.NotSame(t, source, target)
		applied = append(applied, ruleName)
	})
	f.NotifyOnMatchedRule(func(ruleName opt.RuleName) bool {
		return ruleName != opt.ConstantMoving
	})

	res := normalizeFilter(t, &f, bin(opt.LtOp, i(3), bin(opt.PlusOp, ref(0), i(0))))
	require.Equal(t, "filter (3 < @1)\n  scan t cols=(pk, v, s)\n", res)
	require.Equal(t, []opt.RuleName{opt.ArithSimplification}, applied)

	f.DisableOptimizations()
	applied = nil
	res = normalizeFilter(t, &f, bin(opt.LtOp, i(3), bin(opt.PlusOp, ref(0), i(0))))
	require.Equal(t, "filter (3 < (@1 + 0))\n  scan t cols=(pk, v, s)\n", res)
	require.Empty(t, applied)
}

func TestNormalizeSharesUnchangedSubtrees(t *testing.T) {
	var f norm.Factory
	f.Init()
	scan := testScan()
	filter := plan.NewFilter(scan, bin(opt.GtOp, ref(0), i(1)))
	limit := plan.NewLimit(filter, 0, 1)
	require.Same(t, limit, f.Normalize(limit))
}
