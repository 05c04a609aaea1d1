// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package plan_test

import (
	"testing"

	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/cat"
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
			{ID: 2, Name: "v", Type: types.String, Nullable: true},
		},
	})
}

func intConst(i int64) scalar.Expr { return scalar.NewConst(tree.NewDInt(tree.DInt(i))) }

func gt(col int, val int64) scalar.Expr {
	return scalar.MakeBinary(opt.GtOp, scalar.NewInputRef(col, types.Int), intConst(val))
}

func TestOutputTypes(t *testing.T) {
	scan := testScan()
	require.Equal(t, []*types.T{types.Int, types.String}, scan.OutputTypes())

	withHandler := testScan().ScanPrivate
	withHandler.WithRowHandler = true
	require.Equal(t,
		[]*types.T{types.Int, types.String, types.Int}, plan.NewScan(withHandler).OutputTypes())

	join := plan.NewJoin(scan, testScan(), plan.CrossJoin, nil)
	require.Len(t, join.OutputTypes(), 4)

	count, err := scalar.NewAggregate(scalar.CountStar, nil, false)
	require.NoError(t, err)
	agg := plan.NewAggregate(scan, []*scalar.AggregateExpr{count},
		[]scalar.Expr{scalar.NewInputRef(1, types.String)})
	require.Equal(t, []*types.T{types.Int, types.String}, agg.OutputTypes())

	del := plan.NewDelete(plan.NewScan(withHandler), plan.TablePrivate{Table: 1, TableName: "t"})
	require.Equal(t, []*types.T{types.Int}, del.OutputTypes())
}

func TestWithChildren(t *testing.T) {
	scan := testScan()
	filter := plan.NewFilter(scan, gt(0, 3))
	limit := plan.NewLimit(filter, 0, 10)

	// Identical children return the node itself.
	require.Same(t, limit, plan.WithChildren(limit, filter))

	other := plan.NewFilter(scan, gt(0, 5))
	replaced := plan.WithChildren(limit, other).(*plan.LimitExpr)
	require.NotSame(t, limit, replaced)
	require.Same(t, other, replaced.Input)
	require.Equal(t, uint64(10), replaced.Limit)
	// The original node is untouched.
	require.Same(t, filter, limit.Input)

	require.Panics(t, func() { plan.WithChildren(limit) })
}

func TestToPhysical(t *testing.T) {
	scan := testScan()
	filter := plan.NewFilter(scan, gt(0, 3))

	phys := plan.ToPhysical(filter).(*plan.FilterExpr)
	require.Equal(t, opt.PhysicalFilterOp, phys.Op())
	require.Equal(t, opt.FilterOp, filter.Op())
	require.Same(t, filter.Predicate, phys.Predicate)
	require.Same(t, phys, plan.ToPhysical(phys))

	// A physical node keeps its family when rebuilt over new children.
	physScan := plan.ToPhysical(scan)
	rebuilt := plan.WithChildren(phys, physScan)
	require.Equal(t, opt.PhysicalFilterOp, rebuilt.Op())
	require.True(t, plan.IsPhysical(rebuilt))
	require.False(t, plan.IsPhysical(phys))
}

func TestToLogical(t *testing.T) {
	scan := testScan()
	filter := plan.NewFilter(scan, gt(0, 3))
	require.Same(t, filter, plan.ToLogicalTree(filter))

	phys := plan.WithChildren(plan.ToPhysical(filter), plan.ToPhysical(scan))
	logical := plan.ToLogicalTree(phys)
	require.Equal(t, opt.FilterOp, logical.Op())
	require.Equal(t, opt.ScanOp, logical.Child(0).Op())
	require.Equal(t, plan.Format(filter), plan.Format(logical))
	require.Equal(t, opt.FilterOp, plan.ToLogical(phys).Op())
	require.Equal(t, opt.PhysicalScanOp, plan.ToLogical(phys).Child(0).Op())
}

func TestReplaceScalars(t *testing.T) {
	scan := testScan()
	proj := plan.NewProject(scan, []scalar.Expr{
		scalar.NewInputRef(1, types.String),
		scalar.NewInputRef(0, types.Int),
	})
	identity := func(e scalar.Expr) scalar.Expr { return e }
	require.Same(t, proj, plan.ReplaceScalars(proj, identity))

	toConst := func(e scalar.Expr) scalar.Expr {
		if ref, ok := e.(*scalar.InputRefExpr); ok && ref.Index == 0 {
			return intConst(7)
		}
		return e
	}
	res := plan.ReplaceScalars(proj, toConst).(*plan.ProjectExpr)
	require.Equal(t, "@2, 7", scalar.FormatList(res.Projections))
	require.Equal(t, "@2, @1", scalar.FormatList(proj.Projections))
}

func TestCheck(t *testing.T) {
	scan := testScan()
	require.NoError(t, plan.Check(plan.NewFilter(scan, gt(0, 3))))

	t.Run("out of range", func(t *testing.T) {
		err := plan.Check(plan.NewFilter(scan, gt(5, 3)))
		require.ErrorContains(t, err, "references input column 6 out of 2")
	})

	t.Run("wrong type", func(t *testing.T) {
		pred := scalar.MakeBinary(opt.GtOp, scalar.NewInputRef(1, types.Int), intConst(3))
		err := plan.Check(plan.NewFilter(scan, pred))
		require.ErrorContains(t, err, "but it has type string")
	})

	t.Run("non-boolean predicate", func(t *testing.T) {
		err := plan.Check(plan.NewFilter(scan, intConst(1)))
		require.ErrorContains(t, err, "expected bool")
	})

	t.Run("mixed families", func(t *testing.T) {
		err := plan.Check(plan.ToPhysical(plan.NewFilter(scan, gt(0, 3))))
		require.ErrorContains(t, err, "different family")
	})

	t.Run("unordered bounds", func(t *testing.T) {
		private := scan.ScanPrivate
		private.Filter = gt(0, 3)
		private.Lower = tree.NewDInt(10)
		private.Upper = tree.NewDInt(3)
		err := plan.Check(plan.NewScan(private))
		require.ErrorContains(t, err, "exceeds upper bound")

		private.Upper = nil
		require.NoError(t, plan.Check(plan.NewScan(private)))
	})

	t.Run("values width", func(t *testing.T) {
		v := plan.NewValues([]*types.T{types.Int}, [][]scalar.Expr{{intConst(1), intConst(2)}})
		err := plan.Check(v)
		require.ErrorContains(t, err, "has 2 columns, expected 1")
	})
}

func TestFormat(t *testing.T) {
	scan := testScan()
	private := scan.ScanPrivate
	private.Filter = scalar.And(gt(0, 3), scalar.MakeBinary(opt.LtOp, scalar.NewInputRef(0, types.Int), intConst(10)))
	private.Lower = tree.NewDInt(3)
	private.Upper = tree.NewDInt(10)
	bounded := plan.NewScan(private)

	sort := plan.NewSort(bounded, []plan.OrderBy{{Expr: scalar.NewInputRef(1, types.String), Descending: true}})
	limit := plan.NewLimit(sort, 2, 5)
	proj := plan.NewProject(limit, []scalar.Expr{scalar.NewInputRef(1, types.String)})

	require.Equal(t, ""+
		"project @2\n"+
		"  limit offset=2 limit=5\n"+
		"    sort @2 desc\n"+
		"      scan t cols=(pk, v) filter=((@1 > 3) AND (@1 < 10)) lower=3 upper=10\n",
		plan.Format(proj))

	values := plan.NewValues([]*types.T{types.Int, types.String}, [][]scalar.Expr{
		{intConst(1), scalar.NewConst(tree.NewDString("a"))},
	})
	join := plan.NewJoin(values, plan.ToPhysical(testScan()), plan.InnerJoin,
		scalar.MakeBinary(opt.EqOp, scalar.NewInputRef(0, types.Int), scalar.NewInputRef(2, types.Int)))
	require.Equal(t, ""+
		"join type=inner on=(@1 = @3)\n"+
		"  values types=(int, string) rows=[(1, 'a')]\n"+
		"  physical-scan t cols=(pk, v)\n",
		plan.Format(join))
}
