// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/cat"
	"github.com/planopt/planopt/pkg/sql/opt/plan"
	"github.com/planopt/planopt/pkg/sql/opt/scalar"
	"github.com/planopt/planopt/pkg/sql/sem/tree"
	"github.com/planopt/planopt/pkg/sql/types"
	"github.com/planopt/planopt/pkg/util/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func testScan() *plan.ScanExpr {
	return plan.NewScan(plan.ScanPrivate{
		Table:     1,
		TableName: "t",
		Cols: []cat.Column{
			{ID: 1, Name: "pk", Type: types.Int, PrimaryKey: true},
			{ID: 2, Name: "v", Type: types.Int, Nullable: true},
		},
	})
}

func testFilter() *plan.FilterExpr {
	pred := scalar.MakeBinary(opt.GtOp,
		scalar.NewInputRef(0, types.Int), scalar.NewConst(tree.NewDInt(3)))
	return plan.NewFilter(testScan(), pred)
}

// newTestOptimizer returns an optimizer that runs the given rules instead of
// the heuristic rules.
func newTestOptimizer(t *testing.T, cfg Config, rules ...Rule) *Optimizer {
	t.Helper()
	o := &Optimizer{}
	require.NoError(t, o.Init(context.Background(), cfg))
	o.rules = rules
	return o
}

// onFilter returns a rule that applies fn to the logical filters of a plan.
func onFilter(name opt.RuleName, fn func(f *plan.FilterExpr) (plan.RelExpr, bool, error)) Rule {
	return NewRule(name, func(e plan.RelExpr) (plan.RelExpr, bool, error) {
		if f, ok := matchFilter(e); ok {
			return fn(f)
		}
		return nil, false, nil
	})
}

func TestRewriteLimit(t *testing.T) {
	defer log.Scope(t).Close(t)

	// The rule rebuilds the filter it matched, so it always applies again.
	loop := onFilter(opt.FilterScan, func(f *plan.FilterExpr) (plan.RelExpr, bool, error) {
		return plan.NewFilter(f.Input, f.Predicate), true, nil
	})
	cfg := DefaultConfig()
	cfg.MaxRewritesPerNode = 5
	o := newTestOptimizer(t, cfg, loop)

	_, err := o.OptimizeTo(testFilter(), ExploreStage)
	require.Error(t, err)
	require.True(t, errors.HasAssertionFailure(err))
	require.Contains(t, err.Error(), "FilterScan exceeded 5 rewrites of a filter node")
	require.Equal(t, 6, o.Stats().Applied[opt.FilterScan])
}

func TestRuleErrors(t *testing.T) {
	defer log.Scope(t).Close(t)

	malformed := onFilter(opt.RangeScan, func(*plan.FilterExpr) (plan.RelExpr, bool, error) {
		return nil, false, opt.MalformedPredicatef("cannot handle predicate")
	})
	pushLimit := onFilter(opt.LimitProject, func(f *plan.FilterExpr) (plan.RelExpr, bool, error) {
		if _, ok := f.Input.(*plan.LimitExpr); ok {
			return nil, false, nil
		}
		return plan.NewFilter(plan.NewLimit(f.Input, 0, 1), f.Predicate), true, nil
	})

	t.Run("skip", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		o := newTestOptimizer(t, DefaultConfig(), malformed, pushLimit)
		o.SetMetrics(m)

		res, err := o.OptimizeTo(testFilter(), ExploreStage)
		require.NoError(t, err)
		// The failing rule is skipped and the next one applies.
		require.Equal(t,
			"filter (@1 > 3)\n  limit offset=0 limit=1\n    scan t cols=(pk, v)\n", plan.Format(res))
		require.Equal(t, 2, o.Stats().Skipped[opt.RangeScan])
		require.Equal(t, 1, o.Stats().Applied[opt.LimitProject])
		require.Equal(t, 2.0, testutil.ToFloat64(m.RuleSkipped.WithLabelValues("RangeScan")))
		require.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("success")))
	})

	t.Run("strict", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.StrictRuleErrors = true
		o := newTestOptimizer(t, cfg, malformed, pushLimit)

		_, err := o.OptimizeTo(testFilter(), ExploreStage)
		require.Error(t, err)
		require.True(t, errors.Is(err, opt.ErrMalformedPredicate))
		require.Contains(t, err.Error(), "applying RangeScan to filter: cannot handle predicate")
		require.Zero(t, o.Stats().TotalApplied())
	})

	t.Run("internal error", func(t *testing.T) {
		broken := onFilter(opt.FilterJoin, func(*plan.FilterExpr) (plan.RelExpr, bool, error) {
			return nil, false, errors.New("boom")
		})
		o := newTestOptimizer(t, DefaultConfig(), broken)

		_, err := o.OptimizeTo(testFilter(), ExploreStage)
		require.Error(t, err)
		require.Contains(t, err.Error(), "applying FilterJoin to filter: boom")
		require.Zero(t, o.Stats().Skipped[opt.FilterJoin])
	})

	t.Run("runtime error", func(t *testing.T) {
		crash := onFilter(opt.FilterJoin, func(f *plan.FilterExpr) (plan.RelExpr, bool, error) {
			var rows [][]scalar.Expr
			return plan.NewFilter(f.Input, rows[1][0]), true, nil
		})
		o := newTestOptimizer(t, DefaultConfig(), crash)

		_, err := o.OptimizeTo(testFilter(), ExploreStage)
		require.Error(t, err)
		require.True(t, errors.HasAssertionFailure(err))
	})
}

func TestRuleContract(t *testing.T) {
	defer log.Scope(t).Close(t)

	t.Run("schema change", func(t *testing.T) {
		narrow := onFilter(opt.FilterJoin, func(f *plan.FilterExpr) (plan.RelExpr, bool, error) {
			return plan.NewProject(f, []scalar.Expr{scalar.NewInputRef(0, types.Int)}), true, nil
		})
		o := newTestOptimizer(t, DefaultConfig(), narrow)

		_, err := o.OptimizeTo(testFilter(), ExploreStage)
		require.Error(t, err)
		require.True(t, errors.HasAssertionFailure(err))
		require.Contains(t, err.Error(), "FilterJoin changed the output types of filter from (int, int) to (int)")
	})

	t.Run("no replacement", func(t *testing.T) {
		empty := onFilter(opt.FilterJoin, func(*plan.FilterExpr) (plan.RelExpr, bool, error) {
			return nil, true, nil
		})
		o := newTestOptimizer(t, DefaultConfig(), empty)

		_, err := o.OptimizeTo(testFilter(), ExploreStage)
		require.Error(t, err)
		require.Contains(t, err.Error(), "FilterJoin returned no replacement for filter")
	})
}

func TestDriverSharesDoneSubtrees(t *testing.T) {
	defer log.Scope(t).Close(t)

	var calls int
	count := NewRule(opt.FilterJoin, func(plan.RelExpr) (plan.RelExpr, bool, error) {
		calls++
		return nil, false, nil
	})
	o := newTestOptimizer(t, DefaultConfig(), count)

	// The same filter is both inputs of the join; it is only tried once, as
	// are its scan and the join.
	filter := testFilter()
	join := plan.NewJoin(filter, filter, plan.CrossJoin, nil)
	res, err := o.OptimizeTo(join, ExploreStage)
	require.NoError(t, err)
	require.Same(t, join, res)
	require.Equal(t, 3, calls)
}

// TestRangeScanIncomparableBounds covers key bounds of different families,
// which the typed plan decoder cannot produce: the comparison is built
// without type checking. RangeScan must be skipped, not fail the plan.
func TestRangeScanIncomparableBounds(t *testing.T) {
	defer log.Scope(t).Close(t)

	pk := scalar.NewInputRef(0, types.Int)
	lower := scalar.MakeBinary(opt.GtOp, pk, scalar.NewConst(tree.NewDInt(1)))
	upper := &scalar.BinaryExpr{
		Operator: opt.LtOp, Left: pk, Right: scalar.NewConst(tree.NewDString("a")), Typ: types.Bool,
	}
	root := plan.NewFilter(testScan(), scalar.And(lower, upper))

	t.Run("skip", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EnableFilterScan = true
		var o Optimizer
		require.NoError(t, o.Init(context.Background(), cfg))

		res, err := o.Optimize(root)
		require.NoError(t, err)
		scan, ok := res.(*plan.ScanExpr)
		require.True(t, ok, "%s", plan.Format(res))
		require.Equal(t, opt.PhysicalScanOp, scan.Op())
		require.False(t, scan.HasBounds())
		require.NotNil(t, scan.Filter)
		require.Equal(t, 1, o.Stats().Applied[opt.FilterScan])
		require.Equal(t, 1, o.Stats().Skipped[opt.RangeScan])
	})

	t.Run("strict", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EnableFilterScan = true
		cfg.StrictRuleErrors = true
		var o Optimizer
		require.NoError(t, o.Init(context.Background(), cfg))

		_, err := o.Optimize(root)
		require.Error(t, err)
		require.True(t, errors.Is(err, opt.ErrMalformedPredicate))
		require.False(t, errors.HasAssertionFailure(err))
		require.Contains(t, err.Error(), "applying RangeScan to scan: comparing key bounds 1 and 'a'")
	})
}
