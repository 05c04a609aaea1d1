// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/google/go-cmp/cmp"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/optbuilder"
	"github.com/planopt/planopt/pkg/sql/opt/plan"
	"github.com/planopt/planopt/pkg/sql/opt/testutils/opttester"
	"github.com/planopt/planopt/pkg/sql/opt/xform"
	"github.com/planopt/planopt/pkg/util/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// TestOptimizer files can be run separately like this:
//
//	go test ./pkg/sql/opt/xform -run TestOptimizer/rules/filter
func TestOptimizer(t *testing.T) {
	defer log.Scope(t).Close(t)

	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			tester := opttester.New(d.Input)
			return tester.RunCommand(t, d)
		})
	})
}

const rangeScanPlan = `
filter:
  predicate: {and: [{gt: ["@1", 3]}, {lt: ["@1", 10]}]}
  input:
    scan:
      table: t
      columns:
        - {name: pk, type: int, primary: true}
`

const joinPlan = `
limit:
  limit: 10
  input:
    filter:
      predicate: {and: [{eq: ["@1", "@3"]}, {gt: ["@2", 0]}]}
      input:
        join:
          type: cross
          left:
            scan:
              table: a
              columns:
                - {name: x, type: int, primary: true}
                - {name: y, type: int}
          right:
            scan:
              table: b
              columns:
                - {name: u, type: int, primary: true}
`

func buildPlan(t *testing.T, yaml string) plan.RelExpr {
	t.Helper()
	e, err := optbuilder.Build(context.Background(), []byte(yaml))
	require.NoError(t, err)
	return e
}

func TestOptimizeRangeScan(t *testing.T) {
	defer log.Scope(t).Close(t)

	root := buildPlan(t, rangeScanPlan)
	before := plan.Format(root)

	cfg := xform.DefaultConfig()
	cfg.EnableFilterScan = true
	res, err := xform.Optimize(context.Background(), root, cfg)
	require.NoError(t, err)
	require.True(t, plan.IsPhysical(res))
	require.Equal(t,
		"physical-scan t cols=(pk) filter=((@1 > 3) AND (@1 < 10)) lower=3 upper=10\n",
		plan.Format(res))

	scan := res.(*plan.ScanExpr)
	require.Equal(t, "3", scan.Lower.String())
	require.Equal(t, "10", scan.Upper.String())

	// The input plan is left untouched.
	require.Equal(t, before, plan.Format(root))

	// Without the filter scan rules, the filter stays above the scan.
	res, err = xform.Optimize(context.Background(), root, xform.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, opt.PhysicalFilterOp, res.Op())
}

func TestOptimizeIdempotent(t *testing.T) {
	defer log.Scope(t).Close(t)

	for _, filterScan := range []bool{false, true} {
		cfg := xform.DefaultConfig()
		cfg.EnableFilterScan = filterScan
		for _, input := range []string{rangeScanPlan, joinPlan} {
			once, err := xform.Optimize(context.Background(), buildPlan(t, input), cfg)
			require.NoError(t, err)
			twice, err := xform.Optimize(context.Background(), once, cfg)
			require.NoError(t, err)
			if diff := cmp.Diff(plan.Format(once), plan.Format(twice)); diff != "" {
				t.Errorf("second optimization changed the plan (-once +twice):\n%s", diff)
			}
		}
	}
}

func TestOptimizeTo(t *testing.T) {
	defer log.Scope(t).Close(t)

	root := buildPlan(t, joinPlan)
	stages := []struct {
		stage    xform.Stage
		expected string
	}{
		{
			stage: xform.NormalizeStage,
			expected: "limit offset=0 limit=10\n" +
				"  filter ((@1 = @3) AND (@2 > 0))\n" +
				"    join type=cross\n" +
				"      scan a cols=(x, y)\n" +
				"      scan b cols=(u)\n",
		},
		{
			stage: xform.ExploreStage,
			expected: "limit offset=0 limit=10\n" +
				"  join type=inner on=(@1 = @3)\n" +
				"    filter (@2 > 0)\n" +
				"      scan a cols=(x, y)\n" +
				"    scan b cols=(u)\n",
		},
		{
			stage: xform.PhysicalStage,
			expected: "physical-limit offset=0 limit=10\n" +
				"  physical-join type=inner on=(@1 = @3)\n" +
				"    physical-filter (@2 > 0)\n" +
				"      physical-scan a cols=(x, y)\n" +
				"    physical-scan b cols=(u)\n",
		},
	}
	for _, tc := range stages {
		var o xform.Optimizer
		require.NoError(t, o.Init(context.Background(), xform.DefaultConfig()))
		res, err := o.OptimizeTo(root, tc.stage)
		require.NoError(t, err)
		require.Equal(t, tc.expected, plan.Format(res))
	}
}

func TestOptimizeErrors(t *testing.T) {
	defer log.Scope(t).Close(t)

	var o xform.Optimizer
	require.NoError(t, o.Init(context.Background(), xform.DefaultConfig()))
	_, err := o.Optimize(nil)
	require.Error(t, err)

	cfg := xform.DefaultConfig()
	cfg.MaxRewritesPerNode = -1
	require.Error(t, o.Init(context.Background(), cfg))

	cfg = xform.DefaultConfig()
	cfg.DisabledRules = []string{"NoSuchRule"}
	_, err = xform.Optimize(context.Background(), buildPlan(t, joinPlan), cfg)
	require.ErrorContains(t, err, `unknown rule "NoSuchRule"`)
}

func TestStatsAndCallbacks(t *testing.T) {
	defer log.Scope(t).Close(t)

	var o xform.Optimizer
	require.NoError(t, o.Init(context.Background(), xform.DefaultConfig()))
	var seen []opt.RuleName
	o.NotifyOnAppliedRule(func(ruleName opt.RuleName, source, target plan.RelExpr) {
		require.NotSame(t, source, target)
		seen = append(seen, ruleName)
	})
	_, err := o.Optimize(buildPlan(t, joinPlan))
	require.NoError(t, err)
	require.Equal(t, []opt.RuleName{opt.FilterJoin}, seen)

	var expected xform.Stats
	expected.Applied[opt.FilterJoin] = 1
	if diff := cmp.Diff(expected, o.Stats()); diff != "" {
		t.Errorf("unexpected stats (-want +got):\n%s", diff)
	}
	require.Equal(t, 1, o.Stats().TotalApplied())

	// Stats accumulate across optimizations.
	_, err = o.Optimize(buildPlan(t, joinPlan))
	require.NoError(t, err)
	require.Equal(t, 2, o.Stats().Applied[opt.FilterJoin])
}

func TestRulesOrder(t *testing.T) {
	var o xform.Optimizer
	require.NoError(t, o.Init(context.Background(), xform.DefaultConfig()))
	var names []opt.RuleName
	for _, r := range o.Rules() {
		names = append(names, r.Name())
	}
	require.Equal(t, []opt.RuleName{
		opt.FilterAggregate, opt.FilterJoin, opt.LimitProject, opt.LimitSort,
	}, names)

	cfg := xform.DefaultConfig()
	cfg.EnableFilterScan = true
	cfg.DisableRule(opt.LimitProject)
	require.NoError(t, o.Init(context.Background(), cfg))
	names = names[:0]
	for _, r := range o.Rules() {
		names = append(names, r.Name())
	}
	require.Equal(t, []opt.RuleName{
		opt.FilterAggregate, opt.FilterJoin, opt.LimitSort, opt.FilterScan, opt.RangeScan,
	}, names)
}

func TestMetrics(t *testing.T) {
	defer log.Scope(t).Close(t)

	reg := prometheus.NewRegistry()
	m := xform.NewMetrics(reg)

	var o xform.Optimizer
	require.NoError(t, o.Init(context.Background(), xform.DefaultConfig()))
	o.SetMetrics(m)
	_, err := o.Optimize(buildPlan(t, joinPlan))
	require.NoError(t, err)
	_, err = o.Optimize(nil)
	require.Error(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(m.RuleApplied.WithLabelValues("FilterJoin")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("failure")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.RuleSkipped.WithLabelValues("FilterJoin")))

	n, err := testutil.GatherAndCount(reg, "optimizer_rule_applied_total")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestConfig(t *testing.T) {
	cfg, err := xform.ParseConfig(nil)
	require.NoError(t, err)
	require.False(t, cfg.EnableFilterScan)
	require.Equal(t, xform.DefaultMaxRewritesPerNode, cfg.MaxRewritesPerNode)

	cfg, err = xform.ParseConfig([]byte(`
enable_filter_scan: true
disabled_rules: [LimitSort, ConstantMoving]
strict_rule_errors: true
max_rewrites_per_node: 8
`))
	require.NoError(t, err)
	require.True(t, cfg.EnableFilterScan)
	require.True(t, cfg.StrictRuleErrors)
	require.Equal(t, 8, cfg.MaxRewritesPerNode)
	require.Equal(t, []string{"LimitSort", "ConstantMoving"}, cfg.DisabledRules)

	// A zero bound means the default.
	cfg, err = xform.ParseConfig([]byte("max_rewrites_per_node: 0\n"))
	require.NoError(t, err)
	require.Equal(t, xform.DefaultMaxRewritesPerNode, cfg.MaxRewritesPerNode)

	for _, tc := range []struct {
		input string
		err   string
	}{
		{input: "enable_filterscan: true\n", err: "field enable_filterscan not found"},
		{input: "disabled_rules: [Nope]\n", err: `unknown rule "Nope"`},
		{input: "max_rewrites_per_node: -2\n", err: "must not be negative"},
		{input: "strict_rule_errors: [1]\n", err: "parsing optimizer config"},
	} {
		_, err := xform.ParseConfig([]byte(tc.input))
		require.ErrorContains(t, err, tc.err, "input: %s", tc.input)
	}

	path := filepath.Join(t.TempDir(), "opt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("enable_filter_scan: true\n"), 0644))
	cfg, err = xform.LoadConfig(path)
	require.NoError(t, err)
	require.True(t, cfg.EnableFilterScan)

	_, err = xform.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "reading optimizer config")
}

func TestOptSteps(t *testing.T) {
	defer log.Scope(t).Close(t)

	ot := opttester.New(`
limit:
  limit: 10
  input:
    sort:
      order: ["@1"]
      input:
        scan:
          table: t
          columns:
            - {name: pk, type: int, primary: true}
`)
	out, err := ot.OptSteps()
	require.NoError(t, err)
	require.Contains(t, out, "build\n  limit offset=0 limit=10\n")
	require.Contains(t, out, "norm\n  no changes\n")
	require.Contains(t, out, "-limit offset=0 limit=10")
	require.Contains(t, out, "+top-n offset=0 limit=10 order=(@1 asc)")
	require.Contains(t, out, "prune\n  no changes\n")
	require.Contains(t, out, "+physical-top-n offset=0 limit=10 order=(@1 asc)")
}
