// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const rangePlan = `
filter:
  predicate: {and: [{gt: ["@1", 3]}, {lt: ["@1", 10]}]}
  input:
    scan:
      table: t
      columns:
        - {name: pk, type: int, primary: true}
`

func runOptplan(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := makeOptplanCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestOptimize(t *testing.T) {
	path := writeFile(t, "plan.yaml", rangePlan)

	t.Run("default", func(t *testing.T) {
		out, err := runOptplan(t, "", "optimize", path)
		require.NoError(t, err)
		require.Equal(t, "physical-filter ((@1 > 3) AND (@1 < 10))\n  physical-scan t cols=(pk)\n", out)
	})

	t.Run("filter-scan", func(t *testing.T) {
		out, err := runOptplan(t, "", "optimize", "--enable-filter-scan", path)
		require.NoError(t, err)
		require.Equal(t, "physical-scan t cols=(pk) filter=((@1 > 3) AND (@1 < 10)) lower=3 upper=10\n", out)
	})

	t.Run("disable-rule", func(t *testing.T) {
		out, err := runOptplan(t, "", "optimize", "--enable-filter-scan", "--disable-rule=RangeScan", path)
		require.NoError(t, err)
		require.Equal(t, "physical-scan t cols=(pk) filter=((@1 > 3) AND (@1 < 10))\n", out)
	})

	t.Run("config", func(t *testing.T) {
		cfg := writeFile(t, "config.yaml", "enable_filter_scan: true\n")
		out, err := runOptplan(t, "", "optimize", "--config", cfg, path)
		require.NoError(t, err)
		require.Contains(t, out, "lower=3 upper=10")
	})

	t.Run("stdin", func(t *testing.T) {
		out, err := runOptplan(t, rangePlan, "optimize", "--stage=explore", "-")
		require.NoError(t, err)
		require.Equal(t, "filter ((@1 > 3) AND (@1 < 10))\n  scan t cols=(pk)\n", out)
	})

	t.Run("stats", func(t *testing.T) {
		out, err := runOptplan(t, "", "optimize", "--enable-filter-scan", "--stats", path)
		require.NoError(t, err)
		require.Contains(t, out, "FilterScan")
		require.Contains(t, out, "RangeScan")
		require.Contains(t, out, "rewrites of a")
	})

	t.Run("metrics", func(t *testing.T) {
		out, err := runOptplan(t, "", "optimize", "--enable-filter-scan", "--metrics", path)
		require.NoError(t, err)
		require.Contains(t, out, "# TYPE optimizer_rule_applied_total counter")
		require.Contains(t, out, `rule="FilterScan"`)
	})
}

func TestOptimizeErrors(t *testing.T) {
	path := writeFile(t, "plan.yaml", rangePlan)

	_, err := runOptplan(t, "", "optimize", "--stage=memo", path)
	require.EqualError(t, err, `unknown stage "memo"`)

	_, err = runOptplan(t, "", "optimize", "--disable-rule=NoSuchRule", path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid disabled_rules")

	_, err = runOptplan(t, "", "optimize", "--max-plan-size=16B", path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "is larger than 16 B")

	_, err = runOptplan(t, "", "optimize", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "reading plan")

	_, err = runOptplan(t, "scan: {}\n", "optimize", "-")
	require.Error(t, err)

	_, err = runOptplan(t, "", "optimize")
	require.Error(t, err)
}

func TestRules(t *testing.T) {
	out, err := runOptplan(t, "", "rules")
	require.NoError(t, err)
	for _, line := range []string{"ConstantFolding", "FilterJoin", "LimitSort"} {
		require.Contains(t, out, line)
	}
	// FilterScan is only enabled on request.
	var filterScan string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "FilterScan") {
			filterScan = line
		}
	}
	require.Contains(t, filterScan, "false")
	require.Contains(t, filterScan, "heuristic")
}
