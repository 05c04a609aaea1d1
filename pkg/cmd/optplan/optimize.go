// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/optbuilder"
	"github.com/planopt/planopt/pkg/sql/opt/plan"
	"github.com/planopt/planopt/pkg/sql/opt/xform"
	"github.com/planopt/planopt/pkg/util/humanizeutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

const (
	configFlag           = "config"
	enableFilterScanFlag = "enable-filter-scan"
	disableRuleFlag      = "disable-rule"
	strictFlag           = "strict"
	stageFlag            = "stage"
	statsFlag            = "stats"
	metricsFlag          = "metrics"
	maxPlanSizeFlag      = "max-plan-size"
)

const defaultMaxPlanSize = 4 << 20

var stagesByName = map[string]xform.Stage{
	"norm":    xform.NormalizeStage,
	"explore": xform.ExploreStage,
	"prune":   xform.PruneStage,
	"opt":     xform.PhysicalStage,
}

func makeOptimizeCmd() *cobra.Command {
	optimizeCmd := &cobra.Command{
		Use:   "optimize <plan.yaml>",
		Short: "Optimize a plan",
		Long: `Optimize the plan described by the YAML file, and print the result.
The plan is read from stdin if the file is "-".`,
		Example: "optplan optimize --enable-filter-scan plan.yaml",
		Args:    cobra.ExactArgs(1),
		RunE:    runOptimize,
	}
	maxPlanSize := int64(defaultMaxPlanSize)
	flags := optimizeCmd.Flags()
	flags.String(configFlag, "", "path to a YAML optimizer configuration")
	flags.Bool(enableFilterScanFlag, false, "fold filters into scans and derive key ranges")
	flags.StringSlice(disableRuleFlag, nil, "disable the named rules")
	flags.Bool(strictFlag, false, "fail when a rule cannot handle a predicate")
	flags.String(stageFlag, "opt", "last optimization stage to run (norm, explore, prune or opt)")
	flags.Bool(statsFlag, false, "print the number of times each rule was applied")
	flags.Bool(metricsFlag, false, "print the optimizer metrics in the Prometheus text format")
	flags.Var(humanizeutil.NewBytesValue(&maxPlanSize), maxPlanSizeFlag, "maximum size of the plan file")
	return optimizeCmd
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	var (
		configPath       = mustGetFlagString(cmd, configFlag)
		enableFilterScan = mustGetFlagBool(cmd, enableFilterScanFlag)
		disabledRules    = mustGetFlagStringSlice(cmd, disableRuleFlag)
		strict           = mustGetFlagBool(cmd, strictFlag)
		stageName        = mustGetFlagString(cmd, stageFlag)
		printStats       = mustGetFlagBool(cmd, statsFlag)
		printMetrics     = mustGetFlagBool(cmd, metricsFlag)
		maxPlanSize      = mustGetFlagBytes(cmd, maxPlanSizeFlag)
	)

	stage, ok := stagesByName[stageName]
	if !ok {
		return errors.Newf("unknown stage %q", stageName)
	}

	cfg := xform.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = xform.LoadConfig(configPath); err != nil {
			return err
		}
	}
	// Flags override the configuration file.
	if enableFilterScan {
		cfg.EnableFilterScan = true
	}
	if strict {
		cfg.StrictRuleErrors = true
	}
	cfg.DisabledRules = append(cfg.DisabledRules, disabledRules...)

	data, err := readPlan(cmd.InOrStdin(), args[0], maxPlanSize)
	if err != nil {
		return err
	}
	root, err := optbuilder.Build(ctx, data)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	var o xform.Optimizer
	if err := o.Init(ctx, cfg); err != nil {
		return err
	}
	o.SetMetrics(xform.NewMetrics(reg))

	start := time.Now()
	res, err := o.OptimizeTo(root, stage)
	elapsed := time.Since(start)
	if err != nil {
		return errors.Wrapf(err, "optimizing %s", args[0])
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, plan.Format(res))
	if printStats {
		fmt.Fprintln(out)
		writeStats(out, o.Stats(), len(data), elapsed)
	}
	if printMetrics {
		fmt.Fprintln(out)
		if err := writeMetrics(out, reg); err != nil {
			return err
		}
	}
	return nil
}

// readPlan reads the plan file, or stdin if the path is "-". Files larger
// than maxSize are rejected.
func readPlan(stdin io.Reader, path string, maxSize int64) ([]byte, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "reading plan")
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "reading plan")
	}
	if int64(len(data)) > maxSize {
		return nil, errors.Newf("plan %s is larger than %s", path, humanizeutil.IBytes(maxSize))
	}
	return data, nil
}

func writeStats(w io.Writer, stats xform.Stats, planSize int, elapsed time.Duration) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"rule", "kind", "applied", "skipped"})
	for r := opt.InvalidRuleName + 1; r < opt.NumRuleNames; r++ {
		if stats.Applied[r] == 0 && stats.Skipped[r] == 0 {
			continue
		}
		table.Append([]string{
			r.String(),
			ruleKind(r),
			humanizeutil.Count(stats.Applied[r]),
			humanizeutil.Count(stats.Skipped[r]),
		})
	}
	table.Render()
	fmt.Fprintf(w, "%s rewrites of a %s plan in %s\n",
		humanizeutil.Count(stats.TotalApplied()),
		humanizeutil.IBytes(int64(planSize)),
		humanizeutil.Duration(elapsed))
}

func writeMetrics(w io.Writer, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, "gathering metrics")
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Wrap(err, "writing metrics")
		}
	}
	return nil
}
