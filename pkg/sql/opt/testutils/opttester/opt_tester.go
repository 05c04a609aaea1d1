// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package opttester runs the optimizer over YAML plan descriptions for
// data-driven tests.
package opttester

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"
	"text/tabwriter"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/errors"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/optbuilder"
	"github.com/planopt/planopt/pkg/sql/opt/plan"
	"github.com/planopt/planopt/pkg/sql/opt/xform"
	"github.com/pmezard/go-difflib/difflib"
)

// RuleSet stores an unordered set of RuleNames.
type RuleSet = mapset.Set[opt.RuleName]

// OptTester is a helper for testing the various optimizer components. It
// contains the boiler-plate code for the following useful tasks:
//   - Build an unoptimized plan from its YAML description
//   - Run the optimizer pipeline up to a given stage
//   - Show the plan after each stage of the pipeline
//   - Report the rules applied by the optimizer
//
// The OptTester is used by tests in various sub-packages of the opt package.
type OptTester struct {
	Flags Flags

	ctx   context.Context
	input string

	// seenRules is the set of rules applied by the last optimization.
	seenRules RuleSet
}

// Flags are control knobs for tests. Note that specific testcases can
// override these defaults.
type Flags struct {
	// Config is the optimizer configuration.
	Config xform.Config

	// ExpectedRules is a set of rules which must be exercised for the test to
	// pass.
	ExpectedRules RuleSet

	// UnexpectedRules is a set of rules which must not be exercised for the
	// test to pass.
	UnexpectedRules RuleSet
}

// New constructs a new instance of the OptTester for the given YAML plan
// description.
func New(input string) *OptTester {
	return &OptTester{
		ctx:   context.Background(),
		input: input,
		Flags: Flags{
			Config:          xform.DefaultConfig(),
			ExpectedRules:   mapset.NewThreadUnsafeSet[opt.RuleName](),
			UnexpectedRules: mapset.NewThreadUnsafeSet[opt.RuleName](),
		},
	}
}

// RunCommand implements commands that are used by most tests:
//
//   - build
//
//     Builds a plan from its YAML description and outputs it without any
//     optimizations applied to it.
//
//   - norm [flags]
//
//     Builds a plan and applies the normalization rules.
//
//   - explore [flags]
//
//     Builds a plan and applies the normalization and heuristic rules.
//
//   - prune [flags]
//
//     Like explore, and also prunes the columns that the root does not need.
//
//   - opt [flags]
//
//     Builds a plan and runs the whole optimizer pipeline. The output plan
//     is optimized again, and the test fails if that changes it.
//
//   - optsteps [flags]
//
//     Outputs the plan after each stage of the pipeline, as a unified diff
//     against the previous stage.
//
//   - stats [flags]
//
//     Performs the optimization and outputs the number of times each rule
//     was applied.
//
// Supported flags:
//
//   - enable-filter-scan: enables the FilterScan and RangeScan rules.
//
//   - disable: disables rules by name. Examples:
//     opt disable=FilterJoin
//     norm disable=(ConstantFolding,ConstantMoving)
//
//   - strict: fail the optimization if a rule meets input it cannot handle.
//
//   - max-rewrites: bound the number of rewrites at a single node.
//
//   - expect: fail the test if the rules specified by name are not applied.
//
//   - expect-not: fail the test if the rules specified by name are applied.
func (ot *OptTester) RunCommand(tb testing.TB, d *datadriven.TestData) string {
	// Allow testcases to override the flags.
	for _, a := range d.CmdArgs {
		if err := ot.Flags.Set(a); err != nil {
			d.Fatalf(tb, "%s", err)
		}
	}

	switch d.Cmd {
	case "build":
		e, err := ot.Build()
		if err != nil {
			return formatError(err)
		}
		return plan.Format(e)

	case "norm", "explore", "prune", "opt":
		e, err := ot.OptimizeTo(stageByCommand[d.Cmd])
		if err != nil {
			return formatError(err)
		}
		ot.checkExpectedRules(tb, d)
		if d.Cmd == "opt" {
			ot.checkIdempotent(tb, d, e)
		}
		return plan.Format(e)

	case "optsteps":
		result, err := ot.OptSteps()
		if err != nil {
			return formatError(err)
		}
		return result

	case "stats":
		result, err := ot.RuleStats()
		if err != nil {
			return formatError(err)
		}
		return result

	default:
		d.Fatalf(tb, "unsupported command: %s", d.Cmd)
		return ""
	}
}

var stageByCommand = map[string]xform.Stage{
	"norm":    xform.NormalizeStage,
	"explore": xform.ExploreStage,
	"prune":   xform.PruneStage,
	"opt":     xform.PhysicalStage,
}

func formatError(err error) string {
	return fmt.Sprintf("error: %s\n", strings.TrimSpace(err.Error()))
}

// Set parses an argument that refers to a flag.
// See OptTester.RunCommand for supported flags.
func (f *Flags) Set(arg datadriven.CmdArg) error {
	switch arg.Key {
	case "enable-filter-scan":
		f.Config.EnableFilterScan = true

	case "strict":
		f.Config.StrictRuleErrors = true

	case "disable":
		if len(arg.Vals) == 0 {
			return errors.New("disable requires arguments")
		}
		for _, s := range arg.Vals {
			r, err := opt.ParseRuleName(s)
			if err != nil {
				return err
			}
			f.Config.DisableRule(r)
		}

	case "max-rewrites":
		if len(arg.Vals) != 1 {
			return errors.New("max-rewrites requires one argument")
		}
		n, err := strconv.Atoi(arg.Vals[0])
		if err != nil {
			return errors.Wrap(err, "max-rewrites")
		}
		f.Config.MaxRewritesPerNode = n

	case "expect":
		return addRules(f.ExpectedRules, arg.Vals)

	case "expect-not":
		return addRules(f.UnexpectedRules, arg.Vals)

	default:
		return errors.Newf("unknown argument: %s", arg.Key)
	}
	return nil
}

func addRules(set RuleSet, names []string) error {
	for _, s := range names {
		r, err := opt.ParseRuleName(s)
		if err != nil {
			return err
		}
		set.Add(r)
	}
	return nil
}

// Build constructs the plan described by the input, with no transformations
// applied to it.
func (ot *OptTester) Build() (plan.RelExpr, error) {
	return optbuilder.Build(ot.ctx, []byte(ot.input))
}

// OptimizeTo builds the plan and runs the optimizer pipeline up to the given
// stage.
func (ot *OptTester) OptimizeTo(stage xform.Stage) (plan.RelExpr, error) {
	e, err := ot.Build()
	if err != nil {
		return nil, err
	}
	o, err := ot.makeOptimizer()
	if err != nil {
		return nil, err
	}
	return o.OptimizeTo(e, stage)
}

// Optimize builds the plan and runs the whole optimizer pipeline.
func (ot *OptTester) Optimize() (plan.RelExpr, error) {
	return ot.OptimizeTo(xform.PhysicalStage)
}

// OptSteps runs the optimizer pipeline one stage at a time, and outputs the
// plan after each stage as a unified diff against the plan after the
// previous stage. Stages that do not change the plan are reported as such.
func (ot *OptTester) OptSteps() (string, error) {
	e, err := ot.Build()
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	prev := plan.Format(e)
	buf.WriteString("build\n")
	indent(&buf, prev)

	steps := []struct {
		name  string
		stage xform.Stage
	}{
		{"norm", xform.NormalizeStage},
		{"explore", xform.ExploreStage},
		{"prune", xform.PruneStage},
		{"opt", xform.PhysicalStage},
	}
	for _, step := range steps {
		o, err := ot.makeOptimizer()
		if err != nil {
			return "", err
		}
		res, err := o.OptimizeTo(e, step.stage)
		if err != nil {
			return "", err
		}
		next := plan.Format(res)
		fmt.Fprintf(&buf, "%s\n", step.name)
		if next == prev {
			buf.WriteString("  no changes\n")
			continue
		}
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:       difflib.SplitLines(strings.TrimSuffix(prev, "\n")),
			B:       difflib.SplitLines(strings.TrimSuffix(next, "\n")),
			Context: 100,
		})
		if err != nil {
			return "", err
		}
		indent(&buf, diff)
		prev = next
	}
	return buf.String(), nil
}

// RuleStats performs the optimization and returns statistics about how many
// rules were applied.
func (ot *OptTester) RuleStats() (string, error) {
	e, err := ot.Build()
	if err != nil {
		return "", err
	}
	o, err := ot.makeOptimizer()
	if err != nil {
		return "", err
	}
	if _, err := o.Optimize(e); err != nil {
		return "", err
	}
	stats := o.Stats()

	type ruleStats struct {
		rule       opt.RuleName
		numApplied int
	}
	var norm, heuristic []ruleStats
	var allNorm, allHeuristic int
	for r := opt.InvalidRuleName + 1; r < opt.NumRuleNames; r++ {
		n := stats.Applied[r]
		if n == 0 {
			continue
		}
		if r.IsNormalization() {
			allNorm += n
			norm = append(norm, ruleStats{rule: r, numApplied: n})
		} else {
			allHeuristic += n
			heuristic = append(heuristic, ruleStats{rule: r, numApplied: n})
		}
	}
	// Sort with most applied rules first.
	sort.SliceStable(norm, func(i, j int) bool {
		return norm[i].numApplied > norm[j].numApplied
	})
	sort.SliceStable(heuristic, func(i, j int) bool {
		return heuristic[i].numApplied > heuristic[j].numApplied
	})

	// Ready to report.
	var res strings.Builder
	report := func(kind string, total int, rules []ruleStats) {
		fmt.Fprintf(&res, "%s rules applied %d times.\n", kind, total)
		if len(rules) == 0 {
			return
		}
		tw := tabwriter.NewWriter(&res, 1 /* minwidth */, 1 /* tabwidth */, 1 /* padding */, ' ', 0)
		for _, s := range rules {
			fmt.Fprintf(tw, "  %s\tapplied\t%d\ttimes.\n", s.rule, s.numApplied)
		}
		_ = tw.Flush()
	}
	report("Normalization", allNorm, norm)
	report("Heuristic", allHeuristic, heuristic)

	var skipped int
	for _, n := range stats.Skipped {
		skipped += n
	}
	if skipped > 0 {
		fmt.Fprintf(&res, "Rules skipped %d times.\n", skipped)
	}
	return res.String(), nil
}

func (ot *OptTester) makeOptimizer() (*xform.Optimizer, error) {
	var o xform.Optimizer
	if err := o.Init(ot.ctx, ot.Flags.Config); err != nil {
		return nil, err
	}
	ot.seenRules = mapset.NewThreadUnsafeSet[opt.RuleName]()
	o.NotifyOnAppliedRule(func(ruleName opt.RuleName, source, target plan.RelExpr) {
		ot.seenRules.Add(ruleName)
	})
	return &o, nil
}

func (ot *OptTester) checkExpectedRules(tb testing.TB, d *datadriven.TestData) {
	if missing := ot.Flags.ExpectedRules.Difference(ot.seenRules); missing.Cardinality() > 0 {
		d.Fatalf(tb, "expected to see %s, but was not triggered. Did see %s",
			formatRuleSet(missing), formatRuleSet(ot.seenRules))
	}
	if unexpected := ot.Flags.UnexpectedRules.Intersect(ot.seenRules); unexpected.Cardinality() > 0 {
		d.Fatalf(tb, "expected not to see %s, but it was triggered", formatRuleSet(unexpected))
	}
}

// checkIdempotent optimizes the optimized plan again and fails the test if
// the result differs.
func (ot *OptTester) checkIdempotent(tb testing.TB, d *datadriven.TestData, e plan.RelExpr) {
	o, err := ot.makeOptimizer()
	if err != nil {
		d.Fatalf(tb, "%v", err)
	}
	again, err := o.Optimize(e)
	if err != nil {
		d.Fatalf(tb, "optimizing the optimized plan: %v", err)
	}
	if before, after := plan.Format(e), plan.Format(again); before != after {
		d.Fatalf(tb, "optimizing the optimized plan changed it:\n%s\nto:\n%s", before, after)
	}
}

func formatRuleSet(r RuleSet) string {
	names := make([]string, 0, r.Cardinality())
	for _, rule := range r.ToSlice() {
		names = append(names, rule.String())
	}
	sort.Strings(names)
	return "(" + strings.Join(names, ", ") + ")"
}

func indent(buf *strings.Builder, str string) {
	for _, line := range strings.Split(strings.TrimRight(str, "\n"), "\n") {
		buf.WriteString("  ")
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
}
