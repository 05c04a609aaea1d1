// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package main

import (
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/norm"
	"github.com/planopt/planopt/pkg/sql/opt/xform"
	"github.com/spf13/cobra"
)

func makeRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rules",
		Short:   "List the optimizer rules",
		Long:    "List the rules in the order they run, and whether they run by default.",
		Example: "optplan rules",
		Args:    cobra.ExactArgs(0),
		RunE:    runRules,
	}
}

func runRules(cmd *cobra.Command, _ []string) error {
	var o xform.Optimizer
	if err := o.Init(cmd.Context(), xform.DefaultConfig()); err != nil {
		return err
	}
	enabled := make(map[opt.RuleName]bool)
	for _, r := range o.Rules() {
		enabled[r.Name()] = true
	}
	for _, r := range norm.Rules {
		enabled[r] = true
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"rule", "kind", "default"})
	for _, rules := range [][]opt.RuleName{norm.Rules, xform.HeuristicRules} {
		for _, r := range rules {
			table.Append([]string{r.String(), ruleKind(r), strconv.FormatBool(enabled[r])})
		}
	}
	table.Render()
	return nil
}

func ruleKind(r opt.RuleName) string {
	if r.IsNormalization() {
		return "normalization"
	}
	return "heuristic"
}
