// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package main

import (
	"github.com/planopt/planopt/pkg/util/log"
	"github.com/spf13/cobra"
)

const verbosityFlag = "v"

func makeOptplanCmd() *cobra.Command {
	cli := &cobra.Command{
		Use:   "optplan [command] (flags)",
		Short: "optplan runs the heuristic plan optimizer over YAML plan descriptions.",
		Long: `optplan runs the heuristic plan optimizer over YAML plan descriptions.

Typical usage:
    optplan optimize plan.yaml
        Optimize the plan and print the physical plan.

    optplan optimize --enable-filter-scan --stats plan.yaml
        Also fold filters into scans, and report the applied rules.

    optplan optimize --stage=explore plan.yaml
        Stop after the heuristic rules and print the logical plan.

    optplan rules
        List the rules and whether they run by default.
`,
		// Errors are printed by main, with their details. Usage is only
		// printed for bad invocations, by cobra's argument validation.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cli.AddCommand(
		makeOptimizeCmd(),
		makeRulesCmd(),
	)

	cli.PersistentFlags().Int(verbosityFlag, 0, "log verbosity level")
	cli.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		v, err := cmd.Flags().GetInt(verbosityFlag)
		if err != nil {
			return err
		}
		log.SetVerbosity(v)
		return nil
	}
	return cli
}
