// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package main

import (
	"log"

	"github.com/planopt/planopt/pkg/util/humanizeutil"
	"github.com/spf13/cobra"
)

func mustGetFlagString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		log.Fatalf("unexpected error: %v", err)
	}
	return val
}

func mustGetFlagBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		log.Fatalf("unexpected error: %v", err)
	}
	return val
}

func mustGetFlagStringSlice(cmd *cobra.Command, name string) []string {
	val, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		log.Fatalf("unexpected error: %v", err)
	}
	return val
}

func mustGetFlagBytes(cmd *cobra.Command, name string) int64 {
	f := cmd.Flags().Lookup(name)
	if f == nil {
		log.Fatalf("unexpected error: flag %s not defined", name)
	}
	val, ok := f.Value.(*humanizeutil.BytesValue)
	if !ok {
		log.Fatalf("unexpected error: flag %s is not a size", name)
	}
	return val.Value()
}
