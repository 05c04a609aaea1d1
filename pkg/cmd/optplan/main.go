// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// optplan optimizes query plans described in YAML and prints the resulting
// physical plans.
package main

import (
	"fmt"
	"os"
)

func main() {
	cmd := makeOptplanCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
