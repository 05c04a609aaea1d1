// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// RuleName enumerates the names of all the rewrite rules known to the
// optimizer. Normalization rules run once, in a fixed order, before the
// heuristic rules; heuristic rules are matched against plan subtrees and
// applied until a local fixpoint is reached.
type RuleName uint8

const (
	// InvalidRuleName is the zero value and never names a rule.
	InvalidRuleName RuleName = iota

	// -- Normalization rules --

	// ConstantFolding replaces operators over constant operands with the
	// evaluated constant.
	ConstantFolding

	// ArithSimplification removes arithmetic identities such as x+0 and x*1.
	ArithSimplification

	// BoolSimplification removes boolean identities such as true AND p, and
	// removes filters that are constant.
	BoolSimplification

	// ConstantMoving puts comparisons into the canonical "expr OP constant"
	// form.
	ConstantMoving

	// -- Heuristic rules --

	// FilterAggregate pushes conjuncts of a filter that only reference
	// grouping keys below the aggregate.
	FilterAggregate

	// FilterJoin pushes conjuncts of a filter that only reference one side of
	// a join into that side.
	FilterJoin

	// LimitProject moves a limit below a projection.
	LimitProject

	// LimitSort fuses a limit over a sort into a top-n.
	LimitSort

	// FilterScan folds a filter directly above a table scan into the scan.
	FilterScan

	// RangeScan derives primary key bounds from the residual filter of a scan.
	RangeScan

	// NumRuleNames tracks the number of rule names. This should be last.
	NumRuleNames
)

var ruleNames = [NumRuleNames]string{
	InvalidRuleName:     "invalid",
	ConstantFolding:     "ConstantFolding",
	ArithSimplification: "ArithSimplification",
	BoolSimplification:  "BoolSimplification",
	ConstantMoving:      "ConstantMoving",
	FilterAggregate:     "FilterAggregate",
	FilterJoin:          "FilterJoin",
	LimitProject:        "LimitProject",
	LimitSort:           "LimitSort",
	FilterScan:          "FilterScan",
	RangeScan:           "RangeScan",
}

func (r RuleName) String() string {
	if r >= NumRuleNames {
		return fmt.Sprintf("rule(%d)", r)
	}
	return ruleNames[r]
}

// SafeValue implements the redact.SafeValue interface.
func (RuleName) SafeValue() {}

var _ redact.SafeValue = RuleName(0)

// IsNormalization returns true if the rule runs during the normalization
// phase.
func (r RuleName) IsNormalization() bool {
	return r >= ConstantFolding && r <= ConstantMoving
}

// IsHeuristic returns true if the rule is applied by the heuristic driver.
func (r RuleName) IsHeuristic() bool {
	return r >= FilterAggregate && r < NumRuleNames
}

// ParseRuleName returns the rule with the given name.
func ParseRuleName(name string) (RuleName, error) {
	for r := ConstantFolding; r < NumRuleNames; r++ {
		if ruleNames[r] == name {
			return r, nil
		}
	}
	return InvalidRuleName, errors.Newf("unknown rule %q", name)
}
