// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import (
	"fmt"

	"github.com/cockroachdb/redact"
)

// Operator describes the type of operation that a plan or scalar expression
// performs. Relational operators come in two families: logical operators
// describe what to compute and are the only ones rewrite rules match, while
// physical operators are the executable counterparts produced by the final
// conversion pass. Every logical relational operator has exactly one physical
// counterpart.
type Operator uint16

const (
	// UnknownOp is the zero value and is never a valid operator.
	UnknownOp Operator = iota

	// -- Scalar operators --

	// InputRefOp references a column of the input by its ordinal position.
	InputRefOp

	// ConstOp is a leaf expression that has a constant value.
	ConstOp

	AndOp
	OrOp
	NotOp

	EqOp
	NeOp
	LtOp
	LeOp
	GtOp
	GeOp

	PlusOp
	MinusOp
	MultOp
	DivOp
	ModOp
	ConcatOp

	UnaryMinusOp
	IsNullOp
	IsNotNullOp

	// AggCallOp is an aggregate function call. It may only appear in the
	// aggregate list of an Aggregate operator.
	AggCallOp

	// -- Logical relational operators --

	ScanOp
	FilterOp
	ProjectOp
	AggregateOp
	JoinOp
	LimitOp
	SortOp
	TopNOp
	ValuesOp
	InsertOp
	DeleteOp

	// -- Physical relational operators --

	PhysicalScanOp
	PhysicalFilterOp
	PhysicalProjectOp
	PhysicalAggregateOp
	PhysicalJoinOp
	PhysicalLimitOp
	PhysicalSortOp
	PhysicalTopNOp
	PhysicalValuesOp
	PhysicalInsertOp
	PhysicalDeleteOp

	// NumOperators tracks the total count of operators. This should be last.
	NumOperators
)

const (
	firstLogicalOp  = ScanOp
	lastLogicalOp   = DeleteOp
	firstPhysicalOp = PhysicalScanOp
	lastPhysicalOp  = PhysicalDeleteOp
)

var opNames = [NumOperators]string{
	UnknownOp:           "unknown",
	InputRefOp:          "input-ref",
	ConstOp:             "const",
	AndOp:               "and",
	OrOp:                "or",
	NotOp:               "not",
	EqOp:                "eq",
	NeOp:                "ne",
	LtOp:                "lt",
	LeOp:                "le",
	GtOp:                "gt",
	GeOp:                "ge",
	PlusOp:              "plus",
	MinusOp:             "minus",
	MultOp:              "mult",
	DivOp:               "div",
	ModOp:               "mod",
	ConcatOp:            "concat",
	UnaryMinusOp:        "unary-minus",
	IsNullOp:            "is-null",
	IsNotNullOp:         "is-not-null",
	AggCallOp:           "agg-call",
	ScanOp:              "scan",
	FilterOp:            "filter",
	ProjectOp:           "project",
	AggregateOp:         "group-by",
	JoinOp:              "join",
	LimitOp:             "limit",
	SortOp:              "sort",
	TopNOp:              "top-n",
	ValuesOp:            "values",
	InsertOp:            "insert",
	DeleteOp:            "delete",
	PhysicalScanOp:      "physical-scan",
	PhysicalFilterOp:    "physical-filter",
	PhysicalProjectOp:   "physical-project",
	PhysicalAggregateOp: "physical-group-by",
	PhysicalJoinOp:      "physical-join",
	PhysicalLimitOp:     "physical-limit",
	PhysicalSortOp:      "physical-sort",
	PhysicalTopNOp:      "physical-top-n",
	PhysicalValuesOp:    "physical-values",
	PhysicalInsertOp:    "physical-insert",
	PhysicalDeleteOp:    "physical-delete",
}

// opSymbols holds the SQL spelling of the scalar operators that print infix
// or prefix.
var opSymbols = [NumOperators]string{
	AndOp:        "AND",
	OrOp:         "OR",
	NotOp:        "NOT",
	EqOp:         "=",
	NeOp:         "!=",
	LtOp:         "<",
	LeOp:         "<=",
	GtOp:         ">",
	GeOp:         ">=",
	PlusOp:       "+",
	MinusOp:      "-",
	MultOp:       "*",
	DivOp:        "/",
	ModOp:        "%",
	ConcatOp:     "||",
	UnaryMinusOp: "-",
	IsNullOp:     "IS NULL",
	IsNotNullOp:  "IS NOT NULL",
}

func (op Operator) String() string {
	if op >= NumOperators {
		return fmt.Sprintf("operator(%d)", op)
	}
	return opNames[op]
}

// SafeValue implements the redact.SafeValue interface.
func (Operator) SafeValue() {}

var _ redact.SafeValue = Operator(0)

// Symbol returns the SQL spelling of a scalar operator, or the operator name
// if it has none.
func (op Operator) Symbol() string {
	if op < NumOperators && opSymbols[op] != "" {
		return opSymbols[op]
	}
	return op.String()
}

// IsRelational returns true if the operator is a logical or physical
// relational operator.
func (op Operator) IsRelational() bool {
	return op >= firstLogicalOp && op <= lastPhysicalOp
}

// IsLogical returns true if the operator is a logical relational operator.
func (op Operator) IsLogical() bool {
	return op >= firstLogicalOp && op <= lastLogicalOp
}

// IsPhysical returns true if the operator is a physical relational operator.
func (op Operator) IsPhysical() bool {
	return op >= firstPhysicalOp && op <= lastPhysicalOp
}

// IsScalar returns true if the operator is a scalar operator.
func (op Operator) IsScalar() bool {
	return op > UnknownOp && op < firstLogicalOp
}

// PhysicalCounterpart returns the physical operator that executes the given
// logical operator. Physical operators map to themselves. It returns false for
// scalar operators.
func PhysicalCounterpart(op Operator) (Operator, bool) {
	switch {
	case op.IsLogical():
		return op - firstLogicalOp + firstPhysicalOp, true
	case op.IsPhysical():
		return op, true
	}
	return UnknownOp, false
}

// LogicalCounterpart is the inverse of PhysicalCounterpart.
func LogicalCounterpart(op Operator) (Operator, bool) {
	switch {
	case op.IsPhysical():
		return op - firstPhysicalOp + firstLogicalOp, true
	case op.IsLogical():
		return op, true
	}
	return UnknownOp, false
}

// IsComparisonOp returns true for the binary comparison operators.
func IsComparisonOp(op Operator) bool {
	switch op {
	case EqOp, NeOp, LtOp, LeOp, GtOp, GeOp:
		return true
	}
	return false
}

// IsRangeOp returns true for the comparison operators that constrain a key to
// a contiguous range: Eq, Lt, Le, Gt and Ge.
func IsRangeOp(op Operator) bool {
	switch op {
	case EqOp, LtOp, LeOp, GtOp, GeOp:
		return true
	}
	return false
}

// IsArithmeticOp returns true for the binary arithmetic operators.
func IsArithmeticOp(op Operator) bool {
	switch op {
	case PlusOp, MinusOp, MultOp, DivOp, ModOp:
		return true
	}
	return false
}

// IsBinaryOp returns true for every operator represented by a two-operand
// scalar expression.
func IsBinaryOp(op Operator) bool {
	switch op {
	case AndOp, OrOp, ConcatOp:
		return true
	}
	return IsComparisonOp(op) || IsArithmeticOp(op)
}

// IsUnaryOp returns true for every operator represented by a one-operand
// scalar expression.
func IsUnaryOp(op Operator) bool {
	switch op {
	case NotOp, UnaryMinusOp, IsNullOp, IsNotNullOp:
		return true
	}
	return false
}

// CommuteComparison returns the comparison operator that gives the same
// result when the operands of op are swapped:
//
//	Gt <-> Lt, Ge <-> Le, Eq <-> Eq, Ne <-> Ne
//
// It returns false if op is not a comparison operator.
func CommuteComparison(op Operator) (Operator, bool) {
	switch op {
	case EqOp, NeOp:
		return op, true
	case LtOp:
		return GtOp, true
	case GtOp:
		return LtOp, true
	case LeOp:
		return GeOp, true
	case GeOp:
		return LeOp, true
	}
	return UnknownOp, false
}
