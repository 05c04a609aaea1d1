// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package scalar

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/types"
)

// AggregateKind identifies an aggregate function.
type AggregateKind uint8

const (
	// CountStar counts input rows and takes no argument.
	CountStar AggregateKind = iota
	Count
	Sum
	Min
	Max
	Avg
)

var aggregateNames = [...]string{
	CountStar: "count",
	Count:     "count",
	Sum:       "sum",
	Min:       "min",
	Max:       "max",
	Avg:       "avg",
}

func (k AggregateKind) String() string {
	if int(k) < len(aggregateNames) {
		return aggregateNames[k]
	}
	return fmt.Sprintf("aggregate(%d)", uint8(k))
}

// ParseAggregateKind returns the aggregate with the given name. The name
// "count-star" selects CountStar.
func ParseAggregateKind(name string) (AggregateKind, error) {
	switch name {
	case "count-star":
		return CountStar, nil
	case "count":
		return Count, nil
	case "sum":
		return Sum, nil
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	case "avg":
		return Avg, nil
	}
	return 0, errors.Newf("unknown aggregate function %q", name)
}

// AggregateExpr is a call to an aggregate function. It may only appear in
// the aggregate list of an aggregate plan node, where its argument refers to
// the input of that node.
type AggregateExpr struct {
	Kind     AggregateKind
	Arg      Expr
	Distinct bool
	Typ      *types.T
}

// NewAggregate type checks and returns an aggregate call. arg must be nil for
// CountStar and non-nil otherwise.
func NewAggregate(kind AggregateKind, arg Expr, distinct bool) (*AggregateExpr, error) {
	if (kind == CountStar) != (arg == nil) {
		return nil, errors.AssertionFailedf("%s called with wrong number of arguments", kind)
	}
	var typ *types.T
	switch kind {
	case CountStar, Count:
		typ = types.Int
	case Sum:
		if !isNumericOrUnknown(arg.DataType()) {
			return nil, typeMismatchf("unknown signature: sum(%s)", arg.DataType())
		}
		typ = arg.DataType()
	case Avg:
		switch arg.DataType().Family() {
		case types.IntFamily, types.DecimalFamily:
			typ = types.Decimal
		case types.FloatFamily, types.UnknownFamily:
			typ = types.Float
		default:
			return nil, typeMismatchf("unknown signature: avg(%s)", arg.DataType())
		}
	case Min, Max:
		typ = arg.DataType()
	default:
		return nil, errors.AssertionFailedf("unknown aggregate %d", kind)
	}
	return &AggregateExpr{Kind: kind, Arg: arg, Distinct: distinct, Typ: typ}, nil
}

// Op implements the Expr interface.
func (*AggregateExpr) Op() opt.Operator { return opt.AggCallOp }

// DataType implements the Expr interface.
func (e *AggregateExpr) DataType() *types.T { return e.Typ }

// ChildCount implements the Expr interface.
func (e *AggregateExpr) ChildCount() int {
	if e.Arg == nil {
		return 0
	}
	return 1
}

// Child implements the Expr interface.
func (e *AggregateExpr) Child(nth int) Expr {
	if nth == 0 && e.Arg != nil {
		return e.Arg
	}
	panic(errors.AssertionFailedf("child index out of range"))
}

func (e *AggregateExpr) String() string { return Format(e) }

func (*AggregateExpr) scalarExpr() {}
