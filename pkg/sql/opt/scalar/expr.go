// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package scalar contains the bound scalar expressions that appear inside
// plan nodes: filter predicates, projections, join conditions, orderings and
// aggregate calls.
//
// Scalar expressions are immutable once constructed. Column references are
// positional: an InputRefExpr names an ordinal in the output of the child of
// the plan node that owns the expression (for a join, the concatenation of the
// left and right outputs; for a scan, the scan's own output).
package scalar

import (
	"github.com/cockroachdb/errors"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/sem/tree"
	"github.com/planopt/planopt/pkg/sql/types"
)

// Expr is a bound, typed scalar expression. The set of implementations is
// closed: *InputRefExpr, *ConstExpr, *BinaryExpr, *UnaryExpr and
// *AggregateExpr.
type Expr interface {
	// Op returns the operator of the expression.
	Op() opt.Operator

	// DataType returns the type the expression evaluates to.
	DataType() *types.T

	// ChildCount returns the number of operand expressions.
	ChildCount() int

	// Child returns the nth operand expression.
	Child(nth int) Expr

	// String formats the expression. See Format.
	String() string

	scalarExpr()
}

// InputRefExpr references a column of the input by its ordinal position.
type InputRefExpr struct {
	Index int
	Typ   *types.T
}

// ConstExpr is a typed constant.
type ConstExpr struct {
	Value tree.Datum
	Typ   *types.T
}

// BinaryExpr applies a binary operator (logical connective, comparison,
// arithmetic or concatenation) to two operands.
type BinaryExpr struct {
	Operator opt.Operator
	Left     Expr
	Right    Expr
	Typ      *types.T
}

// UnaryExpr applies a unary operator to one operand.
type UnaryExpr struct {
	Operator opt.Operator
	Input    Expr
	Typ      *types.T
}

var (
	_ Expr = &InputRefExpr{}
	_ Expr = &ConstExpr{}
	_ Expr = &BinaryExpr{}
	_ Expr = &UnaryExpr{}
	_ Expr = &AggregateExpr{}
)

// TrueExpr and FalseExpr are the boolean constants.
var (
	TrueExpr  = &ConstExpr{Value: tree.DBoolTrue, Typ: types.Bool}
	FalseExpr = &ConstExpr{Value: tree.DBoolFalse, Typ: types.Bool}
)

// NewInputRef returns a reference to the given input ordinal.
func NewInputRef(index int, typ *types.T) *InputRefExpr {
	if index < 0 {
		panic(errors.AssertionFailedf("negative input ordinal %d", index))
	}
	return &InputRefExpr{Index: index, Typ: typ}
}

// NewConst returns a constant with the type of the given datum.
func NewConst(d tree.Datum) *ConstExpr {
	return &ConstExpr{Value: d, Typ: d.ResolvedType()}
}

// NewTypedConst returns a constant with an explicit type. It is used for NULL
// constants that stand in for a value of a known type.
func NewTypedConst(d tree.Datum, typ *types.T) *ConstExpr {
	return &ConstExpr{Value: d, Typ: typ}
}

// NewBinary type checks and returns a binary expression.
func NewBinary(op opt.Operator, left, right Expr) (*BinaryExpr, error) {
	typ, err := binaryType(op, left.DataType(), right.DataType())
	if err != nil {
		return nil, err
	}
	return &BinaryExpr{Operator: op, Left: left, Right: right, Typ: typ}, nil
}

// MakeBinary is like NewBinary but panics with an assertion failure if the
// operands do not type check. It is used by rewrites whose operands are known
// to be valid.
func MakeBinary(op opt.Operator, left, right Expr) *BinaryExpr {
	b, err := NewBinary(op, left, right)
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "building %s", op))
	}
	return b
}

// NewUnary type checks and returns a unary expression.
func NewUnary(op opt.Operator, input Expr) (*UnaryExpr, error) {
	typ, err := unaryType(op, input.DataType())
	if err != nil {
		return nil, err
	}
	return &UnaryExpr{Operator: op, Input: input, Typ: typ}, nil
}

// Op implements the Expr interface.
func (*InputRefExpr) Op() opt.Operator { return opt.InputRefOp }

// Op implements the Expr interface.
func (*ConstExpr) Op() opt.Operator { return opt.ConstOp }

// Op implements the Expr interface.
func (e *BinaryExpr) Op() opt.Operator { return e.Operator }

// Op implements the Expr interface.
func (e *UnaryExpr) Op() opt.Operator { return e.Operator }

// DataType implements the Expr interface.
func (e *InputRefExpr) DataType() *types.T { return e.Typ }

// DataType implements the Expr interface.
func (e *ConstExpr) DataType() *types.T { return e.Typ }

// DataType implements the Expr interface.
func (e *BinaryExpr) DataType() *types.T { return e.Typ }

// DataType implements the Expr interface.
func (e *UnaryExpr) DataType() *types.T { return e.Typ }

// ChildCount implements the Expr interface.
func (*InputRefExpr) ChildCount() int { return 0 }

// ChildCount implements the Expr interface.
func (*ConstExpr) ChildCount() int { return 0 }

// ChildCount implements the Expr interface.
func (*BinaryExpr) ChildCount() int { return 2 }

// ChildCount implements the Expr interface.
func (*UnaryExpr) ChildCount() int { return 1 }

// Child implements the Expr interface.
func (*InputRefExpr) Child(nth int) Expr { panic(errors.AssertionFailedf("child index out of range")) }

// Child implements the Expr interface.
func (*ConstExpr) Child(nth int) Expr { panic(errors.AssertionFailedf("child index out of range")) }

// Child implements the Expr interface.
func (e *BinaryExpr) Child(nth int) Expr {
	switch nth {
	case 0:
		return e.Left
	case 1:
		return e.Right
	}
	panic(errors.AssertionFailedf("child index out of range"))
}

// Child implements the Expr interface.
func (e *UnaryExpr) Child(nth int) Expr {
	if nth == 0 {
		return e.Input
	}
	panic(errors.AssertionFailedf("child index out of range"))
}

func (e *InputRefExpr) String() string { return Format(e) }
func (e *ConstExpr) String() string    { return Format(e) }
func (e *BinaryExpr) String() string   { return Format(e) }
func (e *UnaryExpr) String() string    { return Format(e) }

func (*InputRefExpr) scalarExpr() {}
func (*ConstExpr) scalarExpr()    {}
func (*BinaryExpr) scalarExpr()   {}
func (*UnaryExpr) scalarExpr()    {}

// ExtractConst returns the value of a constant expression.
func ExtractConst(e Expr) (tree.Datum, bool) {
	if c, ok := e.(*ConstExpr); ok {
		return c.Value, true
	}
	return nil, false
}

// IsTrue returns true if the expression is the constant true.
func IsTrue(e Expr) bool {
	d, ok := ExtractConst(e)
	return ok && tree.IsTrue(d)
}

// IsFalse returns true if the expression is the constant false.
func IsFalse(e Expr) bool {
	d, ok := ExtractConst(e)
	return ok && tree.IsFalse(d)
}

// IsNull returns true if the expression is a NULL constant.
func IsNull(e Expr) bool {
	d, ok := ExtractConst(e)
	return ok && d == tree.DNull
}
