// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package norm

import (
	"github.com/planopt/planopt/pkg/sql/opt/scalar"
	"github.com/planopt/planopt/pkg/sql/sem/tree"
	"github.com/planopt/planopt/pkg/sql/types"
)

// CustomFuncs contains all the custom match and replace functions used by
// the normalization rules. These are also imported and used by the heuristic
// rules.
type CustomFuncs struct {
	f *Factory
}

// Init initializes a new CustomFuncs with the given factory.
func (c *CustomFuncs) Init(f *Factory) {
	// This initialization pattern ensures that fields are not unwittingly
	// reused. Field reuse must be explicit.
	*c = CustomFuncs{
		f: f,
	}
}

// ----------------------------------------------------------------------
//
// Typing functions
//   General functions used to test and construct expression data types.
//
// ----------------------------------------------------------------------

// HasColType returns true if the given scalar expression has a static type
// that's identical to the requested coltype.
func (c *CustomFuncs) HasColType(e scalar.Expr, dstTyp *types.T) bool {
	return e.DataType().Identical(dstTyp)
}

// IsIntOrDecimal returns true if the given scalar expression is of the
// integer or the decimal family. Arithmetic on those families is exact, so
// constants can be moved across a comparison without changing its result.
func (c *CustomFuncs) IsIntOrDecimal(e scalar.Expr) bool {
	switch e.DataType().Family() {
	case types.IntFamily, types.DecimalFamily:
		return true
	}
	return false
}

// ----------------------------------------------------------------------
//
// Constant functions
//   General functions used to test and construct constants.
//
// ----------------------------------------------------------------------

// IsConstValueEqual returns true if the given expression is a numeric
// constant equal to the given integer.
func (c *CustomFuncs) IsConstValueEqual(e scalar.Expr, val int64) bool {
	d, ok := scalar.ExtractConst(e)
	if !ok || !d.ResolvedType().IsNumeric() {
		return false
	}
	cmp, err := d.Compare(tree.NewDInt(tree.DInt(val)))
	return err == nil && cmp == 0
}

// IsNonNullConst returns true if the expression is a constant other than
// NULL.
func (c *CustomFuncs) IsNonNullConst(e scalar.Expr) bool {
	d, ok := scalar.ExtractConst(e)
	return ok && d != tree.DNull
}

// AllConstants returns true if every operand of the expression is a
// constant. Expressions without operands are never constant folded.
func (c *CustomFuncs) AllConstants(e scalar.Expr) bool {
	n := e.ChildCount()
	if n == 0 {
		return false
	}
	for i := 0; i < n; i++ {
		if _, ok := e.Child(i).(*scalar.ConstExpr); !ok {
			return false
		}
	}
	return true
}

// MakeConst returns a constant of the given type for the datum. A NULL datum
// keeps the type of the expression it replaces.
func (c *CustomFuncs) MakeConst(d tree.Datum, typ *types.T) *scalar.ConstExpr {
	if d == tree.DNull {
		return scalar.NewTypedConst(d, typ)
	}
	return scalar.NewConst(d)
}
