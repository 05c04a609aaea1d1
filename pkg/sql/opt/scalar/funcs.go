// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package scalar

import (
	"github.com/cockroachdb/errors"
	"github.com/planopt/planopt/pkg/sql/opt"
)

// Conjuncts flattens a tree of AND operators into the list of its conjuncts,
// from left to right. A nil expression has no conjuncts.
func Conjuncts(e Expr) []Expr {
	if e == nil {
		return nil
	}
	var res []Expr
	var walk func(e Expr)
	walk = func(e Expr) {
		if b, ok := e.(*BinaryExpr); ok && b.Operator == opt.AndOp {
			walk(b.Left)
			walk(b.Right)
			return
		}
		res = append(res, e)
	}
	walk(e)
	return res
}

// And combines the given conjuncts into a left-deep tree of AND operators.
// It returns nil if the list is empty.
func And(conjuncts ...Expr) Expr {
	var res Expr
	for _, c := range conjuncts {
		if res == nil {
			res = c
			continue
		}
		res = MakeBinary(opt.AndOp, res, c)
	}
	return res
}

// InputCols returns the set of input ordinals referenced by the expression.
func InputCols(e Expr) opt.ColSet {
	var cols opt.ColSet
	if e != nil {
		addInputCols(e, &cols)
	}
	return cols
}

func addInputCols(e Expr, cols *opt.ColSet) {
	if ref, ok := e.(*InputRefExpr); ok {
		cols.Add(ref.Index)
		return
	}
	for i, n := 0, e.ChildCount(); i < n; i++ {
		addInputCols(e.Child(i), cols)
	}
}

// InputColsList returns the union of the input ordinals referenced by each
// of the expressions.
func InputColsList(list []Expr) opt.ColSet {
	var cols opt.ColSet
	for _, e := range list {
		addInputCols(e, &cols)
	}
	return cols
}

// IsConstant returns true if the expression references no input column.
func IsConstant(e Expr) bool {
	return InputCols(e).Empty()
}

// WithChildren returns an expression with the same operator and type as e
// but with the given operands. It returns e itself if the operands are
// identical to the existing ones.
func WithChildren(e Expr, children ...Expr) Expr {
	if len(children) != e.ChildCount() {
		panic(errors.AssertionFailedf(
			"%s expects %d children, got %d", e.Op(), e.ChildCount(), len(children)))
	}
	switch t := e.(type) {
	case *BinaryExpr:
		if t.Left == children[0] && t.Right == children[1] {
			return t
		}
		return &BinaryExpr{Operator: t.Operator, Left: children[0], Right: children[1], Typ: t.Typ}

	case *UnaryExpr:
		if t.Input == children[0] {
			return t
		}
		return &UnaryExpr{Operator: t.Operator, Input: children[0], Typ: t.Typ}

	case *AggregateExpr:
		if t.Arg == nil || t.Arg == children[0] {
			return t
		}
		return &AggregateExpr{Kind: t.Kind, Arg: children[0], Distinct: t.Distinct, Typ: t.Typ}
	}
	return e
}

// ReplaceFunc is called by Replace for every subexpression, after its
// operands have been replaced.
type ReplaceFunc func(e Expr) Expr

// Replace rewrites an expression bottom-up. The replace function is called
// for each subexpression with operands that have already been replaced, and
// returns either the expression it was given or a replacement. Subtrees for
// which no replacement happened are reused.
func Replace(e Expr, replace ReplaceFunc) Expr {
	if e == nil {
		return nil
	}
	n := e.ChildCount()
	if n == 0 {
		return replace(e)
	}
	var children [2]Expr
	for i := 0; i < n; i++ {
		children[i] = Replace(e.Child(i), replace)
	}
	return replace(WithChildren(e, children[:n]...))
}

// Remap returns a copy of the expression in which every input ordinal is
// replaced with its image in the mapping. It panics if an ordinal has no
// image.
func Remap(e Expr, mapping map[int]int) Expr {
	return Replace(e, func(e Expr) Expr {
		ref, ok := e.(*InputRefExpr)
		if !ok {
			return e
		}
		to, ok := mapping[ref.Index]
		if !ok {
			panic(errors.AssertionFailedf("input ordinal %d is not mapped", ref.Index))
		}
		if to == ref.Index {
			return ref
		}
		return NewInputRef(to, ref.Typ)
	})
}

// Shift returns a copy of the expression in which delta is added to every
// input ordinal.
func Shift(e Expr, delta int) Expr {
	if delta == 0 {
		return e
	}
	return Replace(e, func(e Expr) Expr {
		if ref, ok := e.(*InputRefExpr); ok {
			return NewInputRef(ref.Index+delta, ref.Typ)
		}
		return e
	})
}

// Substitute returns a copy of the expression in which every input reference
// is replaced by the expression at its ordinal in the list. The types of the
// replacements must match the types of the references.
func Substitute(e Expr, exprs []Expr) Expr {
	return Replace(e, func(e Expr) Expr {
		ref, ok := e.(*InputRefExpr)
		if !ok {
			return e
		}
		if ref.Index >= len(exprs) {
			panic(errors.AssertionFailedf("input ordinal %d out of range", ref.Index))
		}
		return exprs[ref.Index]
	})
}

// Equal returns true if the two expressions are structurally identical.
func Equal(left, right Expr) bool {
	if left == right {
		return true
	}
	if left == nil || right == nil {
		return false
	}
	if left.Op() != right.Op() || !left.DataType().Identical(right.DataType()) {
		return false
	}
	switch l := left.(type) {
	case *InputRefExpr:
		return l.Index == right.(*InputRefExpr).Index

	case *ConstExpr:
		r := right.(*ConstExpr)
		if (l.Value == nil) != (r.Value == nil) {
			return false
		}
		if !l.Value.ResolvedType().Identical(r.Value.ResolvedType()) {
			return false
		}
		cmp, err := l.Value.Compare(r.Value)
		return err == nil && cmp == 0

	case *AggregateExpr:
		r := right.(*AggregateExpr)
		if l.Kind != r.Kind || l.Distinct != r.Distinct {
			return false
		}
	}
	if left.ChildCount() != right.ChildCount() {
		return false
	}
	for i, n := 0, left.ChildCount(); i < n; i++ {
		if !Equal(left.Child(i), right.Child(i)) {
			return false
		}
	}
	return true
}

// EqualList returns true if the two lists hold structurally identical
// expressions.
func EqualList(left, right []Expr) bool {
	if len(left) != len(right) {
		return false
	}
	for i := range left {
		if !Equal(left[i], right[i]) {
			return false
		}
	}
	return true
}
