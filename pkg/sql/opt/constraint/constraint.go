// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package constraint derives key ranges from filter predicates.
//
// The derivation works on the leading primary key column of a scan. It
// extracts the conjuncts of the scan filter that compare that column with a
// constant, normalizes them to the form "key OP constant" and tightens them
// into a single closed interval:
//
//	@1 > 3 AND @1 < 10  =>  [/3 - /10]
//	@1 >= 5 AND @1 = 7  =>  [/7 - /7]
//	3 < @1              =>  [/3 - ]
//
// Strictness of the comparisons is not tracked: both > and >= contribute
// their constant as an inclusive bound. The derived interval is therefore a
// superset of the rows matching the predicates, and the filter it was derived
// from must be retained.
package constraint

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/scalar"
	"github.com/planopt/planopt/pkg/sql/sem/tree"
)

// KeyPredicate is a comparison of the key column with a constant, in the
// canonical form "key Op Value".
type KeyPredicate struct {
	Op    opt.Operator
	Value tree.Datum
}

func (p KeyPredicate) String() string {
	return "key " + p.Op.Symbol() + " " + p.Value.String()
}

// KeyPredicates returns the conjuncts of the filter that compare the input
// column at the key ordinal with a constant, normalized to the canonical
// form. Conjuncts that reference other columns, that are not comparisons or
// that compare with NULL are ignored. Inequalities are ignored as well, since
// they do not restrict the key to a contiguous range.
func KeyPredicates(filter scalar.Expr, key int) ([]KeyPredicate, error) {
	var res []KeyPredicate
	for _, c := range scalar.Conjuncts(filter) {
		b, ok := c.(*scalar.BinaryExpr)
		if !ok || !opt.IsComparisonOp(b.Operator) || b.Operator == opt.NeOp {
			continue
		}
		if !isKeyRef(b.Left, key) && !isKeyRef(b.Right, key) {
			continue
		}
		if !isNonNullConst(b.Left) && !isNonNullConst(b.Right) {
			continue
		}
		p, err := Normalize(b, key)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

// Normalize converts a comparison between the key column and a constant into
// the canonical form "key OP constant". If the constant is on the left, the
// operands are swapped and the operator is flipped:
//
//	Gt <-> Lt, Ge <-> Le, Eq <-> Eq
//
// An operator other than Eq, Gt, Ge, Lt and Le is reported with an error
// marked opt.ErrUnsupportedOperator. A comparison that is not between the key
// column and a constant is reported with an error marked
// opt.ErrMalformedPredicate.
func Normalize(e *scalar.BinaryExpr, key int) (KeyPredicate, error) {
	if !opt.IsRangeOp(e.Operator) {
		return KeyPredicate{}, opt.UnsupportedOperatorf(
			"unsupported operator %s in key predicate %s", e.Operator, e)
	}
	switch {
	case isKeyRef(e.Left, key) && isNonNullConst(e.Right):
		return KeyPredicate{Op: e.Operator, Value: e.Right.(*scalar.ConstExpr).Value}, nil

	case isNonNullConst(e.Left) && isKeyRef(e.Right, key):
		op, ok := opt.CommuteComparison(e.Operator)
		if !ok {
			return KeyPredicate{}, opt.UnsupportedOperatorf(
				"cannot commute operator %s in key predicate %s", e.Operator, e)
		}
		return KeyPredicate{Op: op, Value: e.Left.(*scalar.ConstExpr).Value}, nil
	}
	return KeyPredicate{}, opt.MalformedPredicatef(
		"key predicate %s does not compare column @%d with a constant", e, key+1)
}

func isKeyRef(e scalar.Expr, key int) bool {
	ref, ok := e.(*scalar.InputRefExpr)
	return ok && ref.Index == key
}

func isNonNullConst(e scalar.Expr) bool {
	c, ok := e.(*scalar.ConstExpr)
	return ok && c.Value != tree.DNull
}

// Bounds is a closed interval of key values. A nil bound leaves the interval
// unbounded on that side.
type Bounds struct {
	Lower tree.Datum
	Upper tree.Datum
}

// Unbounded returns true if neither bound is set.
func (b Bounds) Unbounded() bool {
	return b.Lower == nil && b.Upper == nil
}

// Contradiction returns true if both bounds are set and the lower bound is
// greater than the upper bound, i.e. no key lies in the interval. Bounds that
// cannot be compared are reported with an error marked
// opt.ErrMalformedPredicate.
func (b Bounds) Contradiction() (bool, error) {
	if b.Lower == nil || b.Upper == nil {
		return false, nil
	}
	cmp, err := compareBounds(b.Lower, b.Upper)
	if err != nil {
		return false, err
	}
	return cmp > 0, nil
}

func (b Bounds) String() string {
	var buf strings.Builder
	buf.WriteByte('[')
	if b.Lower != nil {
		buf.WriteByte('/')
		buf.WriteString(b.Lower.String())
	}
	buf.WriteString(" - ")
	if b.Upper != nil {
		buf.WriteByte('/')
		buf.WriteString(b.Upper.String())
	}
	buf.WriteByte(']')
	return buf.String()
}

// DeriveBounds folds normalized key predicates into the tightest interval
// they imply. Every Gt and Ge constant is a lower bound candidate, every Lt
// and Le constant is an upper bound candidate and every Eq constant is both.
// The lower bound is the greatest lower candidate and the upper bound is the
// least upper candidate; a side without candidates stays unbounded.
//
// Constants that cannot be compared with each other are reported with an
// error marked opt.ErrMalformedPredicate.
func DeriveBounds(preds []KeyPredicate) (Bounds, error) {
	var b Bounds
	for _, p := range preds {
		var err error
		switch p.Op {
		case opt.GtOp, opt.GeOp:
			b.Lower, err = tighten(b.Lower, p.Value, +1)
		case opt.LtOp, opt.LeOp:
			b.Upper, err = tighten(b.Upper, p.Value, -1)
		case opt.EqOp:
			if b.Lower, err = tighten(b.Lower, p.Value, +1); err == nil {
				b.Upper, err = tighten(b.Upper, p.Value, -1)
			}
		default:
			return Bounds{}, opt.UnsupportedOperatorf("unsupported operator %s in key predicate", p.Op)
		}
		if err != nil {
			return Bounds{}, err
		}
	}
	return b, nil
}

// tighten returns the candidate if it is further in the given direction than
// the current bound (greater for +1, less for -1), and the current bound
// otherwise.
func tighten(cur, candidate tree.Datum, dir int) (tree.Datum, error) {
	if cur == nil {
		return candidate, nil
	}
	cmp, err := compareBounds(candidate, cur)
	if err != nil {
		return nil, err
	}
	if cmp*dir > 0 {
		return candidate, nil
	}
	return cur, nil
}

func compareBounds(left, right tree.Datum) (int, error) {
	cmp, err := left.Compare(right)
	if err != nil {
		return 0, errors.Mark(
			errors.Wrapf(err, "comparing key bounds %s and %s", left, right),
			opt.ErrMalformedPredicate,
		)
	}
	return cmp, nil
}
