// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package scalar

import (
	"strconv"
	"strings"

	"github.com/planopt/planopt/pkg/sql/opt"
)

// Format returns a compact textual form of the expression. Input references
// print as @N with N the 1-based ordinal, binary and unary operators are
// always parenthesized, and constants print as SQL literals:
//
//	((@1 > 3) AND (@2 = 'a'))
func Format(e Expr) string {
	var buf strings.Builder
	formatExpr(&buf, e)
	return buf.String()
}

// FormatList formats a list of expressions separated by commas.
func FormatList(list []Expr) string {
	var buf strings.Builder
	for i, e := range list {
		if i > 0 {
			buf.WriteString(", ")
		}
		formatExpr(&buf, e)
	}
	return buf.String()
}

func formatExpr(buf *strings.Builder, e Expr) {
	switch t := e.(type) {
	case nil:
		buf.WriteString("<nil>")

	case *InputRefExpr:
		buf.WriteByte('@')
		buf.WriteString(strconv.Itoa(t.Index + 1))

	case *ConstExpr:
		buf.WriteString(t.Value.String())

	case *BinaryExpr:
		buf.WriteByte('(')
		formatExpr(buf, t.Left)
		buf.WriteByte(' ')
		buf.WriteString(t.Operator.Symbol())
		buf.WriteByte(' ')
		formatExpr(buf, t.Right)
		buf.WriteByte(')')

	case *UnaryExpr:
		buf.WriteByte('(')
		switch t.Operator {
		case opt.IsNullOp, opt.IsNotNullOp:
			formatExpr(buf, t.Input)
			buf.WriteByte(' ')
			buf.WriteString(t.Operator.Symbol())
		case opt.NotOp:
			buf.WriteString("NOT ")
			formatExpr(buf, t.Input)
		default:
			buf.WriteString(t.Operator.Symbol())
			formatExpr(buf, t.Input)
		}
		buf.WriteByte(')')

	case *AggregateExpr:
		buf.WriteString(t.Kind.String())
		buf.WriteByte('(')
		if t.Distinct {
			buf.WriteString("DISTINCT ")
		}
		if t.Arg == nil {
			buf.WriteByte('*')
		} else {
			formatExpr(buf, t.Arg)
		}
		buf.WriteByte(')')
	}
}
