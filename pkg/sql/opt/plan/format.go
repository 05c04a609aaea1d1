// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package plan

import (
	"strconv"
	"strings"

	"github.com/planopt/planopt/pkg/sql/opt/scalar"
	"github.com/planopt/planopt/pkg/sql/types"
)

// Format returns a textual representation of a plan tree. Every node is
// printed on its own line, followed by its children indented by two spaces:
//
//	filter (@1 > 3)
//	  scan t cols=(pk, v)
//
// Scalar expressions are printed with scalar.Format and reference the output
// of the node's children.
func Format(e RelExpr) string {
	var buf strings.Builder
	formatRel(&buf, e, 0)
	return buf.String()
}

func formatRel(buf *strings.Builder, e RelExpr, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
	buf.WriteString(e.Op().String())
	formatPrivate(buf, e)
	buf.WriteByte('\n')
	for i, n := 0, e.ChildCount(); i < n; i++ {
		formatRel(buf, e.Child(i), depth+1)
	}
}

func formatPrivate(buf *strings.Builder, e RelExpr) {
	switch t := e.(type) {
	case *ScanExpr:
		buf.WriteByte(' ')
		buf.WriteString(t.TableName)
		buf.WriteString(" cols=(")
		for i := range t.Cols {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(t.Cols[i].Name)
		}
		buf.WriteByte(')')
		if t.WithRowHandler {
			buf.WriteString(" row-handler")
		}
		if t.IsSorted {
			buf.WriteString(" sorted")
		}
		if t.Filter != nil {
			buf.WriteString(" filter=")
			buf.WriteString(t.Filter.String())
		}
		if t.Lower != nil {
			buf.WriteString(" lower=")
			buf.WriteString(t.Lower.String())
		}
		if t.Upper != nil {
			buf.WriteString(" upper=")
			buf.WriteString(t.Upper.String())
		}

	case *FilterExpr:
		buf.WriteByte(' ')
		buf.WriteString(t.Predicate.String())

	case *ProjectExpr:
		if len(t.Projections) > 0 {
			buf.WriteByte(' ')
			buf.WriteString(scalar.FormatList(t.Projections))
		}

	case *AggregateExpr:
		buf.WriteString(" aggs=(")
		for i, a := range t.Aggregates {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(a.String())
		}
		buf.WriteString(") keys=(")
		buf.WriteString(scalar.FormatList(t.GroupBy))
		buf.WriteByte(')')

	case *JoinExpr:
		buf.WriteString(" type=")
		buf.WriteString(t.JoinType.String())
		if t.On != nil {
			buf.WriteString(" on=")
			buf.WriteString(t.On.String())
		}

	case *LimitExpr:
		formatLimit(buf, t.Offset, t.Limit)

	case *SortExpr:
		buf.WriteByte(' ')
		formatOrdering(buf, t.Ordering)

	case *TopNExpr:
		formatLimit(buf, t.Offset, t.Limit)
		buf.WriteString(" order=(")
		formatOrdering(buf, t.Ordering)
		buf.WriteByte(')')

	case *ValuesExpr:
		buf.WriteString(" types=")
		buf.WriteString(FormatTypes(t.OutputTypes()))
		buf.WriteString(" rows=[")
		for i, row := range t.Rows {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteByte('(')
			buf.WriteString(scalar.FormatList(row))
			buf.WriteByte(')')
		}
		buf.WriteByte(']')

	case *InsertExpr:
		buf.WriteByte(' ')
		buf.WriteString(t.TableName)
		buf.WriteString(" cols=(")
		for i := range t.Cols {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(t.Cols[i].Name)
		}
		buf.WriteByte(')')

	case *DeleteExpr:
		buf.WriteByte(' ')
		buf.WriteString(t.TableName)
	}
}

func formatLimit(buf *strings.Builder, offset, limit uint64) {
	buf.WriteString(" offset=")
	buf.WriteString(uintString(offset))
	buf.WriteString(" limit=")
	buf.WriteString(uintString(limit))
}

func formatOrdering(buf *strings.Builder, ordering []OrderBy) {
	for i, o := range ordering {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(o.String())
	}
}

// FormatTypes formats an output schema as a parenthesized list of type
// names, e.g. (int, string).
func FormatTypes(typs []*types.T) string {
	var buf strings.Builder
	buf.WriteByte('(')
	for i, t := range typs {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(t.String())
	}
	buf.WriteByte(')')
	return buf.String()
}

func uintString(v uint64) string {
	return strconv.FormatUint(v, 10)
}
