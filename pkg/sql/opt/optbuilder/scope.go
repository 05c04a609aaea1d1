// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package optbuilder

import (
	"github.com/planopt/planopt/pkg/sql/opt/scalar"
	"github.com/planopt/planopt/pkg/sql/types"
	"gopkg.in/yaml.v3"
)

// scope holds the columns that the scalar expressions of an operator can
// reference: the output columns of its input, in order. The zero scope has
// no columns and is used for the rows of a values operator.
type scope struct {
	cols []*types.T
}

func makeScope(cols []*types.T) scope {
	return scope{cols: cols}
}

// resolve returns the reference to the column at the given 1-based ordinal,
// typed from the input.
func (s scope) resolve(n *yaml.Node, ordinal int) *scalar.InputRefExpr {
	if ordinal < 1 || ordinal > len(s.cols) {
		if len(s.cols) == 0 {
			panic(invalidf(n, "column reference @%d without input columns", ordinal))
		}
		panic(invalidf(n, "column reference @%d out of range [1, %d]", ordinal, len(s.cols)))
	}
	return scalar.NewInputRef(ordinal-1, s.cols[ordinal-1])
}
