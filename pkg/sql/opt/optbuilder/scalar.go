// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package optbuilder

import (
	"strconv"
	"strings"

	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/scalar"
	"github.com/planopt/planopt/pkg/sql/sem/tree"
	"github.com/planopt/planopt/pkg/sql/types"
	"gopkg.in/yaml.v3"
)

// operatorsByName maps the names of the scalar operators that can be written
// in a plan description to the operators.
var operatorsByName = func() map[string]opt.Operator {
	m := make(map[string]opt.Operator)
	for op := opt.UnknownOp + 1; op < opt.NumOperators; op++ {
		if opt.IsBinaryOp(op) || opt.IsUnaryOp(op) {
			m[op.String()] = op
		}
	}
	return m
}()

// buildScalar builds a scalar expression. Its forms are:
//
//	"@N"                    reference to the N-th input column
//	3, 2.5, true, null      constants of type int, float, bool and unknown
//	text                    string constant; a string starting with "@" is
//	                        written {string: "@text"}
//	{col: N}                reference to the N-th input column
//	{int: 3}, {float: 2.5}, {decimal: "1.25"}, {string: "@x"}, {bool: true}
//	                        constants of the given type
//	{null: int}             NULL of the given type
//	{gt: [e1, e2]}          binary operator; "and" and "or" take any number
//	                        of operands of at least two
//	{not: e}                unary operator
func (b *Builder) buildScalar(n *yaml.Node, s scope) scalar.Expr {
	switch n.Kind {
	case yaml.ScalarNode:
		return b.buildScalarLiteral(n, s)
	case yaml.MappingNode:
		key, body := singleKey(n, "scalar expression")
		if op, ok := operatorsByName[key]; ok {
			return b.buildOperator(n, op, body, s)
		}
		return b.buildTypedLiteral(n, key, body, s)
	}
	panic(invalidf(n, "invalid scalar expression"))
}

// buildPredicate builds a scalar expression that must be boolean.
func (b *Builder) buildPredicate(n *yaml.Node, s scope) scalar.Expr {
	e := b.buildScalar(n, s)
	if !e.DataType().Equivalent(types.Bool) {
		panic(invalidf(n, "predicate %s is of type %s, not bool", e, e.DataType()))
	}
	return e
}

func (b *Builder) buildScalarList(n *yaml.Node, s scope) []scalar.Expr {
	if n == nil {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		panic(invalidf(n, "expected a list of expressions"))
	}
	list := make([]scalar.Expr, len(n.Content))
	for i, c := range n.Content {
		list[i] = b.buildScalar(c, s)
	}
	return list
}

func (b *Builder) buildScalarLiteral(n *yaml.Node, s scope) scalar.Expr {
	switch n.Tag {
	case "!!null":
		return scalar.NewConst(tree.DNull)
	case "!!bool":
		var v bool
		if err := n.Decode(&v); err != nil {
			panic(wrapInvalid(n, err))
		}
		return scalar.NewConst(tree.MakeDBool(v))
	case "!!int":
		return scalar.NewConst(parseInt(n, n.Value))
	case "!!float":
		return scalar.NewConst(parseFloat(n, n.Value))
	}
	if strings.HasPrefix(n.Value, "@") {
		ordinal, err := strconv.Atoi(n.Value[1:])
		if err != nil {
			panic(invalidf(n, "invalid column reference %q", n.Value))
		}
		return s.resolve(n, ordinal)
	}
	return scalar.NewConst(tree.NewDString(n.Value))
}

func (b *Builder) buildTypedLiteral(n *yaml.Node, key string, body *yaml.Node, s scope) scalar.Expr {
	value := func() string { return scalarValue(body, key) }
	switch key {
	case "col":
		ordinal, err := strconv.Atoi(value())
		if err != nil {
			panic(invalidf(body, "invalid column ordinal %q", body.Value))
		}
		return s.resolve(body, ordinal)
	case "int":
		return scalar.NewConst(parseInt(body, value()))
	case "float":
		return scalar.NewConst(parseFloat(body, value()))
	case "decimal":
		d, err := tree.ParseDDecimal(value())
		if err != nil {
			panic(wrapInvalid(body, err))
		}
		return scalar.NewConst(d)
	case "string":
		return scalar.NewConst(tree.NewDString(value()))
	case "bool":
		v, err := strconv.ParseBool(value())
		if err != nil {
			panic(wrapInvalid(body, err))
		}
		return scalar.NewConst(tree.MakeDBool(v))
	case "null":
		return scalar.NewTypedConst(tree.DNull, buildType(body))
	}
	panic(invalidf(n, "unknown scalar operator %q", key))
}

func (b *Builder) buildOperator(n *yaml.Node, op opt.Operator, body *yaml.Node, s scope) scalar.Expr {
	if opt.IsUnaryOp(op) {
		input := body
		if body.Kind == yaml.SequenceNode {
			if len(body.Content) != 1 {
				panic(invalidf(body, "%s takes one operand", op))
			}
			input = body.Content[0]
		}
		e, err := scalar.NewUnary(op, b.buildScalar(input, s))
		if err != nil {
			panic(wrapInvalid(n, err))
		}
		return e
	}

	operands := b.buildScalarList(body, s)
	variadic := op == opt.AndOp || op == opt.OrOp
	if len(operands) < 2 || (!variadic && len(operands) != 2) {
		panic(invalidf(body, "%s takes two operands, got %d", op, len(operands)))
	}
	res := operands[0]
	for _, right := range operands[1:] {
		e, err := scalar.NewBinary(op, res, right)
		if err != nil {
			panic(wrapInvalid(n, err))
		}
		res = e
	}
	return res
}

func parseInt(n *yaml.Node, s string) tree.Datum {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		panic(wrapInvalid(n, err))
	}
	return tree.NewDInt(tree.DInt(v))
}

func parseFloat(n *yaml.Node, s string) tree.Datum {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		panic(wrapInvalid(n, err))
	}
	return tree.NewDFloat(tree.DFloat(v))
}
