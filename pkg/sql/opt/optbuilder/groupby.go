// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package optbuilder

import (
	"github.com/planopt/planopt/pkg/sql/opt/plan"
	"github.com/planopt/planopt/pkg/sql/opt/scalar"
	"gopkg.in/yaml.v3"
)

type aggregateDef struct {
	Func     string    `yaml:"func"`
	Arg      yaml.Node `yaml:"arg"`
	Distinct bool      `yaml:"distinct"`
}

// buildAggregate builds an aggregation. The aggregates are listed as
//
//	aggs: [{func: sum, arg: "@2"}, {func: count-star}]
//	keys: ["@1"]
//
// and the output holds the aggregates followed by the grouping keys.
func (b *Builder) buildAggregate(n *yaml.Node) plan.RelExpr {
	fields := mappingFields(n, "aggs", "keys", "input")
	input := b.buildRel(requiredField(n, fields, "input"))
	s := makeScope(input.OutputTypes())

	var aggs []*scalar.AggregateExpr
	if aggsNode, ok := fields["aggs"]; ok {
		if aggsNode.Kind != yaml.SequenceNode {
			panic(invalidf(aggsNode, "aggs must be a list"))
		}
		aggs = make([]*scalar.AggregateExpr, len(aggsNode.Content))
		for i, aggNode := range aggsNode.Content {
			aggs[i] = b.buildAggregateFunc(aggNode, s)
		}
	}
	keys := b.buildScalarList(fields["keys"], s)
	if len(aggs) == 0 && len(keys) == 0 {
		panic(invalidf(n, "aggregate requires aggregates or keys"))
	}
	return plan.NewAggregate(input, aggs, keys)
}

func (b *Builder) buildAggregateFunc(n *yaml.Node, s scope) *scalar.AggregateExpr {
	mappingFields(n, "func", "arg", "distinct")
	var def aggregateDef
	if err := n.Decode(&def); err != nil {
		panic(wrapInvalid(n, err))
	}
	kind, err := scalar.ParseAggregateKind(def.Func)
	if err != nil {
		panic(wrapInvalid(n, err))
	}
	if (kind == scalar.CountStar) != def.Arg.IsZero() {
		if kind == scalar.CountStar {
			panic(invalidf(n, "count-star takes no argument"))
		}
		panic(invalidf(n, "%s requires an argument", kind))
	}
	var arg scalar.Expr
	if !def.Arg.IsZero() {
		arg = b.buildScalar(&def.Arg, s)
	}
	agg, err := scalar.NewAggregate(kind, arg, def.Distinct)
	if err != nil {
		panic(wrapInvalid(n, err))
	}
	return agg
}
