// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package optbuilder

import (
	"github.com/planopt/planopt/pkg/sql/opt/plan"
	"gopkg.in/yaml.v3"
)

// buildLimit builds a limit. A missing offset is zero; the limit is
// required.
func (b *Builder) buildLimit(n *yaml.Node) plan.RelExpr {
	fields := mappingFields(n, "offset", "limit", "input")
	requiredField(n, fields, "limit")
	input := b.buildRel(requiredField(n, fields, "input"))
	return plan.NewLimit(input, optionalUint(fields, "offset"), optionalUint(fields, "limit"))
}

func (b *Builder) buildSort(n *yaml.Node) plan.RelExpr {
	fields := mappingFields(n, "order", "input")
	input := b.buildRel(requiredField(n, fields, "input"))
	ordering := b.buildOrdering(requiredField(n, fields, "order"), makeScope(input.OutputTypes()))
	return plan.NewSort(input, ordering)
}

func (b *Builder) buildTopN(n *yaml.Node) plan.RelExpr {
	fields := mappingFields(n, "offset", "limit", "order", "input")
	requiredField(n, fields, "limit")
	input := b.buildRel(requiredField(n, fields, "input"))
	ordering := b.buildOrdering(requiredField(n, fields, "order"), makeScope(input.OutputTypes()))
	return plan.NewTopN(input, optionalUint(fields, "offset"), optionalUint(fields, "limit"), ordering)
}

// buildOrdering builds the list of ordering columns. Each item is either an
// expression, for ascending order, or a mapping {asc: e} or {desc: e}.
func (b *Builder) buildOrdering(n *yaml.Node, s scope) []plan.OrderBy {
	if n.Kind != yaml.SequenceNode || len(n.Content) == 0 {
		panic(invalidf(n, "order must be a non-empty list"))
	}
	ordering := make([]plan.OrderBy, len(n.Content))
	for i, item := range n.Content {
		if item.Kind == yaml.MappingNode && len(item.Content) == 2 {
			switch item.Content[0].Value {
			case "asc":
				ordering[i] = plan.OrderBy{Expr: b.buildScalar(item.Content[1], s)}
				continue
			case "desc":
				ordering[i] = plan.OrderBy{Expr: b.buildScalar(item.Content[1], s), Descending: true}
				continue
			}
		}
		ordering[i] = plan.OrderBy{Expr: b.buildScalar(item, s)}
	}
	return ordering
}
