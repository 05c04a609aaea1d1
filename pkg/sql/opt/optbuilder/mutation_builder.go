// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package optbuilder

import (
	"github.com/planopt/planopt/pkg/sql/opt/plan"
	"gopkg.in/yaml.v3"
)

// buildInsert builds an insert of the rows of the input into the target
// columns of a table. The output types of the input must match the types of
// the target columns.
func (b *Builder) buildInsert(n *yaml.Node) plan.RelExpr {
	fields := mappingFields(n, "table", "id", "columns", "input")
	table := b.buildTablePrivate(n, fields)
	cols := b.buildColumns(n, fields)
	input := b.buildRel(requiredField(n, fields, "input"))

	typs := input.OutputTypes()
	if len(typs) != len(cols) {
		panic(invalidf(n, "insert into %s has %d target columns but the input has %d columns",
			table.TableName, len(cols), len(typs)))
	}
	for i := range cols {
		if !typs[i].Equivalent(cols[i].Type) {
			panic(invalidf(n, "value of type %s cannot be inserted into column %s of type %s",
				typs[i], cols[i].Name, cols[i].Type))
		}
	}
	return plan.NewInsert(input, table, cols)
}

// buildDelete builds a delete of the rows produced by the input, which is
// typically a scan with a row handler.
func (b *Builder) buildDelete(n *yaml.Node) plan.RelExpr {
	fields := mappingFields(n, "table", "id", "input")
	table := b.buildTablePrivate(n, fields)
	input := b.buildRel(requiredField(n, fields, "input"))
	if len(input.OutputTypes()) == 0 {
		panic(invalidf(n, "delete from %s requires input columns", table.TableName))
	}
	return plan.NewDelete(input, table)
}

func (b *Builder) buildTablePrivate(n *yaml.Node, fields map[string]*yaml.Node) plan.TablePrivate {
	name := requiredString(n, fields, "table")
	return plan.TablePrivate{Table: b.tableID(fields, name), TableName: name}
}
