// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package optbuilder builds bound logical plans from their YAML description.
//
// A plan is a tree of single-key mappings, where the key names the operator
// and the value holds its fields:
//
//	limit:
//	  limit: 10
//	  input:
//	    filter:
//	      predicate: {gt: ["@1", 3]}
//	      input:
//	        scan:
//	          table: t
//	          columns:
//	            - {name: pk, type: int, primary: true}
//	            - {name: v, type: string, nullable: true}
//
// Input references are written "@N", where N is the 1-based position of the
// column in the input of the operator. The types of input references are
// resolved from the input and every operator is type checked.
package optbuilder

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/cat"
	"github.com/planopt/planopt/pkg/sql/opt/plan"
	"github.com/planopt/planopt/pkg/sql/opt/scalar"
	"github.com/planopt/planopt/pkg/sql/types"
	"github.com/planopt/planopt/pkg/util/log"
	"gopkg.in/yaml.v3"
)

// ErrInvalidPlan marks the errors returned for plan descriptions that cannot
// be built.
var ErrInvalidPlan = errors.New("invalid plan")

// Builder holds the context needed for building a plan from its YAML
// description. A Builder can build any number of plans; tables without an
// explicit id are assigned the same id in all of them.
type Builder struct {
	ctx context.Context

	// tableIDs maps table names to the ids they were assigned.
	tableIDs map[string]cat.TableID
	lastID   cat.TableID
}

// New creates a new Builder.
func New(ctx context.Context) *Builder {
	return &Builder{ctx: ctx, tableIDs: make(map[string]cat.TableID)}
}

// Build decodes the YAML plan description and builds the bound logical plan.
// The errors caused by the description are marked with ErrInvalidPlan.
func (b *Builder) Build(data []byte) (_ plan.RelExpr, err error) {
	// We use panics in the builder code for error propagation. This allows us
	// to keep the code much cleaner, since we do not have to check for errors
	// after decoding each node.
	defer func() {
		if r := recover(); r != nil {
			err = opt.CatchOptimizerError(r)
		}
	}()

	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.Mark(errors.New("empty plan"), ErrInvalidPlan)
		}
		return nil, errors.Mark(errors.Wrap(err, "decoding plan"), ErrInvalidPlan)
	}
	root := b.buildRel(doc.Content[0])
	log.VEventf(b.ctx, 2, "built plan with %d output columns", len(root.OutputTypes()))
	return root, nil
}

// Build builds a plan with a new Builder. See Builder.Build.
func Build(ctx context.Context, data []byte) (plan.RelExpr, error) {
	return New(ctx).Build(data)
}

// buildRel builds the plan node described by a single-key mapping.
func (b *Builder) buildRel(n *yaml.Node) plan.RelExpr {
	op, body := singleKey(n, "plan node")
	switch op {
	case "scan":
		return b.buildScan(body)
	case "filter":
		return b.buildFilter(body)
	case "project":
		return b.buildProject(body)
	case "aggregate", "group-by":
		return b.buildAggregate(body)
	case "join":
		return b.buildJoin(body)
	case "limit":
		return b.buildLimit(body)
	case "sort":
		return b.buildSort(body)
	case "top-n":
		return b.buildTopN(body)
	case "values":
		return b.buildValues(body)
	case "insert":
		return b.buildInsert(body)
	case "delete":
		return b.buildDelete(body)
	}
	panic(invalidf(n, "unknown plan node %q", op))
}

type columnDef struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Primary  bool   `yaml:"primary"`
	Nullable bool   `yaml:"nullable"`
}

func (b *Builder) buildScan(n *yaml.Node) plan.RelExpr {
	fields := mappingFields(n, "table", "id", "columns", "row_handler", "sorted", "filter")
	private := plan.ScanPrivate{
		TableName:      requiredString(n, fields, "table"),
		WithRowHandler: optionalBool(fields, "row_handler"),
		IsSorted:       optionalBool(fields, "sorted"),
	}
	private.Table = b.tableID(fields, private.TableName)
	private.Cols = b.buildColumns(n, fields)

	if filter, ok := fields["filter"]; ok {
		s := makeScope(plan.NewScan(private).OutputTypes())
		private.Filter = b.buildPredicate(filter, s)
	}
	return plan.NewScan(private)
}

func (b *Builder) buildFilter(n *yaml.Node) plan.RelExpr {
	fields := mappingFields(n, "predicate", "input")
	input := b.buildRel(requiredField(n, fields, "input"))
	pred := b.buildPredicate(requiredField(n, fields, "predicate"), makeScope(input.OutputTypes()))
	return plan.NewFilter(input, pred)
}

func (b *Builder) buildProject(n *yaml.Node) plan.RelExpr {
	fields := mappingFields(n, "exprs", "input")
	input := b.buildRel(requiredField(n, fields, "input"))
	s := makeScope(input.OutputTypes())
	return plan.NewProject(input, b.buildScalarList(fields["exprs"], s))
}

func (b *Builder) buildJoin(n *yaml.Node) plan.RelExpr {
	fields := mappingFields(n, "type", "on", "left", "right")
	joinType := plan.InnerJoin
	if t, ok := fields["type"]; ok {
		var err error
		if joinType, err = plan.ParseJoinType(scalarValue(t, "join type")); err != nil {
			panic(wrapInvalid(t, err))
		}
	}
	left := b.buildRel(requiredField(n, fields, "left"))
	right := b.buildRel(requiredField(n, fields, "right"))

	on, hasOn := fields["on"]
	switch {
	case joinType == plan.CrossJoin && hasOn:
		panic(invalidf(on, "cross join cannot have a condition"))
	case joinType != plan.CrossJoin && !hasOn:
		panic(invalidf(n, "%s join requires a condition", joinType))
	}
	if !hasOn {
		return plan.NewJoin(left, right, joinType, nil)
	}
	s := makeScope(append(append([]*types.T(nil), left.OutputTypes()...), right.OutputTypes()...))
	return plan.NewJoin(left, right, joinType, b.buildPredicate(on, s))
}

func (b *Builder) buildValues(n *yaml.Node) plan.RelExpr {
	fields := mappingFields(n, "types", "rows")
	var typs []*types.T
	if t, ok := fields["types"]; ok {
		typs = buildTypes(t)
	}
	var s scope
	rowsNode, hasRows := fields["rows"]
	if !hasRows || len(rowsNode.Content) == 0 {
		if typs == nil {
			panic(invalidf(n, "values without rows require types"))
		}
		return plan.NewValues(typs, nil)
	}
	if rowsNode.Kind != yaml.SequenceNode {
		panic(invalidf(rowsNode, "rows must be a list"))
	}
	rows := make([][]scalar.Expr, len(rowsNode.Content))
	for i, rowNode := range rowsNode.Content {
		rows[i] = b.buildScalarList(rowNode, s)
		if typs == nil {
			typs = make([]*types.T, len(rows[i]))
			for j := range rows[i] {
				typs[j] = rows[i][j].DataType()
			}
		}
		if len(rows[i]) != len(typs) {
			panic(invalidf(rowNode, "row has %d values, expected %d", len(rows[i]), len(typs)))
		}
		for j, e := range rows[i] {
			if !e.DataType().Equivalent(typs[j]) {
				panic(invalidf(rowNode, "value %s of row %d is not of type %s", e, i+1, typs[j]))
			}
		}
	}
	return plan.NewValues(typs, rows)
}

func buildTypes(n *yaml.Node) []*types.T {
	if n.Kind != yaml.SequenceNode {
		panic(invalidf(n, "types must be a list"))
	}
	typs := make([]*types.T, len(n.Content))
	for i, t := range n.Content {
		typs[i] = buildType(t)
	}
	return typs
}

func buildType(n *yaml.Node) *types.T {
	typ, err := types.FromName(scalarValue(n, "type"))
	if err != nil {
		panic(wrapInvalid(n, err))
	}
	return typ
}

func (b *Builder) buildColumns(n *yaml.Node, fields map[string]*yaml.Node) []cat.Column {
	colsNode := requiredField(n, fields, "columns")
	var defs []columnDef
	if err := colsNode.Decode(&defs); err != nil {
		panic(wrapInvalid(colsNode, err))
	}
	cols := make([]cat.Column, len(defs))
	for i, def := range defs {
		if def.Name == "" {
			panic(invalidf(colsNode.Content[i], "column %d has no name", i+1))
		}
		typ, err := types.FromName(def.Type)
		if err != nil {
			panic(wrapInvalid(colsNode.Content[i], err))
		}
		cols[i] = cat.Column{
			ID:         cat.ColumnID(i + 1),
			Name:       def.Name,
			Type:       typ,
			Nullable:   def.Nullable,
			PrimaryKey: def.Primary,
		}
	}
	return cols
}

// tableID returns the explicit id of the table, or the id assigned to its
// name.
func (b *Builder) tableID(fields map[string]*yaml.Node, name string) cat.TableID {
	if n, ok := fields["id"]; ok {
		var id uint32
		if err := n.Decode(&id); err != nil || id == 0 {
			panic(invalidf(n, "table id must be a positive integer"))
		}
		return cat.TableID(id)
	}
	if id, ok := b.tableIDs[name]; ok {
		return id
	}
	b.lastID++
	b.tableIDs[name] = b.lastID
	return b.lastID
}

// singleKey returns the key and the value of a mapping with a single key.
func singleKey(n *yaml.Node, what string) (string, *yaml.Node) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		panic(invalidf(n, "%s must be a mapping with a single key", what))
	}
	return n.Content[0].Value, n.Content[1]
}

// mappingFields returns the fields of a mapping by key. Keys that are not in
// the allowed list are rejected.
func mappingFields(n *yaml.Node, allowed ...string) map[string]*yaml.Node {
	if n.Kind != yaml.MappingNode {
		panic(invalidf(n, "expected a mapping"))
	}
	fields := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if !contains(allowed, key) {
			sorted := append([]string(nil), allowed...)
			sort.Strings(sorted)
			panic(invalidf(n.Content[i], "unknown field %q, expected one of %s",
				key, strings.Join(sorted, ", ")))
		}
		if _, ok := fields[key]; ok {
			panic(invalidf(n.Content[i], "duplicate field %q", key))
		}
		fields[key] = n.Content[i+1]
	}
	return fields
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func requiredField(n *yaml.Node, fields map[string]*yaml.Node, key string) *yaml.Node {
	f, ok := fields[key]
	if !ok {
		panic(invalidf(n, "missing field %q", key))
	}
	return f
}

func requiredString(n *yaml.Node, fields map[string]*yaml.Node, key string) string {
	return scalarValue(requiredField(n, fields, key), key)
}

func optionalBool(fields map[string]*yaml.Node, key string) bool {
	n, ok := fields[key]
	if !ok {
		return false
	}
	var v bool
	if err := n.Decode(&v); err != nil {
		panic(invalidf(n, "%s must be a boolean", key))
	}
	return v
}

func optionalUint(fields map[string]*yaml.Node, key string) uint64 {
	n, ok := fields[key]
	if !ok {
		return 0
	}
	var v uint64
	if err := n.Decode(&v); err != nil {
		panic(invalidf(n, "%s must be a non-negative integer", key))
	}
	return v
}

func scalarValue(n *yaml.Node, what string) string {
	if n.Kind != yaml.ScalarNode {
		panic(invalidf(n, "%s must be a scalar", what))
	}
	return n.Value
}

func invalidf(n *yaml.Node, format string, args ...interface{}) error {
	err := errors.NewWithDepthf(1, format, args...)
	return errors.Mark(errors.Wrapf(err, "line %d", n.Line), ErrInvalidPlan)
}

func wrapInvalid(n *yaml.Node, err error) error {
	return errors.Mark(errors.Wrapf(err, "line %d", n.Line), ErrInvalidPlan)
}
