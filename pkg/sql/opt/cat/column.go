// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package cat contains the resolved catalog values that plans refer to. The
// catalog itself lives outside the optimizer; by the time a plan reaches the
// optimizer every table and column has been resolved to the values below.
package cat

import (
	"fmt"

	"github.com/planopt/planopt/pkg/sql/types"
)

// TableID uniquely identifies a table in the catalog.
type TableID uint32

// ColumnID uniquely identifies a column within its table.
type ColumnID uint32

// Column is the descriptor of a table column.
type Column struct {
	ID         ColumnID
	Name       string
	Type       *types.T
	Nullable   bool
	PrimaryKey bool
}

func (c *Column) String() string {
	if c.PrimaryKey {
		return fmt.Sprintf("%s:%s pk", c.Name, c.Type)
	}
	return fmt.Sprintf("%s:%s", c.Name, c.Type)
}

// RowHandlerType is the type of the hidden row handler column that a scan
// can append to its output so that later operators (e.g. Delete) can address
// the scanned rows.
var RowHandlerType = types.Int

// RowHandlerName is the name the row handler column is formatted with.
const RowHandlerName = "_row_id"
