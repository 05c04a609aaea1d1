// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package execbuilder

import (
	"context"
	"testing"

	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/cat"
	"github.com/planopt/planopt/pkg/sql/opt/plan"
	"github.com/planopt/planopt/pkg/sql/types"
	"github.com/stretchr/testify/require"
)

func newScan(name string) plan.RelExpr {
	return plan.NewScan(plan.ScanPrivate{
		Table:     1,
		TableName: name,
		Cols:      []cat.Column{{ID: 1, Name: "pk", Type: types.Int, PrimaryKey: true}},
	})
}

// TestBuildDeepPhysicalChain converts a long chain of physical nodes above a
// single logical leaf. Only the leaf is converted, and physical subtrees that
// do not change are reused.
func TestBuildDeepPhysicalChain(t *testing.T) {
	const depth = 10000

	physicalSide := plan.ToPhysical(newScan("b"))
	var e plan.RelExpr = plan.NewJoin(physicalSide, newScan("a"), plan.CrossJoin, nil)
	e = plan.ToPhysical(e)
	for i := 0; i < depth; i++ {
		e = plan.ToPhysical(plan.NewLimit(e, 0, uint64(i+1)))
	}

	b := New(context.Background(), e)
	res, err := b.Build()
	require.NoError(t, err)
	require.True(t, plan.IsPhysical(res))
	require.Equal(t, 1, b.built)

	for i := 0; i < depth; i++ {
		require.Equal(t, opt.PhysicalLimitOp, res.Op())
		res = res.Child(0)
	}
	require.Equal(t, opt.PhysicalJoinOp, res.Op())
	require.Same(t, physicalSide, res.Child(0))
	require.Equal(t, opt.PhysicalScanOp, res.Child(1).Op())
}

func TestBuildAllPhysicalConvertsNothing(t *testing.T) {
	var e plan.RelExpr = plan.ToPhysical(newScan("a"))
	for i := 0; i < 100; i++ {
		e = plan.ToPhysical(plan.NewLimit(e, 0, 1))
	}
	b := New(context.Background(), e)
	res, err := b.Build()
	require.NoError(t, err)
	require.Same(t, e, res)
	require.Equal(t, 0, b.built)
}
