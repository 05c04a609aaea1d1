// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package execbuilder converts optimized logical plans into physical plans
// that the execution engine dispatches on.
package execbuilder

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/plan"
	"github.com/planopt/planopt/pkg/util/log"
)

// Builder constructs a physical plan from an optimized logical plan. The
// conversion maps every logical node to its physical counterpart one to one:
// the shape of the tree and the data of every node are unchanged, and no
// algorithm is chosen.
type Builder struct {
	ctx context.Context
	e   plan.RelExpr

	// built counts the nodes converted so far.
	built int
}

// New constructs an instance of the execution node builder for the given
// plan.
func New(ctx context.Context, e plan.RelExpr) *Builder {
	return &Builder{ctx: ctx, e: e}
}

// Build constructs the physical plan. A plan that is already physical is
// returned as is.
func (b *Builder) Build() (_ plan.RelExpr, err error) {
	defer func() {
		if r := recover(); r != nil {
			// This code allows us to propagate errors without adding lots of checks
			// for `if err != nil` throughout the construction code. This is only
			// possible because the code does not update shared state and does not
			// manipulate locks.
			err = opt.CatchOptimizerError(r)
		}
	}()

	if b.e == nil {
		return nil, errors.AssertionFailedf("building execution for nil plan")
	}
	if plan.IsPhysical(b.e) {
		return b.e, nil
	}
	res := b.buildRelational(b.e)
	if log.V(2) {
		log.Infof(b.ctx, "converted %d nodes", b.built)
	}
	return res, nil
}

// Build converts the plan into a physical plan. See Builder.
func Build(ctx context.Context, e plan.RelExpr) (plan.RelExpr, error) {
	return New(ctx, e).Build()
}
