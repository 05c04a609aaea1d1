// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package execbuilder

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
	"github.com/planopt/planopt/pkg/sql/opt"
	"github.com/planopt/planopt/pkg/sql/opt/plan"
)

// buildRelational converts the subtree bottom-up: the children of a node are
// converted before the node itself.
func (b *Builder) buildRelational(e plan.RelExpr) plan.RelExpr {
	switch e.Op() {
	case opt.ScanOp, opt.ValuesOp:
		return b.buildLeaf(e)

	case opt.FilterOp, opt.ProjectOp, opt.AggregateOp, opt.LimitOp, opt.SortOp,
		opt.TopNOp, opt.InsertOp, opt.DeleteOp:
		return b.buildUnary(e)

	case opt.JoinOp:
		return b.buildJoin(e)
	}

	if e.Op().IsPhysical() {
		// A physical node over logical children.
		return b.buildChildren(e)
	}
	panic(errors.AssertionFailedf("unsupported relational op %s", redact.Safe(e.Op())))
}

func (b *Builder) buildLeaf(e plan.RelExpr) plan.RelExpr {
	b.built++
	return plan.ToPhysical(e)
}

func (b *Builder) buildUnary(e plan.RelExpr) plan.RelExpr {
	input := b.buildRelational(e.Child(0))
	b.built++
	return plan.ToPhysical(plan.WithChildren(e, input))
}

func (b *Builder) buildJoin(e plan.RelExpr) plan.RelExpr {
	left := b.buildRelational(e.Child(0))
	right := b.buildRelational(e.Child(1))
	b.built++
	return plan.ToPhysical(plan.WithChildren(e, left, right))
}

func (b *Builder) buildChildren(e plan.RelExpr) plan.RelExpr {
	children := plan.Children(e)
	for i := range children {
		children[i] = b.buildRelational(children[i])
	}
	return plan.WithChildren(e, children...)
}
