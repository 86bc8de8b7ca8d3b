// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import "github.com/gazed/animgraph/clip"

// PassthroughNode forwards a single child's lifecycle and result
// unchanged, recording the child's duration/sync track as its own. It's
// the base every modifier node in this package embeds (spec.md §4.5).
type PassthroughNode struct {
	BaseNode
	Child Node
}

// NewPassthroughNode wraps child.
func NewPassthroughNode(child Node) *PassthroughNode { return &PassthroughNode{Child: child} }

// Initialize cascades to the child.
func (n *PassthroughNode) Initialize(ctx *GraphContext, initialTime float64) {
	n.isInitialized = true
	n.Child.Initialize(ctx, initialTime)
	n.duration = n.Child.Duration()
	n.sync = n.Child.SyncTrack()
}

// Shutdown cascades to the child.
func (n *PassthroughNode) Shutdown(ctx *GraphContext) {
	n.Child.Shutdown(ctx)
	n.isInitialized = false
}

// DeactivateBranch cascades to the child.
func (n *PassthroughNode) DeactivateBranch(ctx *GraphContext) { n.Child.DeactivateBranch(ctx) }

// Update forwards dt and syncRange to the child and returns its result
// verbatim, refreshing the node's cached duration/sync track.
func (n *PassthroughNode) Update(ctx *GraphContext, dt float64, syncRange *clip.SyncTrackTimeRange) PoseNodeResult {
	n.MarkActive(ctx.UpdateID)
	ctx.CurrentNodeIndex = n.SelfIndex()
	result := n.Child.Update(ctx, dt, syncRange)
	n.duration = n.Child.Duration()
	n.sync = n.Child.SyncTrack()
	return result
}
