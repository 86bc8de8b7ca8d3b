// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import "github.com/gazed/animgraph/clip"

// Node is the shared lifecycle/update contract every pose node
// implements. Nodes are flyweighted into a single arena and reference
// each other only by index (spec.md §9's replacement for the source's
// pointer graph) — a Node implementation itself holds child *indices*,
// resolved back to Node values by the owning GraphInstance.
type Node interface {
	Initialize(ctx *GraphContext, initialTime float64)
	Shutdown(ctx *GraphContext)
	Update(ctx *GraphContext, dt float64, syncRange *clip.SyncTrackTimeRange) PoseNodeResult
	DeactivateBranch(ctx *GraphContext)
	IsInitialized() bool
	Duration() float64
	SyncTrack() *clip.SyncTrack
}

// BaseNode carries the lifecycle bookkeeping every Node embeds:
// initialization state, the update generation it was last touched in,
// and its own arena index, so its Update method can stamp
// ctx.CurrentNodeIndex before registering tasks or events of its own
// (spec.md §3 "Lifecycle").
type BaseNode struct {
	isInitialized bool
	lastUpdateID  uint64
	duration      float64
	sync          *clip.SyncTrack
	selfIndex     int
}

// IsInitialized reports whether Initialize has run since the last Shutdown.
func (b *BaseNode) IsInitialized() bool { return b.isInitialized }

// Duration returns the node's most recently computed duration in seconds.
func (b *BaseNode) Duration() float64 { return b.duration }

// SyncTrack returns the node's current sync track, or nil if it doesn't
// participate in synchronization.
func (b *BaseNode) SyncTrack() *clip.SyncTrack { return b.sync }

// MarkActive records that this node was touched during updateID.
func (b *BaseNode) MarkActive(updateID uint64) { b.lastUpdateID = updateID }

// SelfIndex returns this node's index in the owning Arena.
func (b *BaseNode) SelfIndex() int { return b.selfIndex }

// SetSelfIndex records this node's arena index; called once by Arena.Add.
func (b *BaseNode) SetSelfIndex(idx int) { b.selfIndex = idx }

// WasActive reports whether MarkActive(updateID) was called this tick.
func (b *BaseNode) WasActive(updateID uint64) bool { return b.lastUpdateID == updateID }

// Arena is the node array a compiled graph resolves into: a flat,
// index-addressed store with no node holding a pointer to another
// (spec.md §3 "Node identities", §9).
type Arena struct {
	nodes []Node
}

// NewArena creates an empty arena.
func NewArena() *Arena { return &Arena{} }

// selfIndexer is implemented by BaseNode; every Node embeds one.
type selfIndexer interface {
	SetSelfIndex(idx int)
}

// Add appends node, stamps its BaseNode with the assigned index, and
// returns that index.
func (a *Arena) Add(n Node) int {
	idx := len(a.nodes)
	a.nodes = append(a.nodes, n)
	if si, ok := n.(selfIndexer); ok {
		si.SetSelfIndex(idx)
	}
	return idx
}

// Get returns the node at idx.
func (a *Arena) Get(idx int) Node { return a.nodes[idx] }

// Len returns the number of nodes in the arena.
func (a *Arena) Len() int { return len(a.nodes) }
