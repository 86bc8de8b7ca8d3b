// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import (
	"sort"

	"github.com/gazed/animgraph/clip"
	"github.com/gazed/animgraph/pose"
	"github.com/gazed/animgraph/task"
)

// BlendParameterPoint maps one source index to the parameter value it's
// authored at (spec.md §4.8).
type BlendParameterPoint struct {
	InputIdx int
	Value    float64
}

// blendParameterRange is one of the (N-1) ranges between consecutive
// parameterization points.
type blendParameterRange struct {
	idx0, idx1 int
	lo, hi     float64
}

// ParameterizedBlend1D selects and blends between two adjacent sources
// from an ordered one-dimensional parameterization (spec.md §4.8).
type ParameterizedBlend1D struct {
	BaseNode

	Sources         []Node
	Parameter       ValueNode // ValueFloat
	Parameterization []BlendParameterPoint

	ranges []blendParameterRange

	// Distinct per-source restored state (spec.md §9's redesign note:
	// the original wrote the same field for both sources — restored
	// here as two independent slots).
	activeIdx0, activeIdx1 int
	lastWeight             float64
}

// NewParameterizedBlend1D builds a blend node over sources, sorting
// parameterization by value to guarantee the non-decreasing invariant.
func NewParameterizedBlend1D(sources []Node, parameter ValueNode, points []BlendParameterPoint) *ParameterizedBlend1D {
	sorted := append([]BlendParameterPoint{}, points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Value < sorted[j].Value })
	n := &ParameterizedBlend1D{Sources: sources, Parameter: parameter, Parameterization: sorted}
	for i := 0; i+1 < len(sorted); i++ {
		n.ranges = append(n.ranges, blendParameterRange{idx0: sorted[i].InputIdx, idx1: sorted[i+1].InputIdx, lo: sorted[i].Value, hi: sorted[i+1].Value})
	}
	return n
}

// Initialize cascades to every source so each has valid internal state
// even while inactive.
func (n *ParameterizedBlend1D) Initialize(ctx *GraphContext, initialTime float64) {
	n.isInitialized = true
	for _, s := range n.Sources {
		s.Initialize(ctx, initialTime)
	}
}

// Shutdown cascades to every source.
func (n *ParameterizedBlend1D) Shutdown(ctx *GraphContext) {
	for _, s := range n.Sources {
		s.Shutdown(ctx)
	}
	n.isInitialized = false
}

// DeactivateBranch cascades to every source.
func (n *ParameterizedBlend1D) DeactivateBranch(ctx *GraphContext) {
	for _, s := range n.Sources {
		s.DeactivateBranch(ctx)
	}
}

// findRange binary-searches for the range covering value, clamping to
// the first/last range at the parameterization's extremes.
func (n *ParameterizedBlend1D) findRange(value float64) (blendParameterRange, float64) {
	if len(n.ranges) == 0 {
		return blendParameterRange{}, 0
	}
	i := sort.Search(len(n.ranges), func(i int) bool { return value <= n.ranges[i].hi })
	if i >= len(n.ranges) {
		i = len(n.ranges) - 1
	}
	r := n.ranges[i]
	span := r.hi - r.lo
	if span <= 0 {
		return r, 0
	}
	return r, clamp01((value - r.lo) / span)
}

// Update selects the bracketing source pair for the current parameter
// value, updates the engaged sources, and registers at most one Blend
// task. Non-selected sources still advance their internal time but
// their tasks/events are discarded (spec.md §4.8).
func (n *ParameterizedBlend1D) Update(ctx *GraphContext, dt float64, syncRange *clip.SyncTrackTimeRange) PoseNodeResult {
	n.MarkActive(ctx.UpdateID)
	ctx.CurrentNodeIndex = n.SelfIndex()
	if len(n.Sources) == 0 {
		idx := ctx.Tasks.RegisterDefaultPose(ctx.CurrentNodeIndex, pose.ReferencePose, task.PrePhysics)
		return PoseNodeResult{TaskIndex: idx}
	}
	value := 0.0
	if n.Parameter != nil {
		value = n.Parameter.Evaluate(ctx).Float
	}
	r, weight := n.findRange(value)
	n.activeIdx0, n.activeIdx1, n.lastWeight = r.idx0, r.idx1, weight

	var primary, secondary PoseNodeResult
	var haveSecondary bool
	for i, s := range n.Sources {
		switch {
		case i == r.idx0:
			primary = s.Update(ctx, dt, nil)
		case i == r.idx1 && weight > 0:
			secondary = s.Update(ctx, dt, nil)
			haveSecondary = true
		default:
			// Advance non-selected sources so their internal clocks
			// stay current; discard whatever they produced.
			s.Update(ctx, dt, nil)
		}
	}
	ctx.CurrentNodeIndex = n.SelfIndex()
	n.duration = n.Sources[r.idx0].Duration()
	n.sync = n.Sources[r.idx0].SyncTrack()

	if weight <= 0 || !haveSecondary {
		return primary
	}
	if weight >= 1 {
		n.duration = n.Sources[r.idx1].Duration()
		n.sync = n.Sources[r.idx1].SyncTrack()
		return secondary
	}
	durA, durB := n.Sources[r.idx0].Duration(), n.Sources[r.idx1].Duration()
	blendedSync := n.Sources[r.idx0].SyncTrack()
	if t1 := n.Sources[r.idx1].SyncTrack(); t1 != nil && blendedSync != nil {
		nBefore := blendedSync.Len()
		blendedSync = clip.BlendSyncTracks(blendedSync, t1, weight)
		n.duration = clip.CalculateDurationSynchronized(durA, durB, nBefore, t1.Len(), blendedSync.Len(), weight)
	} else {
		n.duration = durA + (durB-durA)*weight
	}
	n.sync = blendedSync

	blendTask := ctx.Tasks.RegisterBlend(ctx.CurrentNodeIndex, primary.TaskIndex, secondary.TaskIndex, weight, nil, task.PrePhysics)
	rm := pose.BlendRootMotionDeltas(primary.RootMotionDelta, secondary.RootMotionDelta, weight, pose.RootMotionBlend)
	events := ctx.Events.Merge(primary.Events, secondary.Events)
	return PoseNodeResult{TaskIndex: blendTask, RootMotionDelta: rm, Events: events}
}
