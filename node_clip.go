// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import (
	"github.com/gazed/animgraph/clip"
	"github.com/gazed/animgraph/math/lin"
	"github.com/gazed/animgraph/pose"
	"github.com/gazed/animgraph/task"
)

// ClipNode samples a single animation clip, registering one Sample task
// per tick (spec.md §4.4).
type ClipNode struct {
	BaseNode

	Clip             *clip.AnimationClip
	Loop             bool
	PlayInReverse    ValueNode // optional; evaluated to ValueBool.
	SampleRootMotion bool

	previousTime float64 // clip-relative percentage, [0,1].
	currentTime  float64
}

// NewClipNode wraps c. loop enables wraparound rather than clamping at
// the clip's end; sampleRootMotion enables per-tick root-motion delta
// reporting.
func NewClipNode(c *clip.AnimationClip, loop, sampleRootMotion bool) *ClipNode {
	n := &ClipNode{Clip: c, Loop: loop, SampleRootMotion: sampleRootMotion}
	if c != nil {
		n.duration = c.Duration()
		n.sync = c.SyncTrack()
	}
	return n
}

// Initialize resets the node's playhead to initialTime (a clip percentage).
func (n *ClipNode) Initialize(ctx *GraphContext, initialTime float64) {
	n.isInitialized = true
	n.previousTime = clamp01(initialTime)
	n.currentTime = n.previousTime
}

// Shutdown marks the node uninitialized; it carries no owned children.
func (n *ClipNode) Shutdown(ctx *GraphContext) { n.isInitialized = false }

// DeactivateBranch is a no-op: a clip node has no caches to release.
func (n *ClipNode) DeactivateBranch(ctx *GraphContext) {}

// Update advances the playhead by dt/duration (or adopts syncRange
// directly when synchronized), registers a Sample task, and reports the
// clip's root-motion delta and event range for the time step covered
// (spec.md §4.4).
func (n *ClipNode) Update(ctx *GraphContext, dt float64, syncRange *clip.SyncTrackTimeRange) PoseNodeResult {
	n.MarkActive(ctx.UpdateID)
	ctx.CurrentNodeIndex = n.SelfIndex()
	if n.Clip == nil {
		ctx.Logger.Warn("clip node has no clip resource, degrading to reference pose", "source_node", ctx.CurrentNodeIndex)
		idx := ctx.Tasks.RegisterDefaultPose(ctx.CurrentNodeIndex, pose.ReferencePose, task.PrePhysics)
		return PoseNodeResult{TaskIndex: idx, RootMotionDelta: lin.NewT()}
	}

	reverse := false
	if n.PlayInReverse != nil {
		reverse = n.PlayInReverse.Evaluate(ctx).Bool
	}

	st := n.Clip.SyncTrack()
	prev := n.currentTime
	var cur float64
	if syncRange != nil {
		prev = st.GetPercentageThrough(syncRange.Start)
		cur = st.GetPercentageThrough(syncRange.End)
	} else {
		step := 0.0
		if n.Clip.Duration() > 0 {
			step = dt / n.Clip.Duration()
		}
		if reverse {
			step = -step
		}
		cur = prev + step
		if n.Loop {
			cur = wrap01(cur)
		} else {
			cur = clamp01(cur)
		}
	}
	n.previousTime, n.currentTime = prev, cur

	ft := n.Clip.FrameTimeFromPercentage(cur)
	taskIdx := ctx.Tasks.RegisterSample(ctx.CurrentNodeIndex, n.Clip, ft, false, task.PrePhysics)

	delta := lin.NewT()
	if n.SampleRootMotion {
		delta = n.Clip.GetRootMotionDelta(prev*n.Clip.Duration(), cur*n.Clip.Duration())
	}

	events := n.Clip.GetEventsForRange(prev*n.Clip.Duration(), cur*n.Clip.Duration(), nil)
	start := ctx.Events.Len()
	for _, e := range events {
		ctx.Events.Append(SampledEvent{Payload: e.Payload, Weight: 1, Start: e.Start, End: e.End})
	}
	evRange := ctx.Events.Range(start, ctx.Events.Len())
	if ctx.BranchState == BranchInactive {
		ctx.Events.Flag(evRange, EventFromInactiveBranch)
	}

	syncRangeOut := &clip.SyncTrackTimeRange{Start: st.GetTime(prev), End: st.GetTime(cur)}
	return PoseNodeResult{TaskIndex: taskIdx, RootMotionDelta: delta, Events: evRange, SyncRange: syncRangeOut}
}
