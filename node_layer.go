// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import (
	"github.com/gazed/animgraph/clip"
	"github.com/gazed/animgraph/pose"
	"github.com/gazed/animgraph/task"
)

// LayerOptions are the per-layer flags a LayerBlendNode applies while
// updating and combining one layer (spec.md §4.10).
type LayerOptions struct {
	IsSynchronized           bool
	IgnoreEvents             bool
	UseGlobalBlend           bool
	OnlySampleBaseRootMotion bool
}

// Layer pairs a state-machine (or any pose node) with its options and
// an optional bone mask restricting its influence.
type Layer struct {
	Node    Node
	Options LayerOptions
	Mask    *pose.Mask
	Weight  ValueNode // evaluated each tick; the layer's contribution weight.
}

// LayerBlendNode blends an ordered stack of layers onto a base pose
// (spec.md §4.10).
type LayerBlendNode struct {
	BaseNode

	Base   Node
	Layers []Layer
}

// Initialize cascades to the base and every layer.
func (n *LayerBlendNode) Initialize(ctx *GraphContext, initialTime float64) {
	n.isInitialized = true
	n.Base.Initialize(ctx, initialTime)
	for _, l := range n.Layers {
		l.Node.Initialize(ctx, initialTime)
	}
}

// Shutdown cascades to the base and every layer.
func (n *LayerBlendNode) Shutdown(ctx *GraphContext) {
	n.Base.Shutdown(ctx)
	for _, l := range n.Layers {
		l.Node.Shutdown(ctx)
	}
	n.isInitialized = false
}

// DeactivateBranch cascades to the base and every layer.
func (n *LayerBlendNode) DeactivateBranch(ctx *GraphContext) {
	n.Base.DeactivateBranch(ctx)
	for _, l := range n.Layers {
		l.Node.DeactivateBranch(ctx)
	}
}

// Update drives the base, then composes each layer over it in order,
// restoring the parent's LayerContext after each so nested layers see
// their own parent correctly (spec.md §4.10).
func (n *LayerBlendNode) Update(ctx *GraphContext, dt float64, syncRange *clip.SyncTrackTimeRange) PoseNodeResult {
	n.MarkActive(ctx.UpdateID)
	ctx.CurrentNodeIndex = n.SelfIndex()
	baseResult := n.Base.Update(ctx, dt, syncRange)
	ctx.CurrentNodeIndex = n.SelfIndex()
	if baseResult.TaskIndex == NoTask {
		baseResult.TaskIndex = ctx.Tasks.RegisterDefaultPose(ctx.CurrentNodeIndex, pose.ReferencePose, task.PrePhysics)
	}
	n.duration = n.Base.Duration()
	n.sync = n.Base.SyncTrack()

	result := baseResult
	parentLayer := ctx.Layer
	baseSyncRange := baseResult.SyncRange

	for _, l := range n.Layers {
		ctx.Layer = LayerContext{Weight: 1, Mask: l.Mask}
		weight := 1.0
		if l.Weight != nil {
			weight = l.Weight.Evaluate(ctx).Float
		}
		ctx.Layer.Weight = weight

		var layerSyncRange *clip.SyncTrackTimeRange
		if l.Options.IsSynchronized {
			layerSyncRange = baseSyncRange
		}
		layerResult := l.Node.Update(ctx, dt, layerSyncRange)
		ctx.CurrentNodeIndex = n.SelfIndex()

		if layerResult.TaskIndex != NoTask && weight > 0 {
			mask := l.Mask
			if mask == nil && ctx.Masks != nil {
				idx := ctx.Masks.Acquire()
				mask = ctx.Masks.Get(idx)
				mask.ResetTo(1)
				defer ctx.Masks.Release(idx)
			}
			var blendTask int
			if l.Options.UseGlobalBlend {
				blendTask = ctx.Tasks.RegisterGlobalBlend(ctx.CurrentNodeIndex, result.TaskIndex, layerResult.TaskIndex, weight, mask, task.PrePhysics)
			} else {
				blendTask = ctx.Tasks.RegisterOverlayBlend(ctx.CurrentNodeIndex, result.TaskIndex, layerResult.TaskIndex, weight, mask, task.PrePhysics)
			}
			rmMode := pose.RootMotionBlend
			if l.Options.OnlySampleBaseRootMotion {
				rmMode = pose.RootMotionIgnoreTarget
			}
			result = PoseNodeResult{
				TaskIndex:       blendTask,
				RootMotionDelta: pose.BlendRootMotionDeltas(result.RootMotionDelta, layerResult.RootMotionDelta, weight, rmMode),
				Events:          result.Events,
				SyncRange:       baseSyncRange,
			}
		}

		if layerResult.Events.Len() > 0 {
			ctx.Events.ScaleWeight(layerResult.Events, weight)
			if l.Options.IgnoreEvents {
				ctx.Events.Flag(layerResult.Events, EventIgnored)
			}
			result.Events = ctx.Events.Merge(result.Events, layerResult.Events)
		}

		ctx.Layer = parentLayer
	}
	return result
}
