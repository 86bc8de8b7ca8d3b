// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import "github.com/gazed/animgraph/clip"

// SpeedScale multiplies ΔT for its child by a value node's scalar,
// ramping the multiplier in from 1.0 over BlendInTime on first
// activation. Synchronized update is disallowed (spec.md §4.6).
type SpeedScale struct {
	PassthroughNode
	Scale       ValueNode
	BlendInTime float64

	elapsedSinceActivation float64
	firstTick              bool
}

// NewSpeedScale wraps child, multiplying its ΔT by scale.Evaluate(ctx).Float.
func NewSpeedScale(child Node, scale ValueNode, blendInTime float64) *SpeedScale {
	return &SpeedScale{PassthroughNode: PassthroughNode{Child: child}, Scale: scale, BlendInTime: blendInTime}
}

// Initialize resets the blend-in ramp in addition to the child.
func (n *SpeedScale) Initialize(ctx *GraphContext, initialTime float64) {
	n.PassthroughNode.Initialize(ctx, initialTime)
	n.elapsedSinceActivation = 0
	n.firstTick = true
}

func (n *SpeedScale) currentMultiplier(ctx *GraphContext, target float64) float64 {
	if n.firstTick {
		n.firstTick = false
	}
	if n.BlendInTime <= 0 {
		return target
	}
	n.elapsedSinceActivation += ctx.DeltaTime
	t := clamp01(n.elapsedSinceActivation / n.BlendInTime)
	return 1 + (target-1)*t
}

// Update scales dt by the evaluated multiplier before driving the child,
// then reports the node's own duration scaled by the inverse multiplier
// so downstream blend-weight math still sees a meaningful duration.
func (n *SpeedScale) Update(ctx *GraphContext, dt float64, syncRange *clip.SyncTrackTimeRange) PoseNodeResult {
	n.MarkActive(ctx.UpdateID)
	ctx.CurrentNodeIndex = n.SelfIndex()
	if syncRange != nil {
		ctx.Logger.Warn("speed-scale node does not support synchronized update; ignoring sync range", "source_node", ctx.CurrentNodeIndex)
		syncRange = nil
	}
	target := 1.0
	if n.Scale != nil {
		target = n.Scale.Evaluate(ctx).Float
	}
	mult := n.currentMultiplier(ctx, target)

	result := n.Child.Update(ctx, dt*mult, nil)
	n.duration = n.Child.Duration()
	if mult != 0 {
		n.duration /= mult
	}
	n.sync = n.Child.SyncTrack()
	return result
}

// VelocityBasedSpeedScale derives its multiplier from a desired velocity
// divided by the child's own reference velocity, rather than a direct
// scalar parameter (spec.md §4.6).
type VelocityBasedSpeedScale struct {
	SpeedScale
	DesiredVelocity  ValueNode // ValueFloat, units/second.
	ReferenceVelocity float64  // the child clip's authored velocity at scale 1.0.
}

// NewVelocityBasedSpeedScale wraps child, deriving its speed multiplier
// each tick as desiredVelocity/referenceVelocity.
func NewVelocityBasedSpeedScale(child Node, desiredVelocity ValueNode, referenceVelocity, blendInTime float64) *VelocityBasedSpeedScale {
	n := &VelocityBasedSpeedScale{DesiredVelocity: desiredVelocity, ReferenceVelocity: referenceVelocity}
	n.Child = child
	n.BlendInTime = blendInTime
	return n
}

// Update computes the velocity-ratio multiplier and otherwise behaves
// exactly like SpeedScale.
func (n *VelocityBasedSpeedScale) Update(ctx *GraphContext, dt float64, syncRange *clip.SyncTrackTimeRange) PoseNodeResult {
	n.MarkActive(ctx.UpdateID)
	ctx.CurrentNodeIndex = n.SelfIndex()
	if syncRange != nil {
		ctx.Logger.Warn("velocity-based speed-scale node does not support synchronized update; ignoring sync range", "source_node", ctx.CurrentNodeIndex)
	}
	target := 1.0
	if n.DesiredVelocity != nil && n.ReferenceVelocity > 0 {
		target = n.DesiredVelocity.Evaluate(ctx).Float / n.ReferenceVelocity
	}
	mult := n.currentMultiplier(ctx, target)

	result := n.Child.Update(ctx, dt*mult, nil)
	n.duration = n.Child.Duration()
	if mult != 0 {
		n.duration /= mult
	}
	n.sync = n.Child.SyncTrack()
	return result
}
