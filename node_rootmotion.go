// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import (
	"math"
	"time"

	"github.com/gazed/animgraph/clip"
	"github.com/gazed/animgraph/math/lin"
	"github.com/gazed/animgraph/pose"
)

// OverrideBlendState is the root-motion override's internal blend state
// machine, a small state enum (spec.md §4.7).
type OverrideBlendState int

// Override blend states.
const (
	FullyOut OverrideBlendState = iota
	BlendingIn
	FullyIn
	BlendingOut
)

// RootMotionOverrideEvent carries a blend duration alongside the usual
// sampled-event payload — the original's AnimationEvent_RootMotion
// detail the distilled spec dropped (SPEC_FULL.md §D.1).
type RootMotionOverrideEvent struct {
	BlendTime time.Duration
}

// AllowHeading selects which translation axes an override replaces.
type AllowHeading struct {
	X, Y, Z bool
}

// Any reports whether any axis is allowed — the redesigned gate
// spec.md §9 calls for in place of the original's (likely typo'd)
// triple check of AllowHeadingX.
func (a AllowHeading) Any() bool { return a.X || a.Y || a.Z }

// RootMotionOverrideNode replaces some or all of its child's root-motion
// delta with a desired heading/facing, optionally event-driven
// (spec.md §4.7).
type RootMotionOverrideNode struct {
	PassthroughNode

	DesiredHeadingVelocity ValueNode // ValueVector3, units/second.
	DesiredFacing          ValueNode // ValueVector3, world-space direction.
	MaxLinearVelocity      float64   // <=0 means unclamped.
	MaxAngularVelocity     float64   // radians/second, <=0 means unclamped.
	Allow                  AllowHeading
	StripPitch             bool

	ListenForEvents bool

	state        OverrideBlendState
	weight       float64
	blendTime    time.Duration
	blendElapsed time.Duration
}

// NewRootMotionOverrideNode wraps child.
func NewRootMotionOverrideNode(child Node) *RootMotionOverrideNode {
	return &RootMotionOverrideNode{PassthroughNode: PassthroughNode{Child: child}}
}

// Initialize resets the blend state machine to FullyOut in addition to
// the child.
func (n *RootMotionOverrideNode) Initialize(ctx *GraphContext, initialTime float64) {
	n.PassthroughNode.Initialize(ctx, initialTime)
	n.state = FullyOut
	n.weight = 0
	n.blendElapsed = 0
}

// Update drives the child, then blends its root-motion delta toward an
// overridden delta by the state machine's current weight.
func (n *RootMotionOverrideNode) Update(ctx *GraphContext, dt float64, syncRange *clip.SyncTrackTimeRange) PoseNodeResult {
	n.MarkActive(ctx.UpdateID)
	ctx.CurrentNodeIndex = n.SelfIndex()
	result := n.PassthroughNode.Update(ctx, dt, syncRange)
	ctx.CurrentNodeIndex = n.SelfIndex()

	if n.ListenForEvents {
		n.scanForOverrideEvent(ctx, result.Events, dt)
	} else if n.weight < 1 {
		n.weight = 1
		n.state = FullyIn
	}

	overridden := n.computeOverride(ctx, dt, result.RootMotionDelta)
	blended := pose.BlendRootMotionDeltas(result.RootMotionDelta, overridden, n.weight, pose.RootMotionBlend)
	result.RootMotionDelta = blended

	if ctx.Observer != nil {
		ctx.Observer.OnRootMotionOperation(ctx.CurrentNodeIndex, n.weight, n.weight > 0)
	}
	return result
}

// scanForOverrideEvent looks for a RootMotionOverrideEvent in the
// child's sampled events this tick and starts a blend transition when found.
func (n *RootMotionOverrideNode) scanForOverrideEvent(ctx *GraphContext, events EventRange, dt float64) {
	for _, e := range ctx.Events.Slice(events) {
		if ev, ok := e.Payload.(RootMotionOverrideEvent); ok {
			n.blendTime = ev.BlendTime
			n.blendElapsed = 0
			if n.state == FullyOut || n.state == BlendingOut {
				n.state = BlendingIn
			}
		}
	}
	n.advanceBlend(dt)
}

func (n *RootMotionOverrideNode) advanceBlend(dt float64) {
	if n.blendTime <= 0 {
		switch n.state {
		case BlendingIn:
			n.state, n.weight = FullyIn, 1
		case BlendingOut:
			n.state, n.weight = FullyOut, 0
		}
		return
	}
	n.blendElapsed += time.Duration(dt * float64(time.Second))
	t := clamp01(float64(n.blendElapsed) / float64(n.blendTime))
	switch n.state {
	case BlendingIn:
		n.weight = t
		if t >= 1 {
			n.state = FullyIn
		}
	case BlendingOut:
		n.weight = 1 - t
		if t >= 1 {
			n.state = FullyOut
		}
	case FullyIn:
		n.weight = 1
	case FullyOut:
		n.weight = 0
	}
}

// computeOverride builds the replacement root-motion delta from the
// desired heading/facing inputs, clamped to the configured velocity caps.
func (n *RootMotionOverrideNode) computeOverride(ctx *GraphContext, dt float64, childDelta *lin.T) *lin.T {
	result := lin.NewT()
	result.Set(childDelta)

	if n.Allow.Any() && n.DesiredHeadingVelocity != nil {
		desired := n.DesiredHeadingVelocity.Evaluate(ctx).Vector
		loc := &lin.V3{X: desired.X * dt, Y: desired.Y * dt, Z: desired.Z * dt}
		if n.MaxLinearVelocity > 0 {
			cap := n.MaxLinearVelocity * dt
			loc.X, loc.Y, loc.Z = clampF(loc.X, -cap, cap), clampF(loc.Y, -cap, cap), clampF(loc.Z, -cap, cap)
		}
		if n.Allow.X {
			result.Loc.X = loc.X
		}
		if n.Allow.Y {
			result.Loc.Y = loc.Y
		}
		if n.Allow.Z {
			result.Loc.Z = loc.Z
		}
	}

	if n.DesiredFacing != nil {
		facing := n.DesiredFacing.Evaluate(ctx).Vector
		turn := facingTurn(&facing, n.StripPitch)
		if n.MaxAngularVelocity > 0 {
			maxAngle := n.MaxAngularVelocity * dt
			if angle := turn.Ang(lin.QI); angle > maxAngle && angle > lin.Epsilon {
				clamped := &lin.Q{}
				clamped.Slerp(lin.QI, turn, maxAngle/angle)
				turn = clamped
			}
		}
		result.Rot.Set(turn)
	}
	return result
}

// facingTurn returns the rotation that turns world-forward (+Z) toward
// facing: the full shortest-arc rotation when StripPitch is false, or a
// yaw-only rotation about the world up axis when it's true — mirroring the
// original's AllowFacingPitch-gated construction (spec.md §4.7).
func facingTurn(facing *lin.V3, stripPitch bool) *lin.Q {
	if stripPitch {
		yaw := &lin.Q{}
		yaw.SetAa(0, 1, 0, lin.Atan2F(facing.X, facing.Z))
		return yaw
	}

	dir := (&lin.V3{}).Set(facing)
	if dir.Len() < lin.Epsilon {
		return lin.QI
	}
	dir.Unit()

	forward := &lin.V3{X: 0, Y: 0, Z: 1}
	axis := (&lin.V3{}).Cross(forward, dir)
	cosAngle := clampF(forward.Dot(dir), -1, 1)
	angle := math.Acos(cosAngle)

	if axis.Len() < lin.Epsilon {
		if cosAngle > 0 {
			return lin.QI // facing already points forward.
		}
		axis = &lin.V3{X: 0, Y: 1, Z: 0} // anti-parallel: spin about an arbitrary perpendicular axis.
	} else {
		axis.Unit()
	}

	turn := &lin.Q{}
	turn.SetAa(axis.X, axis.Y, axis.Z, angle)
	return turn
}
