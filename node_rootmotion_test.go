// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import (
	"testing"

	"github.com/gazed/animgraph/math/lin"
)

func constantVector(x, y, z float64) ValueNode {
	return &ConstantValueNode{Value: Value{Type: ValueVector3, Vector: lin.V3{X: x, Y: y, Z: z}}}
}

// With every heading axis disallowed, a nonzero DesiredHeadingVelocity must
// not perturb the child's root motion at all — the Any() gate (spec.md §9)
// must block the override outright rather than replacing zero axes.
func TestRootMotionOverrideNoAxesAllowedLeavesChildUnchanged(t *testing.T) {
	child := newFakeNode(1)
	child.rootMotion.Loc.SetS(1, 2, 3)
	n := NewRootMotionOverrideNode(child)
	n.DesiredHeadingVelocity = constantVector(100, 100, 100)
	n.Allow = AllowHeading{} // all false

	ctx := newTestContext(1)
	n.Initialize(ctx, 0)
	result := n.Update(ctx, 0.1, nil)

	if !result.RootMotionDelta.Loc.Aeq(child.rootMotion.Loc) {
		t.Errorf("expected the child's root motion to pass through unmodified, got %v want %v",
			result.RootMotionDelta.Loc.Dump(), child.rootMotion.Loc.Dump())
	}
}

// Allowing a single axis replaces only that axis, leaving the others as
// the child reported them.
func TestRootMotionOverrideSingleAxisReplacesOnlyThatAxis(t *testing.T) {
	child := newFakeNode(1)
	child.rootMotion.Loc.SetS(1, 2, 3)
	n := NewRootMotionOverrideNode(child)
	n.DesiredHeadingVelocity = constantVector(10, 0, 0)
	n.Allow = AllowHeading{X: true}

	ctx := newTestContext(1)
	n.Initialize(ctx, 0)
	result := n.Update(ctx, 0.1, nil)

	// Weight reaches 1 immediately (ListenForEvents is false), so the
	// blended delta equals the override outright on this tick.
	if !lin.Aeq(result.RootMotionDelta.Loc.X, 1.0) {
		t.Errorf("expected X replaced with desired*dt = 1.0, got %f", result.RootMotionDelta.Loc.X)
	}
	if !lin.Aeq(result.RootMotionDelta.Loc.Y, 2) || !lin.Aeq(result.RootMotionDelta.Loc.Z, 3) {
		t.Errorf("expected Y/Z to pass through from the child, got (%f,%f)",
			result.RootMotionDelta.Loc.Y, result.RootMotionDelta.Loc.Z)
	}
}

// MaxLinearVelocity clamps the override's replaced axes.
func TestRootMotionOverrideClampsToMaxLinearVelocity(t *testing.T) {
	child := newFakeNode(1)
	n := NewRootMotionOverrideNode(child)
	n.DesiredHeadingVelocity = constantVector(1000, 0, 0)
	n.Allow = AllowHeading{X: true}
	n.MaxLinearVelocity = 5

	ctx := newTestContext(1)
	n.Initialize(ctx, 0)
	result := n.Update(ctx, 1.0, nil)

	if !lin.Aeq(result.RootMotionDelta.Loc.X, 5.0) {
		t.Errorf("expected X clamped to MaxLinearVelocity*dt = 5.0, got %f", result.RootMotionDelta.Loc.X)
	}
}

// With StripPitch, facing straight up still only turns yaw: the world-up
// component is irrelevant to an Atan2F(X,Z) derivation, so the result is an
// in-plane rotation with no pitch at all.
func TestRootMotionOverrideStripPitchIgnoresVerticalFacing(t *testing.T) {
	child := newFakeNode(1)
	n := NewRootMotionOverrideNode(child)
	n.DesiredFacing = constantVector(1, 5, 0) // mostly "up", some "right".
	n.StripPitch = true

	ctx := newTestContext(1)
	n.Initialize(ctx, 0)
	result := n.Update(ctx, 0.1, nil)

	want := &lin.Q{}
	want.SetAa(0, 1, 0, lin.Atan2F(1, 0))
	if !result.RootMotionDelta.Rot.Aeq(want) {
		t.Errorf("expected a yaw-only turn toward (1,0) regardless of the Y component, got %v want %v",
			result.RootMotionDelta.Rot.Dump(), want.Dump())
	}
}

// Without StripPitch, a facing vector with a vertical component produces a
// full 3D rotation away from identity — not the yaw-only form — so the
// field has an observable effect in both states.
func TestRootMotionOverrideFullFacingUsesPitch(t *testing.T) {
	child := newFakeNode(1)
	n := NewRootMotionOverrideNode(child)
	n.DesiredFacing = constantVector(0, 1, 0) // straight up: 90 degrees off any yaw-only axis.
	n.StripPitch = false

	ctx := newTestContext(1)
	n.Initialize(ctx, 0)
	result := n.Update(ctx, 0.1, nil)

	// Facing straight up from world-forward (+Z) is a 90 degree turn; the
	// yaw-only form has no defined yaw for it (Atan2F(0,0) is NaN).
	identity := lin.QI
	if result.RootMotionDelta.Rot.Aeq(identity) {
		t.Error("expected a non-identity pitched rotation toward straight-up facing")
	}
	if got := result.RootMotionDelta.Rot.Ang(identity); !lin.Aeq(got, lin.PI/2) {
		t.Errorf("expected a 90 degree turn toward straight-up facing, got %f radians", got)
	}
}

// MaxAngularVelocity clamps the facing turn's own magnitude from identity,
// independent of the child's unrelated incremental rotation.
func TestRootMotionOverrideClampsToMaxAngularVelocity(t *testing.T) {
	child := newFakeNode(1)
	n := NewRootMotionOverrideNode(child)
	n.DesiredFacing = constantVector(1, 0, 0) // 90 degree turn from +Z.
	n.MaxAngularVelocity = 0.1                // radians/second.

	ctx := newTestContext(1)
	n.Initialize(ctx, 0)
	result := n.Update(ctx, 1.0, nil) // dt=1s => max turn this tick = 0.1 rad.

	got := result.RootMotionDelta.Rot.Ang(lin.QI)
	if !lin.Aeq(got, 0.1) {
		t.Errorf("expected the turn clamped to MaxAngularVelocity*dt = 0.1 rad, got %f", got)
	}
}
