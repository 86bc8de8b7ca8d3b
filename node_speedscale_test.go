// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import (
	"testing"

	"github.com/gazed/animgraph/clip"
)

// With no blend-in, the scale multiplier applies immediately and the
// reported duration is scaled by its inverse so downstream blend-weight
// math still sees a meaningful duration.
func TestSpeedScaleNoBlendInAppliesImmediately(t *testing.T) {
	child := newFakeNode(4)
	n := NewSpeedScale(child, &ConstantValueNode{Value: Value{Type: ValueFloat, Float: 2.0}}, 0)

	ctx := newTestContext(1)
	n.Initialize(ctx, 0)
	ctx.DeltaTime = 0.1
	n.Update(ctx, 0.1, nil)

	if n.duration != 2.0 {
		t.Errorf("expected duration 4/2=2.0, got %f", n.duration)
	}
}

// A nonzero BlendInTime ramps the multiplier in linearly from 1.0 rather
// than applying the target scale on the very first tick.
func TestSpeedScaleRampsInOverBlendInTime(t *testing.T) {
	child := newFakeNode(4)
	n := NewSpeedScale(child, &ConstantValueNode{Value: Value{Type: ValueFloat, Float: 3.0}}, 1.0)

	ctx := newTestContext(1)
	n.Initialize(ctx, 0)
	ctx.DeltaTime = 0.5
	n.Update(ctx, 0.5, nil)

	// Halfway through the 1.0s ramp: mult = 1 + (3-1)*0.5 = 2.0.
	wantDuration := child.Duration() / 2.0
	if n.duration != wantDuration {
		t.Errorf("expected duration %f at half-ramp, got %f", wantDuration, n.duration)
	}

	ctx.DeltaTime = 0.5
	n.Update(ctx, 0.5, nil)
	// Ramp complete: mult = 3.0.
	wantDuration = child.Duration() / 3.0
	if n.duration != wantDuration {
		t.Errorf("expected duration %f once the ramp completes, got %f", wantDuration, n.duration)
	}
}

// A synchronized update request is rejected (and logged) rather than
// passed through, since a speed-scaled child's timeline isn't governed by
// its own sync track.
func TestSpeedScaleRejectsSyncRange(t *testing.T) {
	child := newFakeNode(4)
	n := NewSpeedScale(child, nil, 0)

	ctx := newTestContext(1)
	n.Initialize(ctx, 0)
	ctx.DeltaTime = 0.1

	syncRange := &clip.SyncTrackTimeRange{}
	n.Update(ctx, 0.1, syncRange)
	if child.updates != 1 {
		t.Errorf("expected the child to still be driven once, got %d updates", child.updates)
	}
}
