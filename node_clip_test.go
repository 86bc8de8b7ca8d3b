// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import (
	"encoding/binary"
	"testing"

	"github.com/gazed/animgraph/clip"
	"github.com/gazed/animgraph/resource"
	"github.com/gazed/animgraph/task"
)

func identityRotationKeys() []byte {
	b := make([]byte, 6)
	binary.LittleEndian.PutUint16(b[0:2], 32768)
	binary.LittleEndian.PutUint16(b[2:4], 32768)
	binary.LittleEndian.PutUint16(b[4:6], 32768)
	return b
}

func newTestClip(duration float64) *clip.AnimationClip {
	data := &resource.ClipData{
		Skeleton:  newTestSkeleton(),
		NumFrames: 2,
		Duration:  duration,
		Tracks: []resource.TrackData{
			{RotationKeys: identityRotationKeys(), StaticRotation: true, StaticTranslation: true},
			{RotationKeys: identityRotationKeys(), StaticRotation: true, StaticTranslation: true},
			{RotationKeys: identityRotationKeys(), StaticRotation: true, StaticTranslation: true},
		},
		Events: []resource.EventData{
			{StartTime: 0, EndTime: 0.05, Payload: "start"},
			{StartTime: 1.9, EndTime: 1.95, Payload: "late"},
		},
	}
	return clip.New(data)
}

// Scenario 1 (spec.md §8): clip of duration 2.0s, ΔT=0.3s, previousTime=0.9
// (as a fraction of duration, clip time 1.8s). Looping wraps to 0.05 and
// picks up events on both ends of the range.
func TestClipNodeLoopWraparound(t *testing.T) {
	c := newTestClip(2.0)
	n := NewClipNode(c, true, false)
	ctx := newTestContext(1)
	n.Initialize(ctx, 0.9)

	n.Update(ctx, 0.3, nil)

	if n.currentTime < 0.04 || n.currentTime > 0.06 {
		t.Errorf("expected currentTime ~0.05, got %f", n.currentTime)
	}

	foundStart, foundLate := false, false
	for _, e := range ctx.Events.events {
		if e.Payload == "start" {
			foundStart = true
		}
		if e.Payload == "late" {
			foundLate = true
		}
	}
	if !foundStart || !foundLate {
		t.Errorf("expected wrapped event range to cover both ends, events=%+v", ctx.Events.events)
	}
}

// Without looping the playhead clamps at 1.0 and only the late-range event
// is sampled.
func TestClipNodeNoLoopClamps(t *testing.T) {
	c := newTestClip(2.0)
	n := NewClipNode(c, false, false)
	ctx := newTestContext(1)
	n.Initialize(ctx, 0.9)

	n.Update(ctx, 0.3, nil)

	if n.currentTime != 1.0 {
		t.Errorf("expected currentTime clamped to 1.0, got %f", n.currentTime)
	}
	for _, e := range ctx.Events.events {
		if e.Payload == "start" {
			t.Errorf("did not expect wraparound event %q without looping", e.Payload)
		}
	}
}

// A nil clip resource degrades to a reference-pose task rather than erroring.
func TestClipNodeMissingClipDegrades(t *testing.T) {
	n := NewClipNode(nil, true, false)
	ctx := newTestContext(1)
	n.Initialize(ctx, 0)

	result := n.Update(ctx, 0.1, nil)
	if result.TaskIndex == NoTask {
		t.Fatal("expected a fallback task even with no clip")
	}
	if ctx.Tasks.Task(result.TaskIndex).Kind != task.DefaultPose {
		t.Errorf("expected DefaultPose task kind")
	}
}
