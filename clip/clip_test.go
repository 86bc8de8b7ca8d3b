// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package clip

import (
	"encoding/binary"
	"testing"

	"github.com/gazed/animgraph/resource"
)

func identityRotationKeys() []byte {
	b := make([]byte, 6)
	binary.LittleEndian.PutUint16(b[0:2], 32768) // dequantizeUnit(32768) ~= 0
	binary.LittleEndian.PutUint16(b[2:4], 32768)
	binary.LittleEndian.PutUint16(b[4:6], 32768)
	return b
}

func newTestClip(duration float64) *AnimationClip {
	data := &resource.ClipData{
		Skeleton:  &resource.InMemorySkeleton{Parents: []int{-1}},
		NumFrames: 2,
		Duration:  duration,
		Tracks: []resource.TrackData{
			{
				RotationKeys:      identityRotationKeys(),
				StaticRotation:    true,
				StaticTranslation: true,
			},
		},
		Events: []resource.EventData{
			{StartTime: 0, EndTime: 0.05, Payload: "start"},
			{StartTime: 0.5, EndTime: 0.55, Payload: "mid"},
			{StartTime: 1.9, EndTime: 1.95, Payload: "late"},
		},
	}
	return New(data)
}

func TestClipEventIdempotence(t *testing.T) {
	c := newTestClip(2.0)
	whole := c.GetEventsForRange(0, 2.0, nil)
	mid := 0.7
	first := c.GetEventsForRange(0, mid, nil)
	second := c.GetEventsForRange(mid, 2.0, nil)
	if len(whole) == 0 {
		t.Fatal("expected events in whole range")
	}
	if len(first)+len(second) < len(whole) {
		t.Errorf("split query missed events: whole=%d first+second=%d", len(whole), len(first)+len(second))
	}
}

func TestClipLoopWraparound(t *testing.T) {
	c := newTestClip(2.0)
	// previousTime = 0.9*dur, ΔT = 0.3 wraps to currentTime = 0.05*dur.
	events := c.GetEventsForRange(1.8, 0.1, nil)
	foundLate, foundStart := false, false
	for _, e := range events {
		if e.Payload == "late" {
			foundLate = true
		}
		if e.Payload == "start" {
			foundStart = true
		}
	}
	if !foundLate || !foundStart {
		t.Errorf("expected wrapped range to cover both ends, got %+v", events)
	}
}

func TestRotationDecodeIsUnit(t *testing.T) {
	c := newTestClip(1.0)
	tr, err := c.GetLocalTransform(0, FrameTime{Frame: 0, Pct: 0})
	if err != nil {
		t.Fatal(err)
	}
	if l := tr.Rot.Len(); l < 0.99 || l > 1.01 {
		t.Errorf("expected unit rotation, got len %f", l)
	}
}

func TestGetLocalTransformInvalidFrame(t *testing.T) {
	c := newTestClip(1.0)
	if _, err := c.GetLocalTransform(0, FrameTime{Frame: 99, Pct: 0}); err == nil {
		t.Error("expected an error for an out-of-range frame")
	}
}
