// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import (
	"testing"

	"github.com/gazed/animgraph/task"
)

// Scenario 5 (spec.md §8): a zero-weight layer contributes no Blend/Overlay
// task — the base pose passes through unchanged — but its sampled events
// are still recorded (at weight 0) unless the layer sets IgnoreEvents.
func TestLayerBlendZeroWeightPreservesBase(t *testing.T) {
	base := newFakeNode(1)
	layer := newFakeNode(1)
	layer.emitEvent = true

	n := &LayerBlendNode{
		Base: base,
		Layers: []Layer{
			{Node: layer, Weight: &ConstantValueNode{Value: Value{Type: ValueFloat, Float: 0}}},
		},
	}
	arena := NewArena()
	arena.Add(n)

	ctx := newTestContext(1)
	n.Initialize(ctx, 0)

	tasksBefore := ctx.Tasks.Len()
	result := n.Update(ctx, 0.1, nil)
	registered := ctx.Tasks.Len() - tasksBefore

	for i := tasksBefore; i < ctx.Tasks.Len(); i++ {
		k := ctx.Tasks.Task(i).Kind
		if k == task.Blend || k == task.OverlayBlend || k == task.GlobalBlend {
			t.Errorf("did not expect a blend task at zero layer weight, got kind %v", k)
		}
	}
	// Only the base's and the layer's own DefaultPose tasks should have
	// been registered; no blend task is added on top of them.
	if registered != 2 {
		t.Errorf("expected exactly the base's and the layer's own tasks (2), got %d", registered)
	}
	if result.TaskIndex != tasksBefore {
		t.Errorf("expected the base's task to pass through unchanged, got %d want %d", result.TaskIndex, tasksBefore)
	}

	if result.Events.Len() == 0 {
		t.Errorf("expected the zero-weight layer's event to still be recorded")
	}
	for _, e := range ctx.Events.Slice(result.Events) {
		if e.Payload == "fake" && e.Weight != 0 {
			t.Errorf("expected the zero-weight layer's event scaled to weight 0, got %f", e.Weight)
		}
	}
}

// With IgnoreEvents set, a zero-weight layer's events are flagged so
// downstream consumers can filter them out, even though they remain in
// the merged range.
func TestLayerBlendIgnoreEventsFlagsLayerEvents(t *testing.T) {
	base := newFakeNode(1)
	layer := newFakeNode(1)
	layer.emitEvent = true

	n := &LayerBlendNode{
		Base: base,
		Layers: []Layer{
			{
				Node:    layer,
				Weight:  &ConstantValueNode{Value: Value{Type: ValueFloat, Float: 0}},
				Options: LayerOptions{IgnoreEvents: true},
			},
		},
	}
	arena := NewArena()
	arena.Add(n)

	ctx := newTestContext(1)
	n.Initialize(ctx, 0)
	result := n.Update(ctx, 0.1, nil)

	found := false
	for _, e := range ctx.Events.Slice(result.Events) {
		if e.Payload == "fake" {
			found = true
			if e.Flags&EventIgnored == 0 {
				t.Errorf("expected the layer's event to be flagged EventIgnored")
			}
		}
	}
	if !found {
		t.Fatal("expected the layer's event to still be present in the merged range")
	}
}

// A nonzero layer weight registers an overlay blend task composing the
// layer over the base.
func TestLayerBlendNonzeroWeightRegistersOverlay(t *testing.T) {
	base := newFakeNode(1)
	layer := newFakeNode(1)

	n := &LayerBlendNode{
		Base: base,
		Layers: []Layer{
			{Node: layer, Weight: &ConstantValueNode{Value: Value{Type: ValueFloat, Float: 0.5}}},
		},
	}
	arena := NewArena()
	arena.Add(n)

	ctx := newTestContext(1)
	n.Initialize(ctx, 0)
	result := n.Update(ctx, 0.1, nil)

	if ctx.Tasks.Task(result.TaskIndex).Kind != task.OverlayBlend {
		t.Errorf("expected an Overlay task at nonzero layer weight, got %v", ctx.Tasks.Task(result.TaskIndex).Kind)
	}
}
