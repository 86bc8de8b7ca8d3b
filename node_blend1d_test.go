// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import (
	"testing"

	"github.com/gazed/animgraph/task"
)

// Scenario 2 (spec.md §8): three sources parameterized at {0,5,10}; a
// parameter value of exactly 5.0 lands on the shared boundary of the two
// ranges meeting at source[1], resolving to weight 1 against the lower
// range — which selects source[1] alone with no Blend task registered
// (spec.md §8's weight-extreme short-circuit).
func TestParameterizedBlend1DBoundarySelectsSingleSource(t *testing.T) {
	sources := []Node{newFakeNode(1), newFakeNode(1), newFakeNode(1)}
	points := []BlendParameterPoint{{InputIdx: 0, Value: 0}, {InputIdx: 1, Value: 5}, {InputIdx: 2, Value: 10}}
	param := &ConstantValueNode{Value: Value{Type: ValueFloat, Float: 5.0}}
	n := NewParameterizedBlend1D(sources, param, points)

	arena := NewArena()
	arena.Add(n)

	ctx := newTestContext(1)
	n.Initialize(ctx, 0)

	tasksBefore := ctx.Tasks.Len()
	result := n.Update(ctx, 0.1, nil)
	registered := ctx.Tasks.Len() - tasksBefore

	if n.lastWeight != 1 {
		t.Errorf("expected boundary weight 1, got %f", n.lastWeight)
	}
	if n.activeIdx1 != 1 {
		t.Errorf("expected the boundary to resolve onto source[1], got %d", n.activeIdx1)
	}
	// One DefaultPose task per touched source (3), no Blend task on top.
	for i := tasksBefore; i < ctx.Tasks.Len(); i++ {
		if ctx.Tasks.Task(i).Kind == task.Blend {
			t.Errorf("did not expect a Blend task at boundary weight 1")
		}
	}
	if registered != len(sources) {
		t.Errorf("expected exactly one task per source (%d), got %d", len(sources), registered)
	}
	if result.TaskIndex == NoTask {
		t.Fatal("expected a task index from the selected source")
	}
}

// Away from a boundary, both bracketing sources blend.
func TestParameterizedBlend1DInteriorBlends(t *testing.T) {
	sources := []Node{newFakeNode(1), newFakeNode(1), newFakeNode(1)}
	points := []BlendParameterPoint{{InputIdx: 0, Value: 0}, {InputIdx: 1, Value: 5}, {InputIdx: 2, Value: 10}}
	param := &ConstantValueNode{Value: Value{Type: ValueFloat, Float: 7.5}}
	n := NewParameterizedBlend1D(sources, param, points)
	arena := NewArena()
	arena.Add(n)

	ctx := newTestContext(1)
	n.Initialize(ctx, 0)
	n.Update(ctx, 0.1, nil)

	if n.lastWeight <= 0 || n.lastWeight >= 1 {
		t.Errorf("expected interior weight in (0,1), got %f", n.lastWeight)
	}
	if n.activeIdx0 != 1 || n.activeIdx1 != 2 {
		t.Errorf("expected range [1,2], got [%d,%d]", n.activeIdx0, n.activeIdx1)
	}
}
