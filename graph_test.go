// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import (
	"testing"

	"github.com/gazed/animgraph/math/lin"
)

// A minimal single-node graph ticks end to end: Initialize primes the root,
// Tick drives the update/execute passes and resolves a final pose.
func TestGraphInstanceTickSmoke(t *testing.T) {
	arena := NewArena()
	root := newFakeNode(1)
	rootIdx := arena.Add(root)

	skel := newTestSkeleton()
	g := NewGraphInstance(arena, rootIdx, skel, 8, 4)
	g.Initialize(0)

	world := lin.NewT()
	result := g.Tick(1.0/60.0, world)

	if result.Pose == nil {
		t.Fatal("expected a resolved pose")
	}
	if result.RootMotionDelta == nil {
		t.Errorf("expected a non-nil root-motion delta")
	}
	if root.updates != 1 {
		t.Errorf("expected the root node to have been updated once, got %d", root.updates)
	}
}

// Unbound parameter IDs are silently ignored rather than erroring.
func TestGraphInstanceSetParameterIgnoresUnbound(t *testing.T) {
	arena := NewArena()
	root := newFakeNode(1)
	rootIdx := arena.Add(root)
	skel := newTestSkeleton()
	g := NewGraphInstance(arena, rootIdx, skel, 8, 4)
	g.Initialize(0)

	g.SetParameter("not-bound", Value{Type: ValueFloat, Float: 1})

	world := lin.NewT()
	result := g.Tick(1.0/60.0, world)
	if result.Pose == nil {
		t.Fatal("expected the tick to still succeed")
	}
}

// A bound parameter's value is visible to the node graph via its
// ExternalParameterNode as soon as SetParameter returns.
func TestGraphInstanceBindParameterRoundTrips(t *testing.T) {
	arena := NewArena()
	param := &ExternalParameterNode{}
	root := newFakeNode(1)
	rootIdx := arena.Add(root)
	skel := newTestSkeleton()
	g := NewGraphInstance(arena, rootIdx, skel, 8, 4)
	g.BindParameter("speed", param)
	g.Initialize(0)

	g.SetParameter("speed", Value{Type: ValueFloat, Float: 2.5})
	if got := param.Evaluate(nil).Float; got != 2.5 {
		t.Errorf("expected bound parameter to read back 2.5, got %f", got)
	}
}
