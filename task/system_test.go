// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package task

import (
	"testing"

	"github.com/gazed/animgraph/math/lin"
	"github.com/gazed/animgraph/pose"
	"github.com/gazed/animgraph/resource"
)

func testSkeleton() *resource.InMemorySkeleton {
	return &resource.InMemorySkeleton{
		Parents: []int{-1, 0},
		Reference: []*lin.T{
			lin.NewT(),
			lin.NewT().SetLoc(0, 1, 0),
		},
	}
}

func newTestSystem() *System {
	skel := testSkeleton()
	return NewSystem(skel, pose.NewPool(skel, 4), pose.NewMaskPool(skel.BoneCount(), 2))
}

func TestPrePhysicsOnlyExecutesPrePhysicsTasks(t *testing.T) {
	sys := newTestSystem()
	a := sys.RegisterDefaultPose(0, pose.ReferencePose, PrePhysics)
	b := sys.RegisterDefaultPose(1, pose.ZeroPose, PostPhysics)

	sys.UpdatePrePhysics()
	if !sys.executed[a] {
		t.Error("expected pre-physics task to have executed")
	}
	if sys.executed[b] {
		t.Error("did not expect post-physics task to have executed yet")
	}

	sys.UpdatePostPhysics()
	if !sys.executed[b] {
		t.Error("expected post-physics task to execute after the barrier")
	}
}

func TestBlendConsumesAndReleasesInputs(t *testing.T) {
	sys := newTestSystem()
	a := sys.RegisterDefaultPose(0, pose.ReferencePose, PrePhysics)
	b := sys.RegisterDefaultPose(1, pose.ZeroPose, PrePhysics)
	blend := sys.RegisterBlend(2, a, b, 0.5, nil, PrePhysics)

	sys.UpdatePrePhysics()
	result := sys.Result(blend)
	if result == nil {
		t.Fatal("expected a blended result")
	}
	if sys.pool.InUseCount() != 1 {
		t.Fatalf("expected only the final buffer in use, got %d", sys.pool.InUseCount())
	}
	sys.ReleaseResult(blend)
	if sys.pool.InUseCount() != 0 {
		t.Fatalf("expected 0 buffers in use after releasing the final result, got %d", sys.pool.InUseCount())
	}
}

func TestCachedPoseWritePassesThroughAndSurvivesConsumerRelease(t *testing.T) {
	sys := newTestSystem()
	src := sys.RegisterDefaultPose(0, pose.ReferencePose, PrePhysics)
	id := sys.pool.CreateCached()
	write := sys.RegisterCachedPoseWrite(1, src, id, PrePhysics)

	sys.UpdatePrePhysics()
	if sys.Result(write) == nil {
		t.Fatal("expected a pass-through result")
	}
	if sys.pool.GetCached(id) == nil {
		t.Fatal("expected the cached slot to hold a copy")
	}
	if sys.pool.InUseCount() != 1 {
		t.Fatalf("expected the aliased buffer still in use, got %d", sys.pool.InUseCount())
	}
}

func TestDependencyCycleFallsBackToReferencePose(t *testing.T) {
	sys := newTestSystem()
	post := sys.RegisterDefaultPose(0, pose.ZeroPose, PostPhysics)
	sys.register(Task{Kind: Blend, Stage: PrePhysics, Dependencies: []int{post}, SourceBuffer: post, TargetBuffer: post, Weight: 0.5})

	sys.UpdatePrePhysics()
	if sys.Len() != 1 {
		t.Fatalf("expected fallback to discard the tick's tasks down to one, got %d", sys.Len())
	}
	if sys.Task(0).Kind != DefaultPose {
		t.Errorf("expected the fallback task to be a DefaultPose, got %v", sys.Task(0).Kind)
	}
	if sys.Result(0).State != pose.ReferencePose {
		t.Errorf("expected the fallback result to be the reference pose")
	}
}

func TestRegisterLogsNonTopologicalDependency(t *testing.T) {
	sys := newTestSystem()
	// Registering a task whose dependency index is >= its own index
	// should not panic; System logs a warning and proceeds.
	idx := sys.register(Task{Kind: Blend, Stage: PrePhysics, Dependencies: []int{5}})
	if idx != 0 {
		t.Fatalf("expected index 0, got %d", idx)
	}
}
