// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package pose

import (
	"testing"

	"github.com/gazed/animgraph/math/lin"
	"github.com/gazed/animgraph/resource"
)

func testSkeleton() *resource.InMemorySkeleton {
	return &resource.InMemorySkeleton{
		Parents: []int{-1, 0, 1},
		Reference: []*lin.T{
			lin.NewT(),
			lin.NewT().SetLoc(0, 1, 0),
			lin.NewT().SetLoc(0, 1, 0),
		},
	}
}

func TestPoolAcquireRelease(t *testing.T) {
	skel := testSkeleton()
	pool := NewPool(skel, 4)
	a := pool.Acquire()
	b := pool.Acquire()
	if a == b {
		t.Fatal("expected distinct buffer indices")
	}
	if pool.InUseCount() != 2 {
		t.Fatalf("expected 2 in use, got %d", pool.InUseCount())
	}
	pool.Release(a)
	pool.Release(b)
	if pool.InUseCount() != 0 {
		t.Fatalf("expected 0 in use after release, got %d", pool.InUseCount())
	}
}

func TestPoolGrowsBeyondSize(t *testing.T) {
	skel := testSkeleton()
	pool := NewPool(skel, 1)
	idxs := []int{pool.Acquire(), pool.Acquire(), pool.Acquire()}
	seen := map[int]bool{}
	for _, i := range idxs {
		if seen[i] {
			t.Fatalf("duplicate buffer index %d", i)
		}
		seen[i] = true
	}
}

func TestCachedPoseLifecycle(t *testing.T) {
	skel := testSkeleton()
	pool := NewPool(skel, 4)
	id := pool.CreateCached()
	if pool.GetCached(id) == nil {
		t.Fatal("expected a live cached pose")
	}
	pool.DestroyCached(id)
	if pool.GetCached(id) != nil {
		t.Fatal("expected cached pose to be gone after destroy")
	}
}

// Blend weight extremes must equal one input bone-for-bone (spec.md §8).
func TestLocalBlendWeightExtremes(t *testing.T) {
	skel := testSkeleton()
	source, target, result := New(skel), New(skel), New(skel)
	source.Reset(ReferencePose)
	target.Reset(ReferencePose)
	target.Bones[1].SetLoc(5, 5, 5)

	LocalBlend(source, target, 0, nil, result)
	if !result.Bones[1].Eq(source.Bones[1]) {
		t.Errorf("weight=0 should equal source bone-for-bone")
	}

	LocalBlend(source, target, 1, nil, result)
	if !result.Bones[1].Eq(target.Bones[1]) {
		t.Errorf("weight=1 should equal target bone-for-bone")
	}
}

func TestAdditiveBlendZeroWeightIsBase(t *testing.T) {
	skel := testSkeleton()
	base, additive, result := New(skel), New(skel), New(skel)
	base.Reset(ReferencePose)
	additive.Reset(AdditivePose)
	additive.Bones[1].SetLoc(1, 1, 1)

	AdditiveBlend(base, additive, 0, nil, result)
	if !result.Bones[1].Eq(base.Bones[1]) {
		t.Errorf("weight=0 additive blend should equal base bone-for-bone")
	}
}

func TestGlobalBlendRequiresMask(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected GlobalBlend to panic without a mask")
		}
	}()
	skel := testSkeleton()
	base, layer, result := New(skel), New(skel), New(skel)
	GlobalBlend(base, layer, 0.5, nil, result)
}

func TestBlendRootMotionDeltasIgnoreModes(t *testing.T) {
	source := lin.NewT().SetLoc(1, 0, 0)
	target := lin.NewT().SetLoc(0, 0, 1)

	if got := BlendRootMotionDeltas(source, target, 0.5, RootMotionIgnoreSource); !got.Eq(target) {
		t.Errorf("IgnoreSource should return target, got %+v", got)
	}
	if got := BlendRootMotionDeltas(source, target, 0.5, RootMotionIgnoreTarget); !got.Eq(source) {
		t.Errorf("IgnoreTarget should return source, got %+v", got)
	}
}
