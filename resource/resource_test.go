// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package resource

import (
	"testing"

	"github.com/gazed/animgraph/math/lin"
)

func TestInMemorySkeletonBasics(t *testing.T) {
	s := &InMemorySkeleton{
		Parents:   []int{-1, 0, 1},
		LODRanks:  []int{0, 1},
		Reference: []*lin.T{lin.NewT(), lin.NewT(), lin.NewT()},
	}

	if s.BoneCount() != 3 {
		t.Errorf("expected 3 bones, got %d", s.BoneCount())
	}
	if s.ParentIndex(0) != -1 {
		t.Errorf("expected bone 0 to be a root, got parent %d", s.ParentIndex(0))
	}
	if s.ParentIndex(2) != 1 {
		t.Errorf("expected bone 2's parent to be 1, got %d", s.ParentIndex(2))
	}

	// LODRank defaults to 0 for bones beyond the supplied slice.
	if s.LODRank(1) != 1 {
		t.Errorf("expected bone 1's LOD rank 1, got %d", s.LODRank(1))
	}
	if s.LODRank(2) != 0 {
		t.Errorf("expected bone 2's LOD rank to default to 0, got %d", s.LODRank(2))
	}

	if s.ReferenceTransform(1) != s.Reference[1] {
		t.Errorf("expected ReferenceTransform to return the stored pointer unchanged")
	}
}

func TestBoneMaskWeightOutOfRange(t *testing.T) {
	m := &BoneMask{Name: "UpperBody", Weights: []float64{1, 0.5}}

	if got := m.Weight(0); got != 1 {
		t.Errorf("expected bone 0 weight 1, got %f", got)
	}
	if got := m.Weight(1); got != 0.5 {
		t.Errorf("expected bone 1 weight 0.5, got %f", got)
	}
	if got := m.Weight(-1); got != 0 {
		t.Errorf("expected an out-of-range negative bone to report 0, got %f", got)
	}
	if got := m.Weight(2); got != 0 {
		t.Errorf("expected an out-of-range positive bone to report 0, got %f", got)
	}
}
