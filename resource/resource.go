// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package resource defines the external-collaborator interfaces the
// animation graph depends on but does not own: skeletons, raw clip data,
// bone masks, and the loader that resolves them by ID. Graph compilation,
// on-disk formats, and resource loading itself are out of scope (spec.md
// §1) — this package only specifies the shapes those collaborators hand
// back to the graph.
package resource

import "github.com/gazed/animgraph/math/lin"

// Skeleton describes a rig: bone count, parent links for walking local
// transforms into global space, an optional per-bone LOD rank, and the
// reference pose used whenever a node degrades (§7 ResourceUnavailable).
type Skeleton interface {
	BoneCount() int
	ParentIndex(bone int) int        // -1 for a root bone.
	LODRank(bone int) int            // bones are truncated from the highest rank down.
	ReferenceTransform(bone int) *lin.T
}

// InMemorySkeleton is a small reference Skeleton for tests and embedders
// that already have their rig data in memory.
type InMemorySkeleton struct {
	Parents   []int
	LODRanks  []int
	Reference []*lin.T
}

// BoneCount returns the number of bones in the skeleton.
func (s *InMemorySkeleton) BoneCount() int { return len(s.Parents) }

// ParentIndex returns bone's parent, or -1 if bone is a root.
func (s *InMemorySkeleton) ParentIndex(bone int) int { return s.Parents[bone] }

// LODRank returns bone's LOD rank, defaulting to 0 (always present) when unset.
func (s *InMemorySkeleton) LODRank(bone int) int {
	if bone < len(s.LODRanks) {
		return s.LODRanks[bone]
	}
	return 0
}

// ReferenceTransform returns bone's local reference-pose transform.
func (s *InMemorySkeleton) ReferenceTransform(bone int) *lin.T { return s.Reference[bone] }

// BoneMask is a named set of per-bone weights over a skeleton, e.g.
// "UpperBodyOnly", supplied by the resource loader.
type BoneMask struct {
	Name    string
	Weights []float64 // one per bone, each in [0,1].
}

// Weight returns bone's mask weight, or 0 if bone is out of range.
func (m *BoneMask) Weight(bone int) float64 {
	if bone < 0 || bone >= len(m.Weights) {
		return 0
	}
	return m.Weights[bone]
}

// Loader resolves skeletons, clip data, and bone masks by ID. The graph
// never reads files directly; an embedder supplies a Loader implementation.
type Loader interface {
	LoadSkeleton(id string) (Skeleton, error)
	LoadClip(id string) (*ClipData, error)
	LoadBoneMask(id string) (*BoneMask, error)
}
