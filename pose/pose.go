// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package pose implements the skeletal pose type, its buffer pool, bone
// masks, and the blend math that combines poses (spec.md §3 Pose,
// PoseBuffer & Pool, BoneMask & Pool; §4.3 Pose Blender).
package pose

import (
	"github.com/gazed/animgraph/math/lin"
	"github.com/gazed/animgraph/resource"
)

// State tags what a Pose's transforms mean.
type State int

// Pose states.
const (
	Unset State = iota
	ReferencePose
	ZeroPose
	AdditivePose
	Normal
)

// Pose is an array of local-space bone transforms plus a state tag.
// Global transforms are computed on demand by walking parent indices; the
// root bone's parent is treated as identity.
type Pose struct {
	Skeleton resource.Skeleton
	State    State
	Bones    []*lin.T
	Scales   [][3]float64 // parallel to Bones; {1,1,1} when unused.
	lod      int           // bones with LODRank > lod are not counted as active.
}

// New allocates a Pose sized to skeleton's full bone count, set to Unset.
func New(skeleton resource.Skeleton) *Pose {
	n := skeleton.BoneCount()
	p := &Pose{Skeleton: skeleton, Bones: make([]*lin.T, n), Scales: make([][3]float64, n)}
	for i := range p.Bones {
		p.Bones[i] = lin.NewT()
		p.Scales[i] = [3]float64{1, 1, 1}
	}
	return p
}

// SetLOD records lod as the pose's level of detail: ActiveBoneCount and
// IsActiveBone count only bones whose Skeleton.LODRank is <= lod. Blends
// and clip sampling do not consult it; they still process every bone.
func (p *Pose) SetLOD(lod int) { p.lod = lod }

// ActiveBoneCount returns the number of bones whose LOD rank is within
// the pose's current LOD.
func (p *Pose) ActiveBoneCount() int {
	n := 0
	for i := range p.Bones {
		if p.Skeleton.LODRank(i) <= p.lod {
			n++
		}
	}
	return n
}

// IsActiveBone reports whether bone participates at the pose's current LOD.
func (p *Pose) IsActiveBone(bone int) bool { return p.Skeleton.LODRank(bone) <= p.lod }

// Reset tags the pose with state. ReferencePose sets every bone to the
// skeleton's reference transform; ZeroPose and AdditivePose set every bone
// to identity; Unset leaves the bones as they are.
func (p *Pose) Reset(state State) {
	p.State = state
	switch state {
	case ReferencePose:
		for i := range p.Bones {
			p.Bones[i].Set(p.Skeleton.ReferenceTransform(i))
			p.Scales[i] = [3]float64{1, 1, 1}
		}
	case ZeroPose:
		for i := range p.Bones {
			p.Bones[i].SetI()
			p.Scales[i] = [3]float64{1, 1, 1}
		}
	case AdditivePose:
		for i := range p.Bones {
			p.Bones[i].SetI()
			p.Scales[i] = [3]float64{1, 1, 1}
		}
	}
}

// CopyFrom overwrites p's bones, scales, state and LOD from src.
func (p *Pose) CopyFrom(src *Pose) {
	p.State = src.State
	p.lod = src.lod
	for i := range p.Bones {
		p.Bones[i].Set(src.Bones[i])
		p.Scales[i] = src.Scales[i]
	}
}

// LocalTransform returns bone's local transform.
func (p *Pose) LocalTransform(bone int) *lin.T { return p.Bones[bone] }

// GlobalTransform composes bone's local transform with every ancestor up
// to the skeleton root.
func (p *Pose) GlobalTransform(bone int) *lin.T {
	local := p.Bones[bone]
	parent := p.Skeleton.ParentIndex(bone)
	if parent < 0 {
		result := lin.NewT()
		result.Set(local)
		return result
	}
	parentGlobal := p.GlobalTransform(parent)
	result := lin.NewT()
	result.Mult(parentGlobal, local)
	return result
}
