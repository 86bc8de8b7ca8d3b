// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package pose

import "github.com/gazed/animgraph/math/lin"

// RootMotionBlendMode selects how two root-motion deltas combine.
type RootMotionBlendMode int

// Root-motion blend modes (spec.md §4.3).
const (
	RootMotionBlend RootMotionBlendMode = iota
	RootMotionAdditive
	RootMotionIgnoreSource
	RootMotionIgnoreTarget
)

// LocalBlend blends source toward target at weight into result, per-bone
// spherical rotation blend and linear translation/scale blend, optionally
// attenuated per-bone by mask. weight <= 0, and weight >= 1 with no mask,
// short-circuit to an exact copy of source/target respectively, avoiding
// quaternion negation artifacts at the extremes (spec.md §4.3).
func LocalBlend(source, target *Pose, weight float64, mask *Mask, result *Pose) {
	if weight <= 0 {
		result.CopyFrom(source)
		return
	}
	if weight >= 1 && mask == nil {
		result.CopyFrom(target)
		return
	}
	for bone := range result.Bones {
		w := weight
		if mask != nil {
			w *= mask.Weight(bone)
		}
		blendBone(source, target, bone, w, result)
	}
	result.State = Normal
}

func blendBone(source, target *Pose, bone int, w float64, result *Pose) {
	if w <= 0 {
		result.Bones[bone].Set(source.Bones[bone])
		result.Scales[bone] = source.Scales[bone]
		return
	}
	if w >= 1 {
		result.Bones[bone].Set(target.Bones[bone])
		result.Scales[bone] = target.Scales[bone]
		return
	}
	result.Bones[bone].Blend(source.Bones[bone], target.Bones[bone], w)
	result.Scales[bone] = lerpScale(source.Scales[bone], target.Scales[bone], w)
}

func lerpScale(a, b [3]float64, t float64) [3]float64 {
	return [3]float64{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
		a[2] + (b[2]-a[2])*t,
	}
}

// AdditiveBlend layers additive onto base at weight: rotation is
// slerp(identity, additiveRot, w) ∘ baseRot; translation/scale combine by
// linear multiply-add (spec.md §4.3).
func AdditiveBlend(base, additive *Pose, weight float64, mask *Mask, result *Pose) {
	if weight <= 0 {
		result.CopyFrom(base)
		return
	}
	identity := &lin.Q{X: 0, Y: 0, Z: 0, W: 1}
	for bone := range result.Bones {
		w := weight
		if mask != nil {
			w *= mask.Weight(bone)
		}
		scaledRot := &lin.Q{}
		scaledRot.Slerp(identity, additive.Bones[bone].Rot, w)
		rot := &lin.Q{}
		rot.Mult(scaledRot, base.Bones[bone].Rot)

		loc := &lin.V3{}
		addLoc := &lin.V3{}
		addLoc.Scale(additive.Bones[bone].Loc, w)
		loc.Add(base.Bones[bone].Loc, addLoc)

		result.Bones[bone].Loc.Set(loc)
		result.Bones[bone].Rot.Set(rot)

		baseScale, addScale := base.Scales[bone], additive.Scales[bone]
		result.Scales[bone] = [3]float64{
			baseScale[0] * (1 + (addScale[0]-1)*w),
			baseScale[1] * (1 + (addScale[1]-1)*w),
			baseScale[2] * (1 + (addScale[2]-1)*w),
		}
	}
	result.State = Normal
}

// GlobalBlend converts base and layer rotations to global space, blends
// per-bone at weight*mask, and converts back to local. Requires mask
// (non-nil); undefined for additive inputs (spec.md §4.3). Bones must be
// ordered so a parent's index precedes its children's.
func GlobalBlend(base, layer *Pose, weight float64, mask *Mask, result *Pose) {
	if mask == nil {
		panic("pose.GlobalBlend: requires a non-nil bone mask")
	}
	globals := make([]*lin.T, len(result.Bones))
	for bone := range result.Bones {
		w := weight * mask.Weight(bone)
		baseGlobal := base.GlobalTransform(bone)
		layerGlobal := layer.GlobalTransform(bone)
		blended := lin.NewT()
		blended.Blend(baseGlobal, layerGlobal, clamp01(w))
		globals[bone] = blended

		parent := result.Skeleton.ParentIndex(bone)
		local := lin.NewT()
		if parent < 0 {
			local.Set(blended)
		} else {
			local.Mult(inverseT(globals[parent]), blended)
		}
		result.Bones[bone].Set(local)
		result.Scales[bone] = lerpScale(base.Scales[bone], layer.Scales[bone], clamp01(w))
	}
	result.State = Normal
}

// BlendRootMotionDeltas combines two root-motion deltas per mode.
func BlendRootMotionDeltas(source, target *lin.T, weight float64, mode RootMotionBlendMode) *lin.T {
	switch mode {
	case RootMotionIgnoreSource:
		result := lin.NewT()
		result.Set(target)
		return result
	case RootMotionIgnoreTarget:
		result := lin.NewT()
		result.Set(source)
		return result
	case RootMotionAdditive:
		composed := lin.NewT()
		composed.Mult(source, target)
		result := lin.NewT()
		result.Blend(source, composed, clamp01(weight))
		return result
	default: // RootMotionBlend
		result := lin.NewT()
		result.Blend(source, target, clamp01(weight))
		return result
	}
}

// inverseT returns the inverse of transform t: rotation's conjugate and
// the negated translation rotated into the inverse's frame.
func inverseT(t *lin.T) *lin.T {
	invRot := &lin.Q{}
	invRot.Inv(t.Rot)
	invLoc := &lin.V3{}
	invLoc.Scale(t.Loc, -1)
	invLoc.MultQ(invLoc, invRot)
	return &lin.T{Loc: invLoc, Rot: invRot}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
