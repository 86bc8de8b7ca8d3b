// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import (
	"github.com/gazed/animgraph/clip"
	"github.com/gazed/animgraph/math/lin"
	"github.com/gazed/animgraph/pose"
	"github.com/gazed/animgraph/task"
)

// WarpSectionType classifies a target-warp section's degrees of freedom
// (spec.md §4.12).
type WarpSectionType int

// Warp section types.
const (
	WarpRotationOnly WarpSectionType = iota
	WarpFull
)

// WarpAlgorithm selects the translation curve a full-warp section
// interpolates along.
type WarpAlgorithm int

// Warp translation algorithms.
const (
	WarpHermite WarpAlgorithm = iota
	WarpBezier
	WarpFeaturePreserving
)

// WarpEvent is a clip-authored marker delimiting one warp section; clips
// carry these as ordinary events whose Payload is a WarpEvent (spec.md
// §4.12 point 2).
type WarpEvent struct {
	StartFrame, EndFrame int
	Type                 WarpSectionType
	Algorithm            WarpAlgorithm
}

// WarpSamplingMode selects whether a TargetWarpNode verifies its warped
// output against the world each tick.
type WarpSamplingMode int

// Warp sampling modes.
const (
	WarpAccurate WarpSamplingMode = iota
	WarpInaccurate
)

// warpFrame is the precomputed, clip-relative warped root transform at one
// frame boundary.
type warpFrame struct {
	transform *lin.T
}

type warpSection struct {
	WarpEvent
	frames []warpFrame // one entry per frame in [StartFrame,EndFrame].
}

// TargetWarpNode reshapes a clip's root motion so it reaches a world-space
// target by the time the clip ends, while preserving the clip's original
// motion shape (spec.md §4.12).
type TargetWarpNode struct {
	BaseNode

	Clip           *clip.AnimationClip
	Target         ValueNode // evaluates to ValueTarget.
	Mode           WarpSamplingMode
	ErrorThreshold float64
	UpdateTarget   bool // re-run setup whenever Target's value changes.

	previousTime, currentTime float64

	target   *lin.T
	lastTarget *lin.T
	sections []warpSection
	valid    bool
	fellBack bool // permanently dropped to Inaccurate after an error-threshold violation.
}

// NewTargetWarpNode wraps c, warping toward target.
func NewTargetWarpNode(c *clip.AnimationClip, target ValueNode, mode WarpSamplingMode, errorThreshold float64) *TargetWarpNode {
	n := &TargetWarpNode{Clip: c, Target: target, Mode: mode, ErrorThreshold: errorThreshold}
	if c != nil {
		n.duration = c.Duration()
		n.sync = c.SyncTrack()
	}
	return n
}

// Initialize resets the playhead and runs warp setup.
func (n *TargetWarpNode) Initialize(ctx *GraphContext, initialTime float64) {
	n.isInitialized = true
	n.previousTime = clamp01(initialTime)
	n.currentTime = n.previousTime
	n.fellBack = false
	n.refreshTarget(ctx)
	n.setup(ctx)
}

// Shutdown marks the node uninitialized.
func (n *TargetWarpNode) Shutdown(ctx *GraphContext) { n.isInitialized = false }

// DeactivateBranch is a no-op: a target-warp node owns no cached buffers.
func (n *TargetWarpNode) DeactivateBranch(ctx *GraphContext) {}

func (n *TargetWarpNode) refreshTarget(ctx *GraphContext) {
	n.valid = false
	if n.Target == nil {
		return
	}
	v := n.Target.Evaluate(ctx)
	if v.Type != ValueTarget || !v.Bool {
		return
	}
	n.lastTarget = n.target
	t := v.Target
	n.target = &t
	n.valid = true
}

// setup parses warp events into ordered sections and precomputes each
// section's per-frame warped transform (spec.md §4.12 setup steps 2-4).
func (n *TargetWarpNode) setup(ctx *GraphContext) {
	n.sections = nil
	if n.Clip == nil || !n.valid {
		return
	}
	events := n.Clip.GetEventsForRange(0, n.Clip.Duration(), nil)
	var marks []WarpEvent
	for _, e := range events {
		if we, ok := e.Payload.(WarpEvent); ok {
			marks = append(marks, we)
		}
	}
	if len(marks) == 0 {
		return
	}

	startFrame := n.Clip.FrameTimeFromPercentage(clamp01(n.currentTime)).Frame
	for _, m := range marks {
		if m.EndFrame <= startFrame {
			continue // dropped: the clip started after this section ended.
		}
		if m.StartFrame < startFrame {
			m.StartFrame = startFrame // shift the first relevant section's start.
		}
		n.sections = append(n.sections, warpSection{WarpEvent: m})
	}
	if len(n.sections) == 0 {
		return
	}

	n.precomputeSections(ctx)
}

// precomputeSections fills each section's per-frame warped transform:
// forward composition of per-frame clip-local root deltas from the
// section's start, backward composition from the target anchoring the
// final section's end (spec.md §4.12 step 4).
func (n *TargetWarpNode) precomputeSections(ctx *GraphContext) {
	dur := n.Clip.Duration()
	numFrames := n.Clip.NumFrames()
	if numFrames <= 1 || dur <= 0 {
		return
	}
	frameTime := dur / float64(numFrames-1)

	// Forward fill: cumulative delta from clip-origin (identity) to every
	// frame boundary covered by any section.
	forward := make([]*lin.T, numFrames)
	forward[0] = lin.NewT()
	for i := 1; i < numFrames; i++ {
		delta := n.Clip.GetRootMotionDelta(float64(i-1)*frameTime, float64(i)*frameTime)
		t := lin.NewT()
		t.Mult(forward[i-1], delta)
		forward[i] = t
	}

	lastIdx := len(n.sections) - 1
	for si := range n.sections {
		sec := &n.sections[si]
		s, e := sec.StartFrame, sec.EndFrame
		if s < 0 {
			s = 0
		}
		if e >= numFrames {
			e = numFrames - 1
		}
		if e <= s {
			continue
		}
		originLoc := forward[s].Loc
		sectionEndLoc := forward[e].Loc
		if si == lastIdx {
			// Only the final section is responsible for actually landing
			// on the target; earlier sections keep their natural endpoint
			// so the clip's original shape carries through (spec.md
			// §4.12 step 4).
			sectionEndLoc = n.target.Loc
		}
		totalLen := (&lin.V3{}).Sub(forward[e].Loc, originLoc).Len()
		yawDelta := 0.0
		if sec.Type == WarpRotationOnly {
			yawDelta = rotationOnlyYawDelta(forward[s], forward[e], n.target)
		}

		sec.frames = make([]warpFrame, e-s+1)
		for i := s; i <= e; i++ {
			progress := 0.0
			if totalLen > 1e-9 {
				progress = (&lin.V3{}).Sub(forward[i].Loc, originLoc).Len() / totalLen
			} else if e > s {
				progress = float64(i-s) / float64(e-s)
			}
			warped := lin.NewT()
			switch sec.Type {
			case WarpRotationOnly:
				warped.Loc.Set(forward[i].Loc)
				yaw := &lin.Q{}
				yaw.SetAa(0, 1, 0, yawDelta*progress)
				warped.Rot.Mult(yaw, forward[i].Rot)
			default: // WarpFull
				eased := warpEase(sec.Algorithm, progress)
				warped.Loc.Lerp(originLoc, sectionEndLoc, eased)
				warped.Rot.Set(forward[i].Rot)
			}
			sec.frames[i-s] = warpFrame{transform: warped}
		}
	}
}

// rotationOnlyYawDelta returns the world-up-axis rotation a rotation-only
// section must add so its end direction points from the section's start
// toward target, derived by comparing the clip's own end-facing yaw to the
// yaw the start→target vector implies (spec.md §4.12 step 4).
func rotationOnlyYawDelta(start, end, target *lin.T) float64 {
	desired := lin.Atan2F(target.Loc.X-start.Loc.X, target.Loc.Z-start.Loc.Z)
	fwd := (&lin.V3{}).Forward(end.Rot)
	original := lin.Atan2F(fwd.X, fwd.Z)
	return desired - original
}

// warpEase maps a section-local progress in [0,1] to an eased progress
// along the chosen translation curve (spec.md §4.12 step 4's Hermite/
// Bezier/FeaturePreserving choice, simplified to a monotonic ease curve
// per algorithm since the exact control-point authoring format isn't
// specified).
func warpEase(alg WarpAlgorithm, t float64) float64 {
	switch alg {
	case WarpHermite:
		return t * t * (3 - 2*t) // smoothstep.
	case WarpBezier:
		return t * t * t * (t*(t*6-15) + 10) // smootherstep.
	default: // WarpFeaturePreserving
		return t // preserve the clip's own displacement progress exactly.
	}
}

// Update advances the playhead and reports the warped root-motion delta
// for this tick, verifying against the world in Accurate mode and falling
// back permanently to Inaccurate on a threshold violation (spec.md §4.12
// sampling).
func (n *TargetWarpNode) Update(ctx *GraphContext, dt float64, syncRange *clip.SyncTrackTimeRange) PoseNodeResult {
	n.MarkActive(ctx.UpdateID)
	ctx.CurrentNodeIndex = n.SelfIndex()
	if n.Clip == nil {
		ctx.Logger.Warn("target-warp node has no clip resource, degrading to reference pose", "source_node", ctx.CurrentNodeIndex)
		idx := ctx.Tasks.RegisterDefaultPose(ctx.CurrentNodeIndex, pose.ReferencePose, task.PrePhysics)
		return PoseNodeResult{TaskIndex: idx, RootMotionDelta: lin.NewT()}
	}

	if n.UpdateTarget {
		n.refreshTarget(ctx)
		if n.lastTarget == nil || !n.target.Aeq(n.lastTarget) {
			n.setup(ctx)
		}
	}

	prev := n.currentTime
	step := 0.0
	if n.Clip.Duration() > 0 {
		step = dt / n.Clip.Duration()
	}
	cur := clamp01(prev + step)
	n.previousTime, n.currentTime = prev, cur

	ft := n.Clip.FrameTimeFromPercentage(cur)
	taskIdx := ctx.Tasks.RegisterSample(ctx.CurrentNodeIndex, n.Clip, ft, false, task.PrePhysics)

	delta := n.warpedDelta(ctx, prev, cur)

	events := n.Clip.GetEventsForRange(prev*n.Clip.Duration(), cur*n.Clip.Duration(), nil)
	start := ctx.Events.Len()
	for _, e := range events {
		if _, isWarp := e.Payload.(WarpEvent); isWarp {
			continue
		}
		ctx.Events.Append(SampledEvent{Payload: e.Payload, Weight: 1, Start: e.Start, End: e.End})
	}
	evRange := ctx.Events.Range(start, ctx.Events.Len())

	return PoseNodeResult{TaskIndex: taskIdx, RootMotionDelta: delta, Events: evRange}
}

// warpedDelta returns the tick's root-motion delta: warped when setup
// succeeded, the clip's own otherwise. In WarpAccurate mode (until it falls
// back), the delta is built from the entity's actual world transform to the
// expected warped pose at cur, so the entity is pulled back onto the warped
// path each tick rather than merely accumulating warped deltas on top of
// whatever drift has already happened (spec.md §4.12 "Accurate").
func (n *TargetWarpNode) warpedDelta(ctx *GraphContext, prev, cur float64) *lin.T {
	if len(n.sections) == 0 || !n.valid {
		return n.Clip.GetRootMotionDelta(prev*n.Clip.Duration(), cur*n.Clip.Duration())
	}

	b := n.warpedTransformAt(cur)
	if b == nil {
		return n.Clip.GetRootMotionDelta(prev*n.Clip.Duration(), cur*n.Clip.Duration())
	}

	if !n.fellBack && n.Mode == WarpAccurate && ctx.WorldTransform != nil {
		expected := n.warpedTransformAt(prev)
		if expected != nil && !n.withinThreshold(ctx.WorldTransform, expected) {
			ctx.Logger.Warn("target-warp accurate sampling exceeded error threshold, falling back to inaccurate", "source_node", ctx.CurrentNodeIndex)
			n.fellBack = true
		}
		if !n.fellBack {
			return transformDelta(ctx.WorldTransform, b)
		}
	}

	a := n.warpedTransformAt(prev)
	if a == nil {
		return n.Clip.GetRootMotionDelta(prev*n.Clip.Duration(), cur*n.Clip.Duration())
	}
	return transformDelta(a, b)
}

func (n *TargetWarpNode) withinThreshold(world, expected *lin.T) bool {
	return world.Loc.Dist(expected.Loc) <= n.ErrorThreshold
}

// transformDelta returns the delta carrying a to b, expressed relative to
// a's own orientation — the convention PoseNodeResult.RootMotionDelta uses
// throughout this package.
func transformDelta(a, b *lin.T) *lin.T {
	delta := lin.NewT()
	aInvRot := &lin.Q{}
	aInvRot.Inv(a.Rot)
	relLoc := &lin.V3{}
	relLoc.Sub(b.Loc, a.Loc)
	relLoc.MultQ(relLoc, aInvRot)
	delta.Loc.Set(relLoc)
	delta.Rot.Mult(aInvRot, b.Rot)
	return delta
}

// warpedTransformAt interpolates the precomputed per-frame warped
// transform at clip percentage pct, nil if pct falls outside every section.
func (n *TargetWarpNode) warpedTransformAt(pct float64) *lin.T {
	ft := n.Clip.FrameTimeFromPercentage(pct)
	for _, sec := range n.sections {
		if ft.Frame < sec.StartFrame || ft.Frame >= sec.EndFrame || len(sec.frames) == 0 {
			continue
		}
		i := ft.Frame - sec.StartFrame
		if i+1 >= len(sec.frames) {
			return sec.frames[len(sec.frames)-1].transform
		}
		result := lin.NewT()
		result.Blend(sec.frames[i].transform, sec.frames[i+1].transform, ft.Pct)
		return result
	}
	return nil
}
