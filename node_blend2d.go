// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import (
	"sort"

	"github.com/gazed/animgraph/clip"
	"github.com/gazed/animgraph/pose"
	"github.com/gazed/animgraph/task"
)

// BlendSpacePoint is one source's position in the 2-D parameter space.
type BlendSpacePoint struct {
	X, Y     float64
	InputIdx int
}

// BlendSpaceTriangle indexes three BlendSpacePoints forming a
// triangulation cell.
type BlendSpaceTriangle struct {
	P0, P1, P2 int
}

// ParameterizedBlend2D ("blend space") selects up to three sources from
// a triangulated 2-D parameter space and blends them (spec.md §4.9).
type ParameterizedBlend2D struct {
	BaseNode

	Sources     []Node
	ParamX      ValueNode
	ParamY      ValueNode
	Points      []BlendSpacePoint
	Triangles   []BlendSpaceTriangle
	HullIndices []int // ordered indices into Points forming the convex hull.
}

// Initialize cascades to every source.
func (n *ParameterizedBlend2D) Initialize(ctx *GraphContext, initialTime float64) {
	n.isInitialized = true
	for _, s := range n.Sources {
		s.Initialize(ctx, initialTime)
	}
}

// Shutdown cascades to every source.
func (n *ParameterizedBlend2D) Shutdown(ctx *GraphContext) {
	for _, s := range n.Sources {
		s.Shutdown(ctx)
	}
	n.isInitialized = false
}

// DeactivateBranch cascades to every source.
func (n *ParameterizedBlend2D) DeactivateBranch(ctx *GraphContext) {
	for _, s := range n.Sources {
		s.DeactivateBranch(ctx)
	}
}

// barycentric returns (u,v,w) for point p in the triangle a,b,c; w is
// implicit as 1-u-v (callers reconstruct it).
func barycentric(px, py float64, a, b, c BlendSpacePoint) (u, v float64, ok bool) {
	v0x, v0y := b.X-a.X, b.Y-a.Y
	v1x, v1y := c.X-a.X, c.Y-a.Y
	v2x, v2y := px-a.X, py-a.Y
	d00 := v0x*v0x + v0y*v0y
	d01 := v0x*v1x + v0y*v1y
	d11 := v1x*v1x + v1y*v1y
	d20 := v2x*v0x + v2y*v0y
	d21 := v2x*v1x + v2y*v1y
	denom := d00*d11 - d01*d01
	if denom == 0 {
		return 0, 0, false
	}
	uu := (d11*d20 - d01*d21) / denom
	vv := (d00*d21 - d01*d20) / denom
	return uu, vv, true
}

// closestPointOnSegment projects (px,py) onto segment a-b, returning the
// scalar parameter t in [0,1] and the squared distance to that point.
func closestPointOnSegment(px, py float64, a, b BlendSpacePoint) (t, distSq float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		t = 0
	} else {
		t = clamp01(((px-a.X)*dx + (py-a.Y)*dy) / lenSq)
	}
	cx, cy := a.X+t*dx, a.Y+t*dy
	ddx, ddy := px-cx, py-cy
	return t, ddx*ddx + ddy*ddy
}

// Update locates (x,y) within the triangulation (or projects it onto the
// nearest hull edge), updates the up-to-three engaged sources, and
// registers at most two Blend tasks chained to combine them
// (spec.md §4.9).
func (n *ParameterizedBlend2D) Update(ctx *GraphContext, dt float64, syncRange *clip.SyncTrackTimeRange) PoseNodeResult {
	n.MarkActive(ctx.UpdateID)
	ctx.CurrentNodeIndex = n.SelfIndex()
	if len(n.Sources) == 0 {
		idx := ctx.Tasks.RegisterDefaultPose(ctx.CurrentNodeIndex, pose.ReferencePose, task.PrePhysics)
		return PoseNodeResult{TaskIndex: idx}
	}
	x, y := 0.0, 0.0
	if n.ParamX != nil {
		x = n.ParamX.Evaluate(ctx).Float
	}
	if n.ParamY != nil {
		y = n.ParamY.Evaluate(ctx).Float
	}

	idx0, idx1, idx2, w0, w1, w2 := n.locate(x, y)

	engaged := map[int]bool{idx0: true}
	if w1 > 0 {
		engaged[idx1] = true
	}
	if w2 > 0 {
		engaged[idx2] = true
	}
	results := map[int]PoseNodeResult{}
	for i, s := range n.Sources {
		r := s.Update(ctx, dt, nil)
		if engaged[i] {
			results[i] = r
		}
	}
	ctx.CurrentNodeIndex = n.SelfIndex()
	n.duration = n.Sources[idx0].Duration()
	n.sync = n.Sources[idx0].SyncTrack()

	if w1 <= 0 {
		return results[idx0]
	}

	// First blend: idx0 toward idx1 at weight01 = w1/(w0+w1).
	weight01 := clamp01(w1 / maxF(w0+w1, 1e-9))
	firstTask := ctx.Tasks.RegisterBlend(ctx.CurrentNodeIndex, results[idx0].TaskIndex, results[idx1].TaskIndex, weight01, nil, task.PrePhysics)
	firstRM := pose.BlendRootMotionDeltas(results[idx0].RootMotionDelta, results[idx1].RootMotionDelta, weight01, pose.RootMotionBlend)
	firstEvents := ctx.Events.Merge(results[idx0].Events, results[idx1].Events)
	n.duration = blendDurationSimple(n.Sources[idx0], n.Sources[idx1], weight01)

	if w2 <= 0 {
		return PoseNodeResult{TaskIndex: firstTask, RootMotionDelta: firstRM, Events: firstEvents}
	}

	weight12 := clamp01(w2 / maxF(w0+w1+w2, 1e-9))
	task2 := ctx.Tasks.RegisterBlend(ctx.CurrentNodeIndex, firstTask, results[idx2].TaskIndex, weight12, nil, task.PrePhysics)
	secondRM := pose.BlendRootMotionDeltas(firstRM, results[idx2].RootMotionDelta, weight12, pose.RootMotionBlend)
	secondEvents := ctx.Events.Merge(firstEvents, results[idx2].Events)
	return PoseNodeResult{TaskIndex: task2, RootMotionDelta: secondRM, Events: secondEvents}
}

func blendDurationSimple(a, b Node, weight float64) float64 {
	return a.Duration() + (b.Duration()-a.Duration())*weight
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// locate finds up to three source indices and weights for point (x,y):
// three-way if inside a triangle (collapsing near a vertex), two-way if
// projected onto the nearest hull edge (spec.md §4.9 points 1-3).
func (n *ParameterizedBlend2D) locate(x, y float64) (idx0, idx1, idx2 int, w0, w1, w2 float64) {
	for _, tri := range n.Triangles {
		a, b, c := n.Points[tri.P0], n.Points[tri.P1], n.Points[tri.P2]
		u, v, ok := barycentric(x, y, a, b, c)
		if !ok {
			continue
		}
		w := 1 - u - v
		if u < -1e-6 || v < -1e-6 || w < -1e-6 {
			continue
		}
		weights := []float64{w, u, v}
		idxs := []int{a.InputIdx, b.InputIdx, c.InputIdx}
		order := []int{0, 1, 2}
		sort.Slice(order, func(i, j int) bool { return weights[order[i]] > weights[order[j]] })
		if weights[order[0]] >= 0.999 {
			return idxs[order[0]], idxs[order[0]], idxs[order[0]], 1, 0, 0
		}
		return idxs[order[0]], idxs[order[1]], idxs[order[2]], weights[order[0]], weights[order[1]], weights[order[2]]
	}

	// Outside every triangle: project onto the closest hull edge.
	if len(n.HullIndices) < 2 {
		p := n.Points[0]
		return p.InputIdx, 0, 0, 1, 0, 0
	}
	bestDist := -1.0
	var bestA, bestB BlendSpacePoint
	var bestT float64
	for i := range n.HullIndices {
		a := n.Points[n.HullIndices[i]]
		b := n.Points[n.HullIndices[(i+1)%len(n.HullIndices)]]
		t, d := closestPointOnSegment(x, y, a, b)
		if bestDist < 0 || d < bestDist {
			bestDist, bestA, bestB, bestT = d, a, b, t
		}
	}
	if bestT <= 0 {
		return bestA.InputIdx, 0, 0, 1, 0, 0
	}
	if bestT >= 1 {
		return bestB.InputIdx, 0, 0, 1, 0, 0
	}
	return bestA.InputIdx, bestB.InputIdx, 0, 1 - bestT, bestT, 0
}
