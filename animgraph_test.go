// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import (
	"log/slog"

	"github.com/gazed/animgraph/clip"
	"github.com/gazed/animgraph/math/lin"
	"github.com/gazed/animgraph/pose"
	"github.com/gazed/animgraph/resource"
	"github.com/gazed/animgraph/task"
)

func newTestSkeleton() resource.Skeleton {
	return &resource.InMemorySkeleton{
		Parents:   []int{-1, 0, 1},
		Reference: []*lin.T{lin.NewT(), lin.NewT(), lin.NewT()},
	}
}

// newTestContext builds a GraphContext wired to a fresh task system and
// pools, sized for a 3-bone test skeleton.
func newTestContext(updateID uint64) *GraphContext {
	skel := newTestSkeleton()
	p := pose.NewPool(skel, 8)
	masks := pose.NewMaskPool(skel.BoneCount(), 4)
	return &GraphContext{
		UpdateID:     updateID,
		BranchState:  BranchActive,
		Tasks:        task.NewSystem(skel, p, masks),
		Pool:         p,
		Masks:        masks,
		Skeleton:     skel,
		PreviousPose: pose.New(skel),
		Events:       NewEventBuffer(16),
		Logger:       slog.Default(),
	}
}

// fakeNode is a minimal Node used to exercise composite nodes (blend,
// layer, state machine) without a real clip. It always reports a
// DefaultPose task and a fixed duration/sync track.
type fakeNode struct {
	BaseNode
	dur         float64
	sync        *clip.SyncTrack
	rootMotion  *lin.T
	updates     int
	initialTime float64

	// emitEvent, when set, makes Update append one sampled event and
	// report its range, so tests can exercise event propagation without
	// a real clip.
	emitEvent bool
}

func newFakeNode(dur float64) *fakeNode {
	return &fakeNode{dur: dur, rootMotion: lin.NewT()}
}

func (n *fakeNode) Initialize(ctx *GraphContext, initialTime float64) {
	n.isInitialized = true
	n.initialTime = initialTime
}
func (n *fakeNode) Shutdown(ctx *GraphContext)                       { n.isInitialized = false }
func (n *fakeNode) DeactivateBranch(ctx *GraphContext)               {}
func (n *fakeNode) Duration() float64 {
	if n.dur != 0 {
		return n.dur
	}
	return n.BaseNode.Duration()
}
func (n *fakeNode) SyncTrack() *clip.SyncTrack { return n.sync }

func (n *fakeNode) Update(ctx *GraphContext, dt float64, syncRange *clip.SyncTrackTimeRange) PoseNodeResult {
	n.MarkActive(ctx.UpdateID)
	ctx.CurrentNodeIndex = n.SelfIndex()
	n.updates++
	idx := ctx.Tasks.RegisterDefaultPose(ctx.CurrentNodeIndex, pose.ReferencePose, task.PrePhysics)
	result := PoseNodeResult{TaskIndex: idx, RootMotionDelta: n.rootMotion}
	if n.emitEvent {
		start := ctx.Events.Len()
		ctx.Events.Append(SampledEvent{Payload: "fake", Weight: 1, Start: 0, End: 0.1})
		result.Events = ctx.Events.Range(start, ctx.Events.Len())
	}
	return result
}
