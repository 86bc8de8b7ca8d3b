// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import (
	"log/slog"

	"github.com/gazed/animgraph/math/lin"
	"github.com/gazed/animgraph/pose"
	"github.com/gazed/animgraph/resource"
	"github.com/gazed/animgraph/task"
)

// ParameterID names an external parameter a caller writes into the graph
// each tick (spec.md §4.14 step 1).
type ParameterID string

// TickResult is what a GraphInstance reports once a tick completes.
type TickResult struct {
	Pose            *pose.Pose
	RootMotionDelta *lin.T
	Events          []SampledEvent
}

// GraphInstance owns everything a compiled graph needs to run: the node
// arena, the task system and its pose/mask pools, the previous tick's
// pose, the sampled-event buffer, and the external-parameter map
// (spec.md §4.14).
type GraphInstance struct {
	arena *Arena
	root  int

	tasks *task.System
	pool  *pose.Pool
	masks *pose.MaskPool
	skel  resource.Skeleton

	previousPose *pose.Pose
	events       *EventBuffer

	parameters map[ParameterID]*ExternalParameterNode

	skeletonLOD int
	updateID    uint64

	logger   *slog.Logger
	observer Observer
}

// NewGraphInstance wires an arena already populated by graph compilation
// (out of scope, spec.md §1) to a fresh task system and pose pools sized
// for skel.
func NewGraphInstance(arena *Arena, root int, skel resource.Skeleton, poolSize, maskPoolSize int) *GraphInstance {
	pool := pose.NewPool(skel, poolSize)
	masks := pose.NewMaskPool(skel.BoneCount(), maskPoolSize)
	g := &GraphInstance{
		arena:        arena,
		root:         root,
		tasks:        task.NewSystem(skel, pool, masks),
		pool:         pool,
		masks:        masks,
		skel:         skel,
		previousPose: pose.New(skel),
		events:       NewEventBuffer(64),
		parameters:   make(map[ParameterID]*ExternalParameterNode),
		logger:       slog.Default(),
	}
	g.previousPose.Reset(pose.ReferencePose)
	return g
}

// SetLogger overrides the default logger used by this instance and its
// task system.
func (g *GraphInstance) SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	g.logger = l
	g.tasks.SetLogger(l)
}

// SetObserver installs an optional development-only observer.
func (g *GraphInstance) SetObserver(o Observer) {
	g.observer = o
	g.tasks.SetObserver(o)
}

// SetSkeletonLOD truncates every pose node and task this instance drives
// to bones at or below lod.
func (g *GraphInstance) SetSkeletonLOD(lod int) { g.skeletonLOD = lod }

// BindParameter registers node as the value node external callers write
// id into each tick via SetParameter. Graph compilation (out of scope)
// is expected to call this once per exposed parameter.
func (g *GraphInstance) BindParameter(id ParameterID, node *ExternalParameterNode) {
	g.parameters[id] = node
}

// SetParameter writes v into the value node bound to id. Unbound IDs are
// silently ignored — a compiled graph that doesn't expose a parameter
// the caller supplies is not itself an error.
func (g *GraphInstance) SetParameter(id ParameterID, v Value) {
	if n, ok := g.parameters[id]; ok {
		n.Set(v)
	}
}

// Initialize starts the graph at the root node.
func (g *GraphInstance) Initialize(initialTime float64) {
	ctx := g.newContext(0)
	g.arena.Get(g.root).Initialize(ctx, initialTime)
}

// Shutdown tears the graph down from the root.
func (g *GraphInstance) Shutdown() {
	ctx := g.newContext(0)
	g.arena.Get(g.root).Shutdown(ctx)
}

func (g *GraphInstance) newContext(dt float64) *GraphContext {
	return &GraphContext{
		DeltaTime:   dt,
		SkeletonLOD: g.skeletonLOD,
		UpdateID:    g.updateID,
		BranchState: BranchActive,
		Tasks:       g.tasks,
		Pool:        g.pool,
		Masks:       g.masks,
		Skeleton:    g.skel,
		PreviousPose: g.previousPose,
		Events:      g.events,
		Logger:      g.logger,
		Observer:    g.observer,
	}
}

// Tick drives one full frame: parameter intake, the node-tree update
// pass, pre/post-physics task execution, and the previous-pose swap
// (spec.md §4.14). worldTransform is the entity's current world
// transform, used by root-motion-consuming nodes (e.g. target warp's
// Accurate sampling mode).
func (g *GraphInstance) Tick(dt float64, worldTransform *lin.T) TickResult {
	g.updateID++
	g.events.Reset()
	g.tasks.Reset()

	worldInverse := inverseTransform(worldTransform)

	ctx := g.newContext(dt)
	ctx.WorldTransform = worldTransform
	ctx.WorldTransformInverse = worldInverse
	ctx.CurrentNodeIndex = g.root

	result := g.arena.Get(g.root).Update(ctx, dt, nil)

	g.tasks.UpdatePrePhysics()
	g.tasks.UpdatePostPhysics()

	finalPose := g.resolveFinalPose(result.TaskIndex)

	g.previousPose.CopyFrom(finalPose)
	if result.TaskIndex != NoTask {
		g.tasks.ReleaseResult(result.TaskIndex)
	}

	if g.observer != nil {
		g.observer.OnPoseProduced(result.TaskIndex)
	}

	events := append([]SampledEvent(nil), g.events.Slice(result.Events)...)

	rootMotion := result.RootMotionDelta
	if rootMotion == nil {
		rootMotion = lin.NewT()
	}

	return TickResult{Pose: finalPose, RootMotionDelta: rootMotion, Events: events}
}

// inverseTransform returns t's inverse: the rotation's conjugate and the
// negated translation rotated into the inverse's frame, mirroring
// pose.inverseT (unexported there; the graph needs its own copy to hand
// nodes a world-to-local transform each tick).
func inverseTransform(t *lin.T) *lin.T {
	invRot := &lin.Q{}
	invRot.Inv(t.Rot)
	invLoc := &lin.V3{}
	invLoc.Scale(t.Loc, -1)
	invLoc.MultQ(invLoc, invRot)
	return &lin.T{Loc: invLoc, Rot: invRot}
}

// resolveFinalPose reads out the tick's result buffer, converting an
// additive final pose to absolute by blending it onto a reference pose
// first (spec.md §4.13 "Execution"). taskIndex == NoTask (an empty
// graph, or every node degraded to producing nothing) falls back to the
// reference pose.
func (g *GraphInstance) resolveFinalPose(taskIndex int) *pose.Pose {
	if taskIndex == NoTask {
		g.logger.Warn("animgraph: tick produced no task, falling back to reference pose")
		out := pose.New(g.skel)
		out.Reset(pose.ReferencePose)
		return out
	}
	produced := g.tasks.Result(taskIndex)
	if produced.State != pose.AdditivePose {
		out := pose.New(g.skel)
		out.CopyFrom(produced)
		return out
	}
	reference := pose.New(g.skel)
	reference.Reset(pose.ReferencePose)
	out := pose.New(g.skel)
	pose.AdditiveBlend(reference, produced, 1, nil, out)
	return out
}
