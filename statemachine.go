// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import (
	"github.com/gazed/animgraph/clip"
	"github.com/gazed/animgraph/math/lin"
	"github.com/gazed/animgraph/pose"
	"github.com/gazed/animgraph/resource"
	"github.com/gazed/animgraph/task"
)

// sourceCachedPoseBlendDuration is the fixed window a transition blends
// over a source cached pose before destroying it (spec.md §4.11).
const sourceCachedPoseBlendDuration = 0.1

// SyncStartMode selects how a transition's target state picks its initial
// sync-track position relative to the state it is transitioning from
// (spec.md §4.11).
type SyncStartMode int

// Sync-start modes.
const (
	SyncFromZero SyncStartMode = iota
	SyncKeepEventIndex
	SyncKeepEventPercentage
	SyncExplicitOffset
)

// TimedEvent fires once after a state has played for At (a fraction of its
// duration, [0,1]).
type TimedEvent struct {
	At      float64
	Payload any
}

// State owns a pose-node subtree plus the event metadata a state machine
// fires around it (spec.md §4.11).
type State struct {
	Node Node

	EntryEvents   []any
	ExecuteEvents []any
	ExitEvents    []any
	TimedEvents   []TimedEvent

	// Off marks a state that contributes no pose of its own — a layer's
	// disabled slot. A transition through an Off state leaves the other
	// side's layer mask unattenuated rather than blending it out
	// (spec.md §4.11's layer-context rule).
	Off bool

	elapsed    float64
	firedTimed []bool
}

// Conduit is a transition edge, evaluated every tick while FromState is the
// active state (or the active transition's target state) (spec.md §4.11).
type Conduit struct {
	FromState, ToState int
	Condition          ValueNode

	Duration      float64
	ClampDuration bool

	SyncMode   SyncStartMode
	SyncOffset ValueNode

	RootMotionBlendMode pose.RootMotionBlendMode
	PivotBoneID         int // < 0 disables pivot blending.

	// CacheSourcePose blends the transition's source over a fixed short
	// window against a cached pose captured when the transition started,
	// rather than driving the source state node directly.
	CacheSourcePose bool
	// CacheOwnPose keeps this transition's blended output copied into a
	// cached pool slot every tick, so a later forced transition can steal
	// it as its own source (spec.md §9's forced-transition supplement).
	CacheOwnPose bool

	// Force steals an already-active transition rooted at FromState
	// (requires the stolen transition's conduit to have CacheOwnPose set;
	// otherwise the new transition chains instead and a warning is
	// logged). Force false means chain: the previous transition keeps
	// running as this one's source.
	Force bool
}

// transitionInstance is one in-flight transition.
type transitionInstance struct {
	conduit *Conduit

	sourceState int
	targetState int
	chainedFrom *transitionInstance // non-nil: source is a still-running prior transition.

	elapsed  float64
	duration float64

	sourceCachedID     pose.CachedID
	hasSourceCached    bool
	sourceCacheElapsed float64
	sourceCaptured     bool

	ownCachedID  pose.CachedID
	hasOwnCached bool

	lastWeight float64
}

// StateMachine drives an active state's pose-node subtree, switching states
// through Conduits and blending via Transitions (spec.md §4.11).
type StateMachine struct {
	BaseNode

	States       []State
	Conduits     []Conduit
	DefaultState int

	active     int
	transition *transitionInstance
}

// NewStateMachine builds a state machine over states, entering defaultState
// on Initialize.
func NewStateMachine(states []State, conduits []Conduit, defaultState int) *StateMachine {
	return &StateMachine{States: states, Conduits: conduits, DefaultState: defaultState, active: defaultState}
}

// Initialize enters the default state and fires its entry events.
func (n *StateMachine) Initialize(ctx *GraphContext, initialTime float64) {
	n.isInitialized = true
	n.active = n.DefaultState
	n.transition = nil
	st := &n.States[n.active]
	st.Node.Initialize(ctx, initialTime)
	st.elapsed = 0
	st.firedTimed = make([]bool, len(st.TimedEvents))
	n.fireEvents(ctx, st.EntryEvents)
	n.duration = st.Node.Duration()
	n.sync = st.Node.SyncTrack()
}

// Shutdown shuts down the active state (and, mid-transition, both sides).
func (n *StateMachine) Shutdown(ctx *GraphContext) {
	if n.transition != nil {
		n.shutdownTransition(ctx, n.transition)
		n.transition = nil
	} else {
		n.States[n.active].Node.Shutdown(ctx)
	}
	n.isInitialized = false
}

func (n *StateMachine) shutdownTransition(ctx *GraphContext, t *transitionInstance) {
	if t.chainedFrom != nil {
		n.shutdownTransition(ctx, t.chainedFrom)
	} else {
		n.States[t.sourceState].Node.Shutdown(ctx)
	}
	n.States[t.targetState].Node.Shutdown(ctx)
	n.destroyTransitionCaches(ctx, t)
}

func (n *StateMachine) destroyTransitionCaches(ctx *GraphContext, t *transitionInstance) {
	if t.hasSourceCached {
		ctx.Pool.DestroyCached(t.sourceCachedID)
		t.hasSourceCached = false
	}
	if t.hasOwnCached {
		ctx.Pool.DestroyCached(t.ownCachedID)
		t.hasOwnCached = false
	}
}

// DeactivateBranch cascades to whatever subtree is currently live.
func (n *StateMachine) DeactivateBranch(ctx *GraphContext) {
	if n.transition != nil {
		t := n.transition
		for t.chainedFrom != nil {
			n.States[t.targetState].Node.DeactivateBranch(ctx)
			t = t.chainedFrom
		}
		n.States[t.sourceState].Node.DeactivateBranch(ctx)
		n.States[t.targetState].Node.DeactivateBranch(ctx)
		return
	}
	n.States[n.active].Node.DeactivateBranch(ctx)
}

func (n *StateMachine) fireEvents(ctx *GraphContext, events []any) EventRange {
	if len(events) == 0 {
		return EventRange{}
	}
	start := ctx.Events.Len()
	for _, e := range events {
		ctx.Events.Append(SampledEvent{Payload: e, Weight: 1, Flags: EventStateEvent})
	}
	return ctx.Events.Range(start, ctx.Events.Len())
}

// Update evaluates outgoing conduits, then drives either the active state
// or the active transition (spec.md §4.11).
func (n *StateMachine) Update(ctx *GraphContext, dt float64, syncRange *clip.SyncTrackTimeRange) PoseNodeResult {
	n.MarkActive(ctx.UpdateID)
	ctx.CurrentNodeIndex = n.SelfIndex()
	n.evaluateConduits(ctx)

	if n.transition != nil {
		return n.updateTransition(ctx, dt)
	}

	st := &n.States[n.active]
	result := st.Node.Update(ctx, dt, syncRange)
	st.elapsed += dt
	n.fireTimedEvents(ctx, st)
	if len(st.ExecuteEvents) > 0 {
		execRange := n.fireEvents(ctx, st.ExecuteEvents)
		result.Events = ctx.Events.Merge(result.Events, execRange)
	}
	n.duration = st.Node.Duration()
	n.sync = st.Node.SyncTrack()
	return result
}

func (n *StateMachine) fireTimedEvents(ctx *GraphContext, st *State) {
	if len(st.TimedEvents) == 0 {
		return
	}
	dur := st.Node.Duration()
	if dur <= 0 {
		return
	}
	pct := clampF(st.elapsed/dur, 0, 1)
	for i, te := range st.TimedEvents {
		if !st.firedTimed[i] && pct >= te.At {
			st.firedTimed[i] = true
			ctx.Events.Append(SampledEvent{Payload: te.Payload, Weight: 1, Flags: EventStateEvent})
		}
	}
}

// evaluateConduits checks every conduit rooted at the current logical state
// (the active state, or the active transition's target) in order, starting
// the first whose condition is true and isn't already the active
// transition's destination.
func (n *StateMachine) evaluateConduits(ctx *GraphContext) {
	logical := n.active
	if n.transition != nil {
		logical = n.transition.targetState
	}
	for i := range n.Conduits {
		c := &n.Conduits[i]
		if c.FromState != logical {
			continue
		}
		if n.transition != nil && n.transition.targetState == c.ToState {
			continue
		}
		if c.Condition == nil || !c.Condition.Evaluate(ctx).Bool {
			continue
		}
		n.startTransition(ctx, c)
		return
	}
}

func (n *StateMachine) startTransition(ctx *GraphContext, c *Conduit) {
	if n.transition == nil {
		n.beginFromState(ctx, c, n.active)
		return
	}
	if c.Force {
		n.forceTransition(ctx, c)
		return
	}
	n.chainTransition(ctx, c)
}

// beginFromState starts a transition with source = the current (non-
// transitioning) active state.
func (n *StateMachine) beginFromState(ctx *GraphContext, c *Conduit, sourceState int) {
	src := &n.States[sourceState]
	tgt := &n.States[c.ToState]

	initialTime := n.deriveInitialTime(ctx, c, src, tgt)
	n.enterState(ctx, tgt, initialTime)

	duration := c.Duration
	if c.ClampDuration {
		remaining := maxF(src.Node.Duration()-src.elapsed, 0)
		if remaining < duration {
			duration = remaining
		}
	}
	n.transition = &transitionInstance{conduit: c, sourceState: sourceState, targetState: c.ToState, duration: duration}
}

func (n *StateMachine) deriveInitialTime(ctx *GraphContext, c *Conduit, src, tgt *State) float64 {
	switch c.SyncMode {
	case SyncKeepEventIndex, SyncKeepEventPercentage:
		srcSync, tgtSync := src.Node.SyncTrack(), tgt.Node.SyncTrack()
		if srcSync == nil || tgtSync == nil {
			return 0
		}
		srcPct := wrap01(src.elapsed / maxF(src.Node.Duration(), 1e-9))
		st := srcSync.GetTime(srcPct)
		if c.SyncMode == SyncKeepEventIndex {
			st.PercentageThroughEvent = 0
		}
		return tgtSync.GetPercentageThrough(st)
	case SyncExplicitOffset:
		if c.SyncOffset != nil {
			return clamp01(c.SyncOffset.Evaluate(ctx).Float)
		}
		return 0
	default:
		return 0
	}
}

func (n *StateMachine) enterState(ctx *GraphContext, st *State, initialTime float64) {
	if !st.Node.IsInitialized() {
		st.Node.Initialize(ctx, initialTime)
	}
	st.elapsed = 0
	st.firedTimed = make([]bool, len(st.TimedEvents))
	n.fireEvents(ctx, st.EntryEvents)
}

// forceTransition steals an in-progress transition's cached own-pose as the
// new transition's source, abandoning the old transition's blend in
// progress. Requires the stolen transition to have been caching its own
// pose (CacheOwnPose); otherwise this degrades to chaining, logged.
func (n *StateMachine) forceTransition(ctx *GraphContext, c *Conduit) {
	old := n.transition
	if !old.hasOwnCached {
		ctx.Logger.Warn("forced transition has no cached pose to steal, chaining instead",
			"from_state", old.sourceState, "to_state", old.targetState)
		n.chainTransition(ctx, c)
		return
	}

	stolen := ctx.Pool.TransferCached([]pose.CachedID{old.ownCachedID})
	old.hasOwnCached = false // ownership moved to the new transition.
	n.active = old.targetState

	tgt := &n.States[c.ToState]
	n.enterState(ctx, tgt, 0)

	n.transition = &transitionInstance{
		conduit:         c,
		sourceState:     old.targetState,
		targetState:     c.ToState,
		duration:        c.Duration,
		sourceCachedID:  stolen[0],
		hasSourceCached: true,
	}
}

// chainTransition keeps the previous transition running as the new one's
// source, blending the new target over its evolving output.
func (n *StateMachine) chainTransition(ctx *GraphContext, c *Conduit) {
	old := n.transition
	tgt := &n.States[c.ToState]
	n.enterState(ctx, tgt, 0)
	n.transition = &transitionInstance{conduit: c, sourceState: old.targetState, targetState: c.ToState, duration: c.Duration, chainedFrom: old}
}

// updateTransition drives both sides of t, registers the blend (and any
// pivot blend), merges events, and promotes the target on completion
// (spec.md §4.11).
func (n *StateMachine) updateTransition(ctx *GraphContext, dt float64) PoseNodeResult {
	t := n.transition
	t.elapsed += dt
	weight := 1.0
	if t.duration > 0 {
		weight = clampF(t.elapsed/t.duration, 0, 1)
	}

	savedBranch := ctx.BranchState
	ctx.BranchState = BranchInactive
	sourceResult := n.updateTransitionSource(ctx, t, dt)
	ctx.BranchState = savedBranch

	tgt := &n.States[t.targetState]
	targetResult := tgt.Node.Update(ctx, dt, nil)
	ctx.CurrentNodeIndex = n.SelfIndex()
	tgt.elapsed += dt
	n.fireTimedEvents(ctx, tgt)

	resultTask := ctx.Tasks.RegisterBlend(ctx.CurrentNodeIndex, sourceResult.TaskIndex, targetResult.TaskIndex, weight, nil, task.PrePhysics)
	rm := pose.BlendRootMotionDeltas(sourceResult.RootMotionDelta, targetResult.RootMotionDelta, weight, t.conduit.RootMotionBlendMode)

	if t.conduit.PivotBoneID >= 0 {
		maskIdx, mask := n.buildPivotMask(ctx, t.conduit.PivotBoneID)
		resultTask = ctx.Tasks.RegisterPivotBlend(ctx.CurrentNodeIndex, sourceResult.TaskIndex, targetResult.TaskIndex, t.conduit.PivotBoneID, weight, mask, task.PrePhysics)
		defer ctx.Masks.Release(maskIdx)
		rm = n.removePivotOffset(ctx, rm, t.conduit.PivotBoneID, weight-t.lastWeight)
	}

	events := ctx.Events.Merge(sourceResult.Events, targetResult.Events)
	t.lastWeight = weight

	// A completing transition's own cache is no longer useful to any
	// future forced transition — skip the final write so completion can
	// destroy the slot immediately without racing the deferred task that
	// would have populated it this same tick.
	if t.conduit.CacheOwnPose && weight < 1 {
		if !t.hasOwnCached {
			t.ownCachedID = ctx.Pool.CreateCached()
			t.hasOwnCached = true
		}
		resultTask = ctx.Tasks.RegisterCachedPoseWrite(ctx.CurrentNodeIndex, resultTask, t.ownCachedID, task.PrePhysics)
	}

	n.duration = tgt.Node.Duration()
	n.sync = tgt.Node.SyncTrack()

	if weight >= 1 {
		n.completeTransition(ctx, t)
	}

	return PoseNodeResult{TaskIndex: resultTask, RootMotionDelta: rm, Events: events}
}

func (n *StateMachine) updateTransitionSource(ctx *GraphContext, t *transitionInstance, dt float64) PoseNodeResult {
	switch {
	case t.hasSourceCached:
		idx := ctx.Tasks.RegisterCachedPoseRead(ctx.CurrentNodeIndex, t.sourceCachedID, task.PrePhysics)
		t.sourceCacheElapsed += dt
		if t.sourceCacheElapsed >= sourceCachedPoseBlendDuration {
			ctx.Pool.DestroyCached(t.sourceCachedID)
			t.hasSourceCached = false
		}
		return PoseNodeResult{TaskIndex: idx, RootMotionDelta: lin.NewT()}
	case t.chainedFrom != nil:
		saved := n.transition
		n.transition = t.chainedFrom
		result := n.updateTransition(ctx, dt)
		n.transition = saved
		return result
	case t.conduit.CacheSourcePose && !t.sourceCaptured:
		// First tick: drive the source live and capture its result into a
		// cached slot; subsequent ticks blend over that snapshot instead
		// (spec.md §4.11's source-cached-pose contract).
		src := &n.States[t.sourceState]
		result := src.Node.Update(ctx, dt, nil)
		src.elapsed += dt
		id := ctx.Pool.CreateCached()
		result.TaskIndex = ctx.Tasks.RegisterCachedPoseWrite(ctx.CurrentNodeIndex, result.TaskIndex, id, task.PrePhysics)
		t.sourceCachedID, t.hasSourceCached, t.sourceCaptured = id, true, true
		return result
	default:
		src := &n.States[t.sourceState]
		result := src.Node.Update(ctx, dt, nil)
		src.elapsed += dt
		return result
	}
}

// buildPivotMask returns a scratch mask weighted 1 over pivotBone and its
// descendants, 0 elsewhere.
func (n *StateMachine) buildPivotMask(ctx *GraphContext, pivotBone int) (int, *pose.Mask) {
	idx := ctx.Masks.Acquire()
	mask := ctx.Masks.Get(idx)
	mask.ResetTo(0)
	for b := 0; b < ctx.Skeleton.BoneCount(); b++ {
		if isDescendant(ctx.Skeleton, b, pivotBone) {
			mask.Set(b, 1)
		}
	}
	return idx, mask
}

func isDescendant(skel resource.Skeleton, bone, ancestor int) bool {
	for b := bone; b >= 0; b = skel.ParentIndex(b) {
		if b == ancestor {
			return true
		}
	}
	return false
}

// removePivotOffset subtracts this tick's share (dWeight) of the pivot
// bone's reference-pose translation from rm, compensating for the
// translation a pivot-scoped blend would otherwise leak into reported root
// motion (spec.md §4.11's pivot-blend contract).
func (n *StateMachine) removePivotOffset(ctx *GraphContext, rm *lin.T, pivotBone int, dWeight float64) *lin.T {
	ref := ctx.Skeleton.ReferenceTransform(pivotBone)
	offset := (&lin.V3{}).Scale(ref.Loc, dWeight)
	rm.Loc.Sub(rm.Loc, offset)
	return rm
}

func (n *StateMachine) completeTransition(ctx *GraphContext, t *transitionInstance) {
	if t.chainedFrom == nil {
		n.States[t.sourceState].Node.Shutdown(ctx)
	}
	n.destroyTransitionCaches(ctx, t)
	n.active = t.targetState
	n.transition = nil
}
