// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import (
	"testing"

	"github.com/gazed/animgraph/clip"
)

func boolValue(v bool) ValueNode {
	return &ConstantValueNode{Value: Value{Type: ValueBool, Bool: v}}
}

// syncedFakeNode is a fakeNode carrying a real SyncTrack so SyncKeepEventIndex
// transitions have something to compute against.
type syncedFakeNode struct {
	fakeNode
}

func newSyncedFakeNode(dur float64, track *clip.SyncTrack) *syncedFakeNode {
	n := &syncedFakeNode{fakeNode: *newFakeNode(dur)}
	n.sync = track
	return n
}

// Scenario 3 (spec.md §8): source at SyncTrackTime(eventIdx=2, pct=0.4);
// target initialized under SyncKeepEventPercentage (the mode that preserves
// the full {eventIndex, percentageThroughEvent} pair, per spec.md §8's
// keepEventIndex example) derives previousTime =
// targetTrack.percentageThrough({2, 0.4}).
func TestStateMachineTransitionKeepsEventIndex(t *testing.T) {
	srcTrack := clip.NewSyncTrack([]int{0, 1, 2, 3}, []float64{0, 0.25, 0.5, 0.75})
	tgtTrack := clip.NewSyncTrack([]int{0, 1, 2, 3}, []float64{0, 0.1, 0.3, 0.6})

	states := []State{
		{Node: newSyncedFakeNode(4, srcTrack)},
		{Node: newSyncedFakeNode(4, tgtTrack)},
	}
	conduits := []Conduit{
		{FromState: 0, ToState: 1, Condition: boolValue(true), Duration: 1.0, SyncMode: SyncKeepEventPercentage, PivotBoneID: -1},
	}
	sm := NewStateMachine(states, conduits, 0)
	arena := NewArena()
	arena.Add(sm)

	ctx := newTestContext(1)
	sm.Initialize(ctx, 0)

	// Drive the source to SyncTrackTime{2, 0.4}: event 2 spans [0.5,0.75),
	// so 0.4 through it lands at clip pct 0.5 + 0.25*0.4 = 0.6.
	states[0].elapsed = 0.6 * states[0].Node.Duration()

	ctx.UpdateID = 2
	sm.Update(ctx, 0.016, nil)

	if sm.transition == nil {
		t.Fatal("expected a transition to have started")
	}
	want := tgtTrack.GetPercentageThrough(clip.SyncTrackTime{EventIndex: 2, PercentageThroughEvent: 0.4})
	target := states[1].Node.(*syncedFakeNode)
	if got := target.initialTime; got < want-1e-9 || got > want+1e-9 {
		t.Errorf("expected target's initial time %f, got %f", want, got)
	}
}

// Scenario 4 (spec.md §8): a transition A→B at progress 0.6 with
// CacheOwnPose holds a cached pose; a forced transition B→C should inherit
// that cached pose as its own source rather than starting cold.
func TestStateMachineForcedTransitionStealsCachedPose(t *testing.T) {
	states := []State{
		{Node: newFakeNode(1)},
		{Node: newFakeNode(1)},
		{Node: newFakeNode(1)},
	}
	abCond := Conduit{FromState: 0, ToState: 1, Condition: boolValue(false), Duration: 1.0, CacheOwnPose: true, PivotBoneID: -1}
	bcCond := Conduit{FromState: 1, ToState: 2, Condition: boolValue(false), Duration: 1.0, Force: true, PivotBoneID: -1}
	conduits := []Conduit{abCond, bcCond}
	sm := NewStateMachine(states, conduits, 0)
	arena := NewArena()
	arena.Add(sm)

	ctx := newTestContext(1)
	sm.Initialize(ctx, 0)

	// Start A->B manually (bypassing the condition gate) to reach progress 0.6.
	sm.startTransition(ctx, &conduits[0])
	if sm.transition == nil {
		t.Fatal("expected A->B transition to start")
	}
	sm.transition.elapsed = 0.6
	sm.updateTransition(ctx, 0) // registers the own-cache write, weight 0.6.
	if !sm.transition.hasOwnCached {
		t.Fatal("expected the A->B transition to have cached its own pose")
	}
	cachedID := sm.transition.ownCachedID

	// Now force B->C.
	sm.forceTransition(ctx, &conduits[1])

	if sm.transition == nil {
		t.Fatal("expected B->C transition to start")
	}
	if sm.transition.sourceState != 1 {
		t.Errorf("expected B->C's source to be the prior transition's target (state 1), got %d", sm.transition.sourceState)
	}
	if !sm.transition.hasSourceCached || sm.transition.sourceCachedID != cachedID {
		t.Errorf("expected the forced transition to inherit cached pose %d, got hasSourceCached=%v id=%d",
			cachedID, sm.transition.hasSourceCached, sm.transition.sourceCachedID)
	}
	if sm.active != 1 {
		t.Errorf("expected active state to have advanced to B (1), got %d", sm.active)
	}
}

// When a forced transition's predecessor never cached its own pose, the
// forced transition degrades to chaining rather than losing the blend.
func TestStateMachineForceWithoutCacheChains(t *testing.T) {
	states := []State{
		{Node: newFakeNode(1)},
		{Node: newFakeNode(1)},
		{Node: newFakeNode(1)},
	}
	abCond := Conduit{FromState: 0, ToState: 1, Condition: boolValue(false), Duration: 1.0, PivotBoneID: -1}
	bcCond := Conduit{FromState: 1, ToState: 2, Condition: boolValue(false), Duration: 1.0, Force: true, PivotBoneID: -1}
	conduits := []Conduit{abCond, bcCond}
	sm := NewStateMachine(states, conduits, 0)
	arena := NewArena()
	arena.Add(sm)

	ctx := newTestContext(1)
	sm.Initialize(ctx, 0)
	sm.startTransition(ctx, &conduits[0])

	sm.forceTransition(ctx, &conduits[1])

	if sm.transition == nil || sm.transition.chainedFrom == nil {
		t.Fatal("expected the forced transition to chain off the uncached A->B transition")
	}
}
