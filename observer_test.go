// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import (
	"testing"

	"github.com/gazed/animgraph/math/lin"
	"github.com/gazed/animgraph/task"
)

// recordingObserver captures every call a tick makes into it, so tests can
// assert both that the hooks fire and in what shape.
type recordingObserver struct {
	registered     []task.Kind
	rootMotionOps  int
	poseProduced   []int
}

func (r *recordingObserver) OnTaskRegistered(index int, kind task.Kind, sourceNodeIndex int) {
	r.registered = append(r.registered, kind)
}

func (r *recordingObserver) OnRootMotionOperation(sourceNodeIndex int, weight float64, overridden bool) {
	r.rootMotionOps++
}

func (r *recordingObserver) OnPoseProduced(resultTaskIndex int) {
	r.poseProduced = append(r.poseProduced, resultTaskIndex)
}

// A full tick notifies the installed Observer for every task registered,
// once per root-motion override decision, and exactly once for the
// produced pose.
func TestGraphInstanceNotifiesObserver(t *testing.T) {
	arena := NewArena()
	child := newFakeNode(1)
	root := NewRootMotionOverrideNode(child)
	root.Allow = AllowHeading{} // gate closed; still reports the decision
	rootIdx := arena.Add(root)

	skel := newTestSkeleton()
	g := NewGraphInstance(arena, rootIdx, skel, 8, 4)
	obs := &recordingObserver{}
	g.SetObserver(obs)
	g.Initialize(0)

	world := lin.NewT()
	g.Tick(1.0/60.0, world)

	if len(obs.registered) == 0 {
		t.Error("expected at least one OnTaskRegistered notification")
	}
	if obs.rootMotionOps != 1 {
		t.Errorf("expected exactly one root-motion operation report, got %d", obs.rootMotionOps)
	}
	// The root registers no task of its own, so the tick's result is the
	// last task registered: the child's DefaultPose.
	want := g.tasks.Len() - 1
	if len(obs.poseProduced) != 1 || obs.poseProduced[0] != want {
		t.Errorf("expected OnPoseProduced(%d) exactly once, got %v", want, obs.poseProduced)
	}
}

// NopObserver satisfies the full Observer interface with no-ops, so it can
// stand in wherever a caller wants only a subset of the hooks to matter.
func TestNopObserverSatisfiesObserver(t *testing.T) {
	var o Observer = NopObserver{}
	o.OnTaskRegistered(0, task.Sample, 0)
	o.OnRootMotionOperation(0, 0, false)
	o.OnPoseProduced(0)
}
