// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import "github.com/gazed/animgraph/task"

// Observer receives development-only notifications as a tick runs:
// task registration, root-motion override decisions, and the final
// produced pose. None of this is part of the core contract (spec.md
// §9) — a production embedder can leave it nil.
type Observer interface {
	task.Observer
	// OnRootMotionOperation reports a root-motion override node's blend
	// decision for the tick, grounded on the original's
	// Animation_RuntimeGraphNode_RootMotionDebugger.h.
	OnRootMotionOperation(sourceNodeIndex int, weight float64, overridden bool)
	// OnPoseProduced reports the index of the task that produced the final
	// pose once a tick finishes.
	OnPoseProduced(resultTaskIndex int)
}

// NopObserver implements Observer with no-ops, useful as an embeddable
// default for callers that only want one or two of the hooks.
type NopObserver struct{}

func (NopObserver) OnTaskRegistered(index int, kind task.Kind, sourceNodeIndex int) {}
func (NopObserver) OnRootMotionOperation(sourceNodeIndex int, weight float64, overridden bool) {}
func (NopObserver) OnPoseProduced(resultTaskIndex int)                                         {}
