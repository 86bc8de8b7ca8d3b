// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package task implements the deferred pose-task DAG: registration,
// dependency tracking, the pre/post-physics split, pose-buffer-pooled
// execution, and optional debug serialization (spec.md §4.13).
package task

import (
	"github.com/gazed/animgraph/clip"
	"github.com/gazed/animgraph/pose"
)

// Kind is the operation a Task performs.
type Kind int

// Task kinds (spec.md §3).
const (
	Sample Kind = iota
	DefaultPose
	Blend
	AdditiveBlend
	OverlayBlend
	GlobalBlend
	PivotBlend
	CachedPoseRead
	CachedPoseWrite
	AimIK    // contract-only: no numerics, passes its input through.
	LookAtIK // contract-only: no numerics, passes its input through.
)

// Stage gates when a Task may run relative to the physics solve.
type Stage int

// Execution stages.
const (
	PrePhysics Stage = iota
	PostPhysics
	AnyStage
)

// Task is a deferred operation over pose buffers. Dependency indices
// must be strictly less than a task's own index — registration order is
// a topological order (spec.md §3, §8).
type Task struct {
	Kind            Kind
	SourceNodeIndex int
	Dependencies    []int
	Stage           Stage
	ResultBuffer    int

	// Sample
	Clip           *clip.AnimationClip
	FrameTime      clip.FrameTime
	SampleAdditive bool

	// DefaultPose
	DefaultState pose.State

	// Blend / AdditiveBlend / OverlayBlend / GlobalBlend / PivotBlend
	SourceBuffer, TargetBuffer int
	Weight                     float64
	Mask                       *pose.Mask
	RootMotionMode             pose.RootMotionBlendMode
	PivotBone                  int

	// CachedPoseRead / CachedPoseWrite / AimIK / LookAtIK
	CachedID    pose.CachedID
	InputBuffer int
}
