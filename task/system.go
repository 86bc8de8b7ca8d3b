// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package task

import (
	"fmt"
	"log/slog"

	"github.com/gazed/animgraph/clip"
	"github.com/gazed/animgraph/pose"
	"github.com/gazed/animgraph/resource"
)

// System is the per-tick task DAG: a flat, registration-ordered task list
// executed against a pool of pose buffers across the pre/post-physics
// barrier (spec.md §4.13, §5). Registration order is the topological
// order — every Register* call returns an index strictly greater than
// any dependency it's given.
type System struct {
	pool     *pose.Pool
	masks    *pose.MaskPool
	skel     resource.Skeleton
	logger   *slog.Logger
	observer Observer

	tasks            []Task
	executed         []bool
	consumersPending []int
	hasPostPhysics   bool
}

// NewSystem creates a task system that samples/blends into pool's buffers.
func NewSystem(skel resource.Skeleton, pool *pose.Pool, masks *pose.MaskPool) *System {
	return &System{skel: skel, pool: pool, masks: masks, logger: slog.Default()}
}

// SetObserver installs an optional debug observer (spec.md §9).
func (s *System) SetObserver(o Observer) { s.observer = o }

// SetLogger overrides the default logger.
func (s *System) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Reset clears the task list for a new tick; the pose pool and any
// cached slots it holds survive across ticks.
func (s *System) Reset() {
	s.tasks = s.tasks[:0]
	s.executed = s.executed[:0]
	s.consumersPending = s.consumersPending[:0]
	s.hasPostPhysics = false
}

// Len returns the number of registered tasks.
func (s *System) Len() int { return len(s.tasks) }

// Task returns a copy of the task at idx. ResultBuffer is only meaningful
// once the task has executed.
func (s *System) Task(idx int) Task { return s.tasks[idx] }

// Result returns the pose a task produced. Valid only after the task has
// executed.
func (s *System) Result(idx int) *pose.Pose { return s.pool.Get(s.tasks[idx].ResultBuffer) }

// ReleaseResult returns a task's output buffer to the pool. Callers are
// responsible for releasing the final task's result once they're done
// reading it — nothing downstream consumes it automatically.
func (s *System) ReleaseResult(idx int) { s.pool.Release(s.tasks[idx].ResultBuffer) }

func (s *System) register(t Task) int {
	idx := len(s.tasks)
	for _, dep := range t.Dependencies {
		if dep >= idx {
			s.logger.Warn("task registered with a non-topological dependency", "task", idx, "dependency", dep)
		}
	}
	s.tasks = append(s.tasks, t)
	s.executed = append(s.executed, false)
	s.consumersPending = append(s.consumersPending, 0)
	for _, dep := range t.Dependencies {
		if dep >= 0 && dep < idx {
			s.consumersPending[dep]++
		}
	}
	if t.Stage == PostPhysics {
		s.hasPostPhysics = true
	}
	if s.observer != nil {
		s.observer.OnTaskRegistered(idx, t.Kind, t.SourceNodeIndex)
	}
	return idx
}

// RegisterSample registers a clip-sampling task. additive tags the result
// as AdditivePose rather than Normal.
func (s *System) RegisterSample(sourceNode int, c *clip.AnimationClip, ft clip.FrameTime, additive bool, stage Stage) int {
	return s.register(Task{Kind: Sample, SourceNodeIndex: sourceNode, Stage: stage, Clip: c, FrameTime: ft, SampleAdditive: additive})
}

// RegisterDefaultPose registers a task that produces state with no inputs.
func (s *System) RegisterDefaultPose(sourceNode int, state pose.State, stage Stage) int {
	return s.register(Task{Kind: DefaultPose, SourceNodeIndex: sourceNode, Stage: stage, DefaultState: state})
}

// RegisterBlend registers a local-space blend of source toward target.
func (s *System) RegisterBlend(sourceNode, source, target int, weight float64, mask *pose.Mask, stage Stage) int {
	return s.register(Task{Kind: Blend, SourceNodeIndex: sourceNode, Stage: stage,
		Dependencies: []int{source, target}, SourceBuffer: source, TargetBuffer: target, Weight: weight, Mask: mask})
}

// RegisterAdditiveBlend registers a layer-additive blend.
func (s *System) RegisterAdditiveBlend(sourceNode, base, additive int, weight float64, mask *pose.Mask, stage Stage) int {
	return s.register(Task{Kind: AdditiveBlend, SourceNodeIndex: sourceNode, Stage: stage,
		Dependencies: []int{base, additive}, SourceBuffer: base, TargetBuffer: additive, Weight: weight, Mask: mask})
}

// RegisterOverlayBlend registers a masked local-space overlay blend —
// mechanically identical to Blend but tagged separately so an Observer
// can distinguish a layer node's overlay from a state-machine blend.
func (s *System) RegisterOverlayBlend(sourceNode, base, overlay int, weight float64, mask *pose.Mask, stage Stage) int {
	return s.register(Task{Kind: OverlayBlend, SourceNodeIndex: sourceNode, Stage: stage,
		Dependencies: []int{base, overlay}, SourceBuffer: base, TargetBuffer: overlay, Weight: weight, Mask: mask})
}

// RegisterGlobalBlend registers a global-space blend; mask is required.
func (s *System) RegisterGlobalBlend(sourceNode, base, layer int, weight float64, mask *pose.Mask, stage Stage) int {
	return s.register(Task{Kind: GlobalBlend, SourceNodeIndex: sourceNode, Stage: stage,
		Dependencies: []int{base, layer}, SourceBuffer: base, TargetBuffer: layer, Weight: weight, Mask: mask})
}

// RegisterPivotBlend registers a global-space blend scoped to pivotBone's
// subtree by mask — mask is expected to carry zero weight outside the
// pivot's descendants, computed by the caller (the graph's state machine
// knows the skeleton's hierarchy; the task system just executes).
func (s *System) RegisterPivotBlend(sourceNode, base, layer, pivotBone int, weight float64, mask *pose.Mask, stage Stage) int {
	return s.register(Task{Kind: PivotBlend, SourceNodeIndex: sourceNode, Stage: stage,
		Dependencies: []int{base, layer}, SourceBuffer: base, TargetBuffer: layer, PivotBone: pivotBone, Weight: weight, Mask: mask})
}

// RegisterCachedPoseRead registers a task that copies a named cached pose
// (e.g. a transition's captured source pose) into a fresh buffer.
func (s *System) RegisterCachedPoseRead(sourceNode int, id pose.CachedID, stage Stage) int {
	return s.register(Task{Kind: CachedPoseRead, SourceNodeIndex: sourceNode, Stage: stage, CachedID: id})
}

// RegisterCachedPoseWrite registers a task that copies input's pose into a
// named cached slot, then passes input through unmodified as its result.
func (s *System) RegisterCachedPoseWrite(sourceNode, input int, id pose.CachedID, stage Stage) int {
	return s.register(Task{Kind: CachedPoseWrite, SourceNodeIndex: sourceNode, Stage: stage,
		Dependencies: []int{input}, InputBuffer: input, CachedID: id})
}

// RegisterAimIK registers a contract-only aim-IK task: no numerics are
// implemented, the task passes its input through.
func (s *System) RegisterAimIK(sourceNode, input int, stage Stage) int {
	return s.register(Task{Kind: AimIK, SourceNodeIndex: sourceNode, Stage: stage, Dependencies: []int{input}, InputBuffer: input})
}

// RegisterLookAtIK registers a contract-only look-at-IK task.
func (s *System) RegisterLookAtIK(sourceNode, input int, stage Stage) int {
	return s.register(Task{Kind: LookAtIK, SourceNodeIndex: sourceNode, Stage: stage, Dependencies: []int{input}, InputBuffer: input})
}

// UpdatePrePhysics executes every PrePhysics and AnyStage task, in
// registration order. If a pre-physics task's dependency set requires a
// post-physics task's output — a co-dependent cycle the graph compiler
// should never produce but the task system still has to survive at
// runtime — execution falls back to a single reference-pose task
// (spec.md §4.13).
func (s *System) UpdatePrePhysics() {
	if err := s.checkPrePhysicsOrdering(); err != nil {
		s.fallBackToReferencePose(err)
		return
	}
	for i, t := range s.tasks {
		if t.Stage == PostPhysics {
			continue
		}
		s.executeTask(i)
	}
}

// UpdatePostPhysics executes every remaining (PostPhysics-stage, plus any
// AnyStage task UpdatePrePhysics skipped) task in registration order.
func (s *System) UpdatePostPhysics() {
	for i := range s.tasks {
		s.executeTask(i)
	}
}

func (s *System) checkPrePhysicsOrdering() error {
	for i, t := range s.tasks {
		if t.Stage == PostPhysics {
			continue
		}
		for _, dep := range t.Dependencies {
			if s.tasks[dep].Stage == PostPhysics {
				return fmt.Errorf("task %d (stage %v) depends on post-physics task %d: %w", i, t.Stage, dep, ErrDependencyCycle)
			}
		}
	}
	return nil
}

// fallBackToReferencePose discards the tick's task list and replaces it
// with a single executed DefaultPose(ReferencePose) task at index 0, so
// callers can still read a Result(0) this tick.
func (s *System) fallBackToReferencePose(cause error) {
	s.logger.Error("animgraph/task: pre/post-physics ordering violated, falling back to reference pose", "cause", cause)
	s.Reset()
	idx := s.register(Task{Kind: DefaultPose, Stage: PrePhysics, DefaultState: pose.ReferencePose})
	s.executeTask(idx)
}

func (s *System) executeTask(idx int) {
	if s.executed[idx] {
		return
	}
	t := &s.tasks[idx]
	switch t.Kind {
	case Sample:
		buf := s.pool.Acquire()
		result := s.pool.Get(buf)
		if t.Clip == nil {
			result.Reset(pose.ReferencePose)
		} else if err := t.Clip.GetPose(t.FrameTime, result.Bones); err != nil {
			s.logger.Warn("sample task failed, falling back to reference pose", "task", idx, "error", err)
			result.Reset(pose.ReferencePose)
		} else {
			state := pose.Normal
			if t.SampleAdditive {
				state = pose.AdditivePose
			}
			result.State = state
		}
		t.ResultBuffer = buf

	case DefaultPose:
		buf := s.pool.Acquire()
		s.pool.Get(buf).Reset(t.DefaultState)
		t.ResultBuffer = buf

	case Blend, OverlayBlend:
		buf := s.pool.Acquire()
		pose.LocalBlend(s.Result(t.SourceBuffer), s.Result(t.TargetBuffer), t.Weight, t.Mask, s.pool.Get(buf))
		t.ResultBuffer = buf

	case AdditiveBlend:
		buf := s.pool.Acquire()
		pose.AdditiveBlend(s.Result(t.SourceBuffer), s.Result(t.TargetBuffer), t.Weight, t.Mask, s.pool.Get(buf))
		t.ResultBuffer = buf

	case GlobalBlend, PivotBlend:
		buf := s.pool.Acquire()
		pose.GlobalBlend(s.Result(t.SourceBuffer), s.Result(t.TargetBuffer), t.Weight, t.Mask, s.pool.Get(buf))
		t.ResultBuffer = buf

	case CachedPoseRead:
		buf := s.pool.Acquire()
		if cached := s.pool.GetCached(t.CachedID); cached != nil {
			s.pool.Get(buf).CopyFrom(cached)
		} else {
			s.pool.Get(buf).Reset(pose.ReferencePose)
		}
		t.ResultBuffer = buf

	case CachedPoseWrite:
		if cached := s.pool.GetCached(t.CachedID); cached != nil {
			cached.CopyFrom(s.Result(t.InputBuffer))
		}
		t.ResultBuffer = s.tasks[t.InputBuffer].ResultBuffer

	case AimIK, LookAtIK:
		t.ResultBuffer = s.tasks[t.InputBuffer].ResultBuffer
	}
	s.executed[idx] = true

	// Pass-through kinds alias their input's buffer as their own result
	// rather than copying it, so that buffer must not be released here —
	// ownership has moved to this task's own index, and is released once
	// whatever eventually consumes *this* task's result runs.
	aliased := -1
	if t.Kind == CachedPoseWrite || t.Kind == AimIK || t.Kind == LookAtIK {
		aliased = t.InputBuffer
	}
	for _, dep := range t.Dependencies {
		s.consumersPending[dep]--
		if dep == aliased {
			continue
		}
		if s.consumersPending[dep] <= 0 {
			s.pool.Release(s.tasks[dep].ResultBuffer)
		}
	}
}
