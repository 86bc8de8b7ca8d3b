// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package animgraph implements the runtime animation graph evaluator:
// the node arena, value and pose nodes, the state machine and
// transitions, and the per-tick GraphInstance that drives the task
// system (spec.md §2-4, §9).
package animgraph

import (
	"log/slog"

	"github.com/gazed/animgraph/clip"
	"github.com/gazed/animgraph/math/lin"
	"github.com/gazed/animgraph/pose"
	"github.com/gazed/animgraph/resource"
	"github.com/gazed/animgraph/task"
)

// BranchState flags whether the subtree currently being updated
// contributes to output; inactive branches suppress event contributions
// and task retention (spec.md §3, §9).
type BranchState int

// Branch states.
const (
	BranchActive BranchState = iota
	BranchInactive
)

// LayerContext carries the weight and optional bone mask a layer blend
// is composing under; nested layers save and restore it (spec.md §4.10).
type LayerContext struct {
	Weight float64
	Mask   *pose.Mask
}

// GraphContext is the per-tick state threaded through every node update
// (spec.md §3).
type GraphContext struct {
	DeltaTime             float64
	WorldTransform        *lin.T
	WorldTransformInverse *lin.T
	SkeletonLOD           int
	UpdateID              uint64
	BranchState           BranchState

	Tasks    *task.System
	Pool     *pose.Pool // cached-pose slot management (spec.md §4.11); task execution itself goes through Tasks.
	Masks    *pose.MaskPool
	Skeleton resource.Skeleton

	PreviousPose *pose.Pose
	Events       *EventBuffer
	Layer        LayerContext

	// CurrentNodeIndex is stamped by each node's own Update method on
	// entry (and re-stamped by composite nodes after every child Update
	// call), so a node's task registrations are always tagged with its
	// own arena index rather than whichever child it last drove.
	CurrentNodeIndex int

	Logger   *slog.Logger
	Observer Observer
}

// EventFlags are per-event bits a consumer filters sampled events on.
type EventFlags uint8

// Sampled-event flags (spec.md §6, §9).
const (
	EventIgnored EventFlags = 1 << iota
	EventFromInactiveBranch
	EventStateEvent
)

// SampledEvent is one entry in the per-tick sampled-event buffer.
type SampledEvent struct {
	Payload        any
	Weight         float64
	SourceNodePath string
	Flags          EventFlags
	Start, End     float64 // clip-relative time range.
}

// EventRange indexes a contiguous run of a tick's SampledEvents.
type EventRange struct {
	Start, End int
}

// Len reports how many events the range covers.
func (r EventRange) Len() int { return r.End - r.Start }

// EventBuffer is the append-only per-tick sampled-event list (spec.md §3).
type EventBuffer struct {
	events []SampledEvent
}

// NewEventBuffer creates an empty buffer with capacity preallocated.
func NewEventBuffer(capacity int) *EventBuffer {
	return &EventBuffer{events: make([]SampledEvent, 0, capacity)}
}

// Append adds e and returns its index.
func (b *EventBuffer) Append(e SampledEvent) int {
	b.events = append(b.events, e)
	return len(b.events) - 1
}

// Len reports the number of events recorded so far this tick.
func (b *EventBuffer) Len() int { return len(b.events) }

// Range returns the range [start,end).
func (b *EventBuffer) Range(start, end int) EventRange { return EventRange{Start: start, End: end} }

// Slice returns the events within r.
func (b *EventBuffer) Slice(r EventRange) []SampledEvent { return b.events[r.Start:r.End] }

// Merge combines a and b into one contiguous range — the source range
// must already immediately precede the target range in the buffer
// (spec.md §4.11's event-combination contract).
func (b *EventBuffer) Merge(a, c EventRange) EventRange {
	if a.Len() == 0 {
		return c
	}
	if c.Len() == 0 {
		return a
	}
	return EventRange{Start: a.Start, End: c.End}
}

// ScaleWeight multiplies every event in r's weight by w, e.g. a layer
// blend scaling a layer's contribution by its blend weight.
func (b *EventBuffer) ScaleWeight(r EventRange, w float64) {
	for i := r.Start; i < r.End; i++ {
		b.events[i].Weight *= w
	}
}

// Flag ORs flag onto every event in r.
func (b *EventBuffer) Flag(r EventRange, flag EventFlags) {
	for i := r.Start; i < r.End; i++ {
		b.events[i].Flags |= flag
	}
}

// Reset clears the buffer for a new tick.
func (b *EventBuffer) Reset() { b.events = b.events[:0] }

// PoseNodeResult is what every node's Update reports: which task (if
// any) produces its pose, its root-motion contribution, and the range
// of sampled events it emitted this tick (spec.md §3).
type PoseNodeResult struct {
	TaskIndex       int // -1 when the node produced no task.
	RootMotionDelta *lin.T
	Events          EventRange
	// SyncRange is the sync-track span this node moved through this
	// tick, nil for nodes with no sync track. A layer blend node passes
	// this back down to its layers to keep them time-aligned to the
	// base (spec.md §4.10).
	SyncRange *clip.SyncTrackTimeRange
}

// NoTask is the sentinel TaskIndex value meaning "no pose was produced".
const NoTask = -1
