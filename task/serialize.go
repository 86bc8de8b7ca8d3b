// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package task

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/gazed/animgraph/pose"
)

// Record is the gob-serializable shadow of a Task: every deterministic,
// plain-value field a debugger needs to reconstruct the DAG's shape and
// weights. Pointer-typed fields (Clip, Mask) aren't captured — clip and
// mask identity belong to the resource loader, not the task system — so
// a round trip reproduces structure and blend weights, not sampled pose
// data (spec.md §4.13: "debugging/replay; lossless for deterministic
// task kinds only").
type Record struct {
	Kind            Kind
	SourceNodeIndex int
	Dependencies    []int
	Stage           Stage
	ResultBuffer    int

	FrameTime      FrameTimeRecord
	SampleAdditive bool

	DefaultState pose.State

	SourceBuffer, TargetBuffer int
	Weight                     float64
	HasMask                    bool
	RootMotionMode             pose.RootMotionBlendMode
	PivotBone                  int

	CachedID    pose.CachedID
	InputBuffer int
}

// FrameTimeRecord mirrors clip.FrameTime without importing the clip
// package's AnimationClip type along with it.
type FrameTimeRecord struct {
	Frame int
	Pct   float64
}

// Snapshot captures the given tasks as Records. Tasks whose kind carries
// no useful numerics yet (AimIK, LookAtIK) are recorded with their shape
// intact so a replay can see they ran, even though their pose effect —
// pass-through — is trivial.
func Snapshot(tasks []Task) []Record {
	out := make([]Record, len(tasks))
	for i, t := range tasks {
		out[i] = Record{
			Kind:            t.Kind,
			SourceNodeIndex: t.SourceNodeIndex,
			Dependencies:    append([]int{}, t.Dependencies...),
			Stage:           t.Stage,
			ResultBuffer:    t.ResultBuffer,
			FrameTime:       FrameTimeRecord{Frame: t.FrameTime.Frame, Pct: t.FrameTime.Pct},
			SampleAdditive:  t.SampleAdditive,
			DefaultState:    t.DefaultState,
			SourceBuffer:    t.SourceBuffer,
			TargetBuffer:    t.TargetBuffer,
			Weight:          t.Weight,
			HasMask:         t.Mask != nil,
			RootMotionMode:  t.RootMotionMode,
			PivotBone:       t.PivotBone,
			CachedID:        t.CachedID,
			InputBuffer:     t.InputBuffer,
		}
	}
	return out
}

// Marshal gob-encodes records into an opaque blob.
func Marshal(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(records); err != nil {
		return nil, fmt.Errorf("animgraph/task: marshal records: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a blob produced by Marshal.
func Unmarshal(blob []byte) ([]Record, error) {
	var records []Record
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&records); err != nil {
		return nil, fmt.Errorf("animgraph/task: unmarshal records: %w", err)
	}
	return records, nil
}
