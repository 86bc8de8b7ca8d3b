// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package clip decodes quantized animation clips and provides the
// sync-track abstraction that lets arbitrary pose sources be time-aligned
// by event (spec.md §4.1, §4.2).
package clip

import "fmt"

// Seconds is a non-negative duration.
type Seconds float64

// Percentage is a clip-relative time normalized to [0,1) (or beyond,
// before the caller clamps/wraps it).
type Percentage float64

// FrameTime is a decoded sample position: the bracketing frame index and
// the percentage of the way to the next frame.
type FrameTime struct {
	Frame int
	Pct   float64 // [0,1]; 1 only at the clip's last frame.
}

// ErrLogicError is returned when an invalid frame index is requested from
// a clip; this is spec.md §7's LogicError kind, never surfaced past the
// tick boundary by callers — only used internally to trigger a fallback.
var ErrLogicError = fmt.Errorf("animgraph/clip: logic error")

// invalidFrame reports an out-of-range frame index against numFrames.
func invalidFrame(frame, numFrames int) error {
	if frame < 0 || frame >= numFrames {
		return fmt.Errorf("frame %d out of range [0,%d): %w", frame, numFrames, ErrLogicError)
	}
	return nil
}
