// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package clip

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"math/bits"

	"github.com/gazed/animgraph/math/lin"
	"github.com/gazed/animgraph/resource"
)

// Event is a decoded, queryable sampled-event window: a time range within
// the clip plus the loader-supplied payload.
type Event struct {
	Start, End float64
	Payload    any
}

// AnimationClip is an immutable, decoded animation clip: per-bone
// quantized tracks, events, a sync track, and optional root motion.
// It never allocates per sample; GetPose writes into a caller-owned pose.
type AnimationClip struct {
	data      *resource.ClipData
	syncTrack *SyncTrack
}

// New decodes data's metadata (not its per-frame samples, which are
// dequantized lazily on each GetPose/GetLocalTransform call) into a
// queryable AnimationClip.
func New(data *resource.ClipData) *AnimationClip {
	ids := make([]int, len(data.SyncMarkers))
	starts := make([]float64, len(data.SyncMarkers))
	for i, m := range data.SyncMarkers {
		ids[i] = m.ID
		starts[i] = m.StartPercentage
	}
	c := &AnimationClip{data: data, syncTrack: NewSyncTrack(ids, starts)}
	c.validateTracks()
	return c
}

// validateTracks logs a degraded-but-recovered warning for any track
// whose channel mask claims no channel animates yet carries more than a
// single key-frame worth of bytes — a ResourceUnavailable-adjacent
// authoring mistake the clip tolerates rather than rejecting.
func (c *AnimationClip) validateTracks() {
	for bone, track := range c.data.Tracks {
		if animatedChannels(track.ChannelMask) == 0 &&
			(len(track.RotationKeys) > 6 || len(track.TranslationKeys) > 6) {
			slog.Default().Warn("clip track channel mask disagrees with key length",
				"bone", bone, "rotation_bytes", len(track.RotationKeys))
		}
	}
}

// Skeleton returns the clip's target skeleton.
func (c *AnimationClip) Skeleton() resource.Skeleton { return c.data.Skeleton }

// NumFrames returns the clip's decoded frame count.
func (c *AnimationClip) NumFrames() int { return c.data.NumFrames }

// Duration returns the clip's length in seconds.
func (c *AnimationClip) Duration() float64 { return c.data.Duration }

// IsAdditive reports whether this clip's poses are deltas from the
// reference pose rather than absolute local transforms.
func (c *AnimationClip) IsAdditive() bool { return c.data.IsAdditive }

// SyncTrack returns the clip's event-indexed timeline normalization.
func (c *AnimationClip) SyncTrack() *SyncTrack { return c.syncTrack }

// HasRootMotion reports whether this clip carries a root-motion track.
func (c *AnimationClip) HasRootMotion() bool { return c.data.HasRootMotion }

// FrameTimeFromPercentage converts a clip percentage into a FrameTime,
// the bracketing frame index and fractional progress to the next frame.
func (c *AnimationClip) FrameTimeFromPercentage(pct float64) FrameTime {
	n := c.data.NumFrames
	if n <= 1 {
		return FrameTime{Frame: 0, Pct: 0}
	}
	pct = clamp01(pct)
	scaled := pct * float64(n-1)
	frame := int(scaled)
	if frame >= n-1 {
		frame = n - 2
		scaled = float64(n - 1)
	}
	return FrameTime{Frame: frame, Pct: scaled - float64(frame)}
}

// GetLocalTransform decodes bone's local transform at ft, interpolating
// the two bracketing key-frames (or returning the single sample if the
// track is static on that channel group).
func (c *AnimationClip) GetLocalTransform(bone int, ft FrameTime) (*lin.T, error) {
	if err := invalidFrame(ft.Frame, c.data.NumFrames); err != nil {
		if c.data.NumFrames == 0 {
			return lin.NewT(), nil
		}
		return nil, err
	}
	if bone < 0 || bone >= len(c.data.Tracks) {
		return nil, fmt.Errorf("bone %d out of range: %w", bone, ErrLogicError)
	}
	track := &c.data.Tracks[bone]

	rot0 := decodeRotation(track, frameIndex(track.StaticRotation, ft.Frame))
	rot1 := rot0
	if !track.StaticRotation {
		rot1 = decodeRotation(track, nextFrame(ft.Frame, c.data.NumFrames))
	}
	rot := &lin.Q{}
	rot.Slerp(rot0, rot1, ft.Pct)

	loc0 := decodeRanged(track.TranslationKeys, track.TranslationRange, frameIndex(track.StaticTranslation, ft.Frame))
	loc1 := loc0
	if !track.StaticTranslation {
		loc1 = decodeRanged(track.TranslationKeys, track.TranslationRange, nextFrame(ft.Frame, c.data.NumFrames))
	}
	loc := lerp3(loc0, loc1, ft.Pct)

	return &lin.T{Loc: &lin.V3{X: loc[0], Y: loc[1], Z: loc[2]}, Rot: rot}, nil
}

// GetScale decodes bone's scale at ft, defaulting to (1,1,1) when the
// track carries no scale keys (spec.md §4.2: "scale defaults to 1 when
// absent").
func (c *AnimationClip) GetScale(bone int, ft FrameTime) (sx, sy, sz float64) {
	if bone < 0 || bone >= len(c.data.Tracks) {
		return 1, 1, 1
	}
	track := &c.data.Tracks[bone]
	if len(track.ScaleKeys) == 0 {
		return 1, 1, 1
	}
	s0 := decodeRanged(track.ScaleKeys, track.ScaleRange, frameIndex(track.StaticScale, ft.Frame))
	s1 := s0
	if !track.StaticScale {
		s1 = decodeRanged(track.ScaleKeys, track.ScaleRange, nextFrame(ft.Frame, c.data.NumFrames))
	}
	out := lerp3(s0, s1, ft.Pct)
	return out[0], out[1], out[2]
}

// GetGlobalTransform decodes bone's transform at ft and composes it with
// every ancestor's local transform up to the skeleton root.
func (c *AnimationClip) GetGlobalTransform(bone int, ft FrameTime) (*lin.T, error) {
	local, err := c.GetLocalTransform(bone, ft)
	if err != nil {
		return nil, err
	}
	skel := c.data.Skeleton
	parent := skel.ParentIndex(bone)
	if parent < 0 {
		return local, nil
	}
	parentGlobal, err := c.GetGlobalTransform(parent, ft)
	if err != nil {
		return nil, err
	}
	result := lin.NewT()
	result.Mult(parentGlobal, local)
	return result, nil
}

// GetPose samples every bone at ft into out, which must have one
// transform slot per skeleton bone (allocated by the caller's pose pool).
func (c *AnimationClip) GetPose(ft FrameTime, out []*lin.T) error {
	for bone := range c.data.Tracks {
		t, err := c.GetLocalTransform(bone, ft)
		if err != nil {
			return err
		}
		out[bone].Set(t)
	}
	return nil
}

// GetEventsForRange appends, in clip time order, every event overlapping
// [from,to]. A looped range (to < from) is handled by splitting into
// [from,duration] followed by [0,to].
func (c *AnimationClip) GetEventsForRange(from, to float64, out []Event) []Event {
	if to < from {
		out = c.appendEvents(from, c.data.Duration, out)
		out = c.appendEvents(0, to, out)
		return out
	}
	return c.appendEvents(from, to, out)
}

func (c *AnimationClip) appendEvents(from, to float64, out []Event) []Event {
	for _, e := range c.data.Events {
		if e.EndTime >= from && e.StartTime <= to {
			out = append(out, Event{Start: e.StartTime, End: e.EndTime, Payload: e.Payload})
		}
	}
	return out
}

// GetRootMotionDelta returns the root transform delta between clip times
// from and to (seconds), handling at most one loop: delta(from,duration)
// composed with delta(0,to).
func (c *AnimationClip) GetRootMotionDelta(from, to float64) *lin.T {
	if !c.data.HasRootMotion || len(c.data.RootMotion) == 0 {
		return lin.NewT()
	}
	if to < from {
		first := c.rootMotionAt(from, c.data.Duration)
		second := c.rootMotionAt(0, to)
		result := lin.NewT()
		result.Mult(first, second)
		return result
	}
	return c.rootMotionAt(from, to)
}

func (c *AnimationClip) rootMotionAt(from, to float64) *lin.T {
	a := c.sampleRootMotion(from)
	b := c.sampleRootMotion(to)
	delta := lin.NewT()
	// delta = inverse(a) * b  (b expressed relative to a)
	aInvRot := &lin.Q{}
	aInvRot.Inv(a.Rot)
	relLoc := &lin.V3{}
	relLoc.Sub(b.Loc, a.Loc)
	relLoc.MultQ(relLoc, aInvRot)
	delta.Loc.Set(relLoc)
	delta.Rot.Mult(aInvRot, b.Rot)
	return delta
}

func (c *AnimationClip) sampleRootMotion(pct float64) *lin.T {
	ft := c.FrameTimeFromPercentage(clamp01(pct / maxFloat(c.data.Duration, 1e-9)))
	n := len(c.data.RootMotion)
	if n == 0 {
		return lin.NewT()
	}
	f0 := c.data.RootMotion[clampInt(ft.Frame, 0, n-1)]
	f1 := c.data.RootMotion[clampInt(ft.Frame+1, 0, n-1)]
	loc := &lin.V3{}
	loc.Lerp(&lin.V3{X: f0.LocX, Y: f0.LocY, Z: f0.LocZ}, &lin.V3{X: f1.LocX, Y: f1.LocY, Z: f1.LocZ}, ft.Pct)
	rot := &lin.Q{}
	rot.Slerp(&lin.Q{X: f0.RotX, Y: f0.RotY, Z: f0.RotZ, W: f0.RotW}, &lin.Q{X: f1.RotX, Y: f1.RotY, Z: f1.RotZ, W: f1.RotW}, ft.Pct)
	return &lin.T{Loc: loc, Rot: rot}
}

// =============================================================================
// quantized decode helpers, grounded on load/iqm.go's per-channel
// offset/scale dequantization generalized to a 48-bit (3x16) rotation key
// (x,y,z quantized to [-1,1]; w reconstructed non-negative) and a 48-bit
// ranged fixed-point translation/scale key.

func decodeRotation(track *resource.TrackData, frame int) *lin.Q {
	if len(track.RotationKeys) == 0 {
		return &lin.Q{X: 0, Y: 0, Z: 0, W: 1}
	}
	off := frame * 6
	if off+6 > len(track.RotationKeys) {
		off = 0
	}
	x := dequantizeUnit(binary.LittleEndian.Uint16(track.RotationKeys[off : off+2]))
	y := dequantizeUnit(binary.LittleEndian.Uint16(track.RotationKeys[off+2 : off+4]))
	z := dequantizeUnit(binary.LittleEndian.Uint16(track.RotationKeys[off+4 : off+6]))
	wSq := 1 - x*x - y*y - z*z
	if wSq < 0 {
		wSq = 0
	}
	w := math.Sqrt(wSq)
	q := &lin.Q{X: x, Y: y, Z: z, W: w}
	return q.Unit()
}

// dequantizeUnit maps a 16-bit code back to [-1,1], the range used for a
// quaternion's three smallest-magnitude components.
func dequantizeUnit(code uint16) float64 {
	const maxCode = float64(^uint16(0))
	return -1 + 2*(float64(code)/maxCode)
}

// animatedChannels reports how many of a track's nine rotation/
// translation/scale channels vary across frames, per the teacher's
// Channelmask convention (load/iqm.go) — used only to decide whether a
// degraded decode (missing keys) is worth a log line.
func animatedChannels(mask uint32) int { return bits.OnesCount32(mask) }

func decodeRanged(keys []byte, rng [3][2]float64, frame int) [3]float64 {
	if len(keys) == 0 {
		return [3]float64{0, 0, 0}
	}
	off := frame * 6
	if off+6 > len(keys) {
		off = 0
	}
	var out [3]float64
	for axis := 0; axis < 3; axis++ {
		code := binary.LittleEndian.Uint16(keys[off+axis*2 : off+axis*2+2])
		start, length := rng[axis][0], rng[axis][1]
		out[axis] = start + length*(float64(code)/65535)
	}
	return out
}

func lerp3(a, b [3]float64, t float64) [3]float64 {
	return [3]float64{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
		a[2] + (b[2]-a[2])*t,
	}
}

func frameIndex(static bool, frame int) int {
	if static {
		return 0
	}
	return frame
}

func nextFrame(frame, numFrames int) int {
	if frame+1 >= numFrames {
		return frame
	}
	return frame + 1
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
