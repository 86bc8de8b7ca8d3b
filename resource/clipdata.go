// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package resource

// ClipData is the immutable, loader-provided raw representation of an
// animation clip: a compressed per-bone track stream plus the metadata
// needed to decode it. The clip package turns this into a queryable
// AnimationClip; resource never interprets the bytes itself.
//
// The per-track compression mirrors the teacher's IQM loader
// (load/iqm.go's Channeloffset/Channelscale/Channelmask scheme): each
// channel is a quantized uint16 mapped back to a float via a per-axis
// offset and scale, generalized here to a 48-bit (3x16) quantized
// rotation and a 48-bit ranged fixed-point translation/scale.
type ClipData struct {
	Skeleton      Skeleton
	NumFrames     int
	Duration      float64 // seconds
	IsAdditive    bool
	Tracks        []TrackData // one per bone, parallel to Skeleton bones
	Events        []EventData // sorted by start time
	SyncMarkers   []SyncMarkerData
	HasRootMotion bool
	RootMotion    []RootMotionFrame // per-frame root transform, len == NumFrames
}

// TrackData carries one bone's quantized key-stream. ChannelMask records,
// per the teacher's channel-bit convention, which of the nine rotation/
// translation/scale channels vary across frames; a channel outside the
// mask is constant and only its first frame is meaningful.
type TrackData struct {
	ChannelMask uint32

	RotationKeys    []byte // 6 bytes/frame (3x uint16 little-endian: qx,qy,qz); w is reconstructed.
	TranslationKeys []byte // 6 bytes/frame (3x uint16).
	ScaleKeys       []byte // 6 bytes/frame (3x uint16); absent (nil) means scale defaults to 1.

	StaticRotation    bool // RotationKeys holds exactly one 6-byte sample.
	StaticTranslation bool
	StaticScale       bool

	// Per-axis [start, length] mapping a decoded uint16 code back to a
	// float: value = start + length*(code/65535).
	TranslationRange [3][2]float64
	ScaleRange       [3][2]float64
}

// Rotation/translation/scale channel bits, matching the teacher's
// per-axis channel-mask convention (load/iqm.go's 0x01..0x200 bits).
const (
	ChanRotX = 1 << iota
	ChanRotY
	ChanRotZ
	ChanLocX
	ChanLocY
	ChanLocZ
	ChanSclX
	ChanSclY
	ChanSclZ
)

// EventData is a raw, loader-supplied sampled event window within the clip.
type EventData struct {
	StartTime, EndTime float64
	Payload            any
}

// SyncMarkerData is one ordered sync-track event marker as stored on disk:
// an ID and the percentage through the clip at which it starts. Durations
// are derived from the gap to the next marker when the clip builds its
// clip.SyncTrack.
type SyncMarkerData struct {
	ID              int
	StartPercentage float64
}

// RootMotionFrame is one sampled frame of the clip's root-motion track:
// location and rotation in clip/world space at that frame.
type RootMotionFrame struct {
	LocX, LocY, LocZ             float64
	RotX, RotY, RotZ, RotW       float64
}
