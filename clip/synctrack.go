// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package clip

// Marker is one ordered sync-track event: an ID (opaque to the track
// itself, meaningful to whoever authored the clip) and its normalized
// position and length within the track, both fractions of 1.0.
type Marker struct {
	ID       int
	Start    float64 // [0,1)
	Duration float64 // > 0; all durations in a track sum to 1.
}

// SyncTrackTime locates a moment in a SyncTrack: the event it falls
// within, and how far through that event (as a fraction).
type SyncTrackTime struct {
	EventIndex             int
	PercentageThroughEvent float64
}

// SyncTrackTimeRange is a [start,end) span of sync-track time. end's
// event index being less than start's (or equal with a smaller
// percentage) indicates the range wrapped once around the track.
type SyncTrackTimeRange struct {
	Start, End SyncTrackTime
}

// SyncTrack is an ordered, non-overlapping sequence of event markers
// whose durations sum to 1.0 — an event-indexed normalization of a
// clip's timeline used to align arbitrary pose sources (spec.md §4.1).
type SyncTrack struct {
	markers []Marker
}

// NewSyncTrack builds a SyncTrack from markers whose IDs and start
// percentages are given in clip order. Durations are derived from the
// gap to the next marker, wrapping the last marker's duration back to
// 1.0. An empty marker list falls back to a single event covering the
// whole clip (spec.md §4.1 edge case).
func NewSyncTrack(ids []int, starts []float64) *SyncTrack {
	if len(ids) == 0 {
		return &SyncTrack{markers: []Marker{{ID: 0, Start: 0, Duration: 1}}}
	}
	markers := make([]Marker, len(ids))
	for i := range ids {
		next := 1.0
		if i+1 < len(starts) {
			next = starts[i+1]
		}
		dur := next - starts[i]
		if dur <= 0 {
			dur = 1 // degenerate/zero-duration marker: give it the whole clip's length.
		}
		markers[i] = Marker{ID: ids[i], Start: starts[i], Duration: dur}
	}
	return &SyncTrack{markers: markers}
}

// Len returns the number of event markers in the track.
func (s *SyncTrack) Len() int { return len(s.markers) }

// Marker returns the i'th event marker.
func (s *SyncTrack) Marker(i int) Marker { return s.markers[i] }

// GetTime converts a clip percentage into a SyncTrackTime.
func (s *SyncTrack) GetTime(pct float64) SyncTrackTime {
	pct = wrap01(pct)
	for i, m := range s.markers {
		end := m.Start + m.Duration
		if pct >= m.Start && (pct < end || i == len(s.markers)-1) {
			through := 0.0
			if m.Duration > 0 {
				through = (pct - m.Start) / m.Duration
			}
			return SyncTrackTime{EventIndex: i, PercentageThroughEvent: clamp01(through)}
		}
	}
	last := len(s.markers) - 1
	return SyncTrackTime{EventIndex: last, PercentageThroughEvent: 1}
}

// GetPercentageThrough converts a SyncTrackTime back to a clip percentage.
func (s *SyncTrack) GetPercentageThrough(t SyncTrackTime) float64 {
	i := t.EventIndex
	if i < 0 {
		i = 0
	}
	if i >= len(s.markers) {
		i = len(s.markers) - 1
	}
	m := s.markers[i]
	return m.Start + m.Duration*t.PercentageThroughEvent
}

// CalculatePercentageCovered returns the signed fraction of the clip's
// timeline traversed by r, respecting a single wraparound.
func (s *SyncTrack) CalculatePercentageCovered(r SyncTrackTimeRange) float64 {
	startPct := s.GetPercentageThrough(r.Start)
	endPct := s.GetPercentageThrough(r.End)
	if r.End.EventIndex < r.Start.EventIndex ||
		(r.End.EventIndex == r.Start.EventIndex && endPct < startPct) {
		return (1 - startPct) + endPct // one wrap occurred.
	}
	return endPct - startPct
}

// BlendSyncTracks constructs a track whose marker count equals
// max(len(a), len(b)) and whose marker IDs/durations are pairwise
// interpolated at weight t (0 yields a's shape, 1 yields b's). Markers
// beyond the shorter track's length hold that track's last marker.
func BlendSyncTracks(a, b *SyncTrack, t float64) *SyncTrack {
	n := a.Len()
	if b.Len() > n {
		n = b.Len()
	}
	ids := make([]int, n)
	starts := make([]float64, n)
	for i := 0; i < n; i++ {
		ma := a.markers[min(i, a.Len()-1)]
		mb := b.markers[min(i, b.Len()-1)]
		starts[i] = ma.Start + (mb.Start-ma.Start)*t
		if t < 0.5 {
			ids[i] = ma.ID
		} else {
			ids[i] = mb.ID
		}
	}
	return NewSyncTrack(ids, starts)
}

// CalculateDurationSynchronized returns the synchronized clip duration
// for a blended pair of sources: the duration each source's timeline
// would need in order for nBlended events to cover it at the same rate
// as its own nA (or nB) events do, interpolated at weight t.
func CalculateDurationSynchronized(durA, durB float64, nA, nB, nBlended int, t float64) float64 {
	scaledA := durA
	if nA > 0 {
		scaledA = durA * float64(nBlended) / float64(nA)
	}
	scaledB := durB
	if nB > 0 {
		scaledB = durB * float64(nBlended) / float64(nB)
	}
	return scaledA + (scaledB-scaledA)*t
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func wrap01(pct float64) float64 {
	for pct < 0 {
		pct += 1
	}
	for pct >= 1 {
		pct -= 1
	}
	return pct
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
