// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package pose

import (
	"log/slog"

	"github.com/gazed/animgraph/resource"
)

// CachedID is an opaque handle for a pose preserved across ticks in a
// named pool slot, e.g. to smooth a forced transition (spec.md §3).
type CachedID uint32

// Pool is a fixed pool of pose buffers (default 16, spec.md §3) plus a
// growable set of cached slots for in-progress transitions. Buffer reuse
// follows the teacher's free-list index pattern (eid.go): a released
// index is queued for reuse rather than its backing Pose being
// reallocated.
type Pool struct {
	skeleton resource.Skeleton
	buffers  []*Pose
	inUse    []bool
	free     []int

	cached     map[CachedID]*Pose
	nextCached CachedID
}

// DefaultPoolSize is the pool size used when NewPool is given size <= 0.
const DefaultPoolSize = 16

// NewPool creates a pool of size buffers for skeleton.
func NewPool(skeleton resource.Skeleton, size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	p := &Pool{
		skeleton: skeleton,
		buffers:  make([]*Pose, size),
		inUse:    make([]bool, size),
		cached:   map[CachedID]*Pose{},
	}
	for i := range p.buffers {
		p.buffers[i] = New(skeleton)
	}
	return p
}

// Acquire returns an unused buffer index, growing the pool (and logging a
// degraded-but-recovered warning) if none are free.
func (p *Pool) Acquire() int {
	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		p.inUse[idx] = true
		return idx
	}
	for i, used := range p.inUse {
		if !used {
			p.inUse[i] = true
			return i
		}
	}
	p.buffers = append(p.buffers, New(p.skeleton))
	p.inUse = append(p.inUse, true)
	idx := len(p.buffers) - 1
	slog.Default().Warn("pose buffer pool grew beyond its configured size", "new_size", idx+1)
	return idx
}

// Release returns idx to the pool's free list. Releasing an already-free
// or out-of-range index is a no-op.
func (p *Pool) Release(idx int) {
	if idx < 0 || idx >= len(p.buffers) || !p.inUse[idx] {
		return
	}
	p.inUse[idx] = false
	p.free = append(p.free, idx)
}

// Get returns the pose at idx.
func (p *Pool) Get(idx int) *Pose { return p.buffers[idx] }

// InUseCount reports how many buffers are currently acquired, used to
// assert spec.md §8's "every acquired buffer is released by the end of
// updatePostPhysics".
func (p *Pool) InUseCount() int {
	n := 0
	for _, used := range p.inUse {
		if used {
			n++
		}
	}
	return n
}

// CreateCached allocates a new named cached-pose slot.
func (p *Pool) CreateCached() CachedID {
	p.nextCached++
	id := p.nextCached
	p.cached[id] = New(p.skeleton)
	return id
}

// ResetCached clears id's stored pose back to Unset.
func (p *Pool) ResetCached(id CachedID) {
	if pp, ok := p.cached[id]; ok {
		pp.Reset(Unset)
	}
}

// GetCached returns id's stored pose, or nil if id is not (or no longer) live.
func (p *Pool) GetCached(id CachedID) *Pose { return p.cached[id] }

// DestroyCached releases id's slot entirely.
func (p *Pool) DestroyCached(id CachedID) { delete(p.cached, id) }

// TransferCached returns a copy of the cached IDs in src for a new owner,
// e.g. a forced transition "stealing" a supplanted transition's cached
// buffers (spec.md §9). The slots stay live in p and src is left as it
// is; the previous owner gives up its own reference.
func (p *Pool) TransferCached(src []CachedID) []CachedID {
	dst := append([]CachedID{}, src...)
	return dst
}
