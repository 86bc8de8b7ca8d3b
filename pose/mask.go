// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package pose

import "github.com/gazed/animgraph/resource"

// Mask is a scratch per-bone weight vector, valid only within the update
// that allocated it from a MaskPool (spec.md §5). Layer blends use masks
// to attenuate how much of a layer's pose reaches each bone.
type Mask struct {
	Weights []float64
}

// Set copies bone's weight.
func (m *Mask) Set(bone int, weight float64) { m.Weights[bone] = weight }

// Weight returns bone's weight, 0 if out of range.
func (m *Mask) Weight(bone int) float64 {
	if bone < 0 || bone >= len(m.Weights) {
		return 0
	}
	return m.Weights[bone]
}

// ResetTo overwrites every weight with the given constant.
func (m *Mask) ResetTo(weight float64) {
	for i := range m.Weights {
		m.Weights[i] = weight
	}
}

// FromResource copies a loader-provided resource.BoneMask's weights in.
func (m *Mask) FromResource(src *resource.BoneMask) {
	for i := range m.Weights {
		m.Weights[i] = src.Weight(i)
	}
}

// BlendFrom interpolates every weight from its current value toward 0 as
// t goes 0→1 (ramping a mask's influence out).
func (m *Mask) BlendFrom(t float64) {
	for i := range m.Weights {
		m.Weights[i] = m.Weights[i] * (1 - t)
	}
}

// BlendTo interpolates every weight from 0 toward its current value as t
// goes 0→1 (ramping a mask's influence in).
func (m *Mask) BlendTo(t float64) {
	for i := range m.Weights {
		m.Weights[i] = m.Weights[i] * t
	}
}

// BlendWith replaces each weight with the linear blend of m and other at t.
func (m *Mask) BlendWith(other *Mask, t float64) {
	for i := range m.Weights {
		m.Weights[i] = m.Weights[i] + (other.Weight(i)-m.Weights[i])*t
	}
}

// MaskPool supplies scratch Masks for layer blends, sized to a skeleton's
// bone count. Masks are pooled the same way pose buffers are (acquire by
// index, release returns it to the free list).
type MaskPool struct {
	boneCount int
	masks     []*Mask
	inUse     []bool
	free      []int
}

// NewMaskPool creates a pool of size scratch masks for a skeleton with
// boneCount bones.
func NewMaskPool(boneCount, size int) *MaskPool {
	if size <= 0 {
		size = 8
	}
	p := &MaskPool{boneCount: boneCount, masks: make([]*Mask, size), inUse: make([]bool, size)}
	for i := range p.masks {
		p.masks[i] = &Mask{Weights: make([]float64, boneCount)}
	}
	return p
}

// Acquire returns an unused mask index, growing the pool if exhausted.
func (p *MaskPool) Acquire() int {
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
	p.masks = append(p.masks, &Mask{Weights: make([]float64, p.boneCount)})
	p.inUse = append(p.inUse, true)
	return len(p.masks) - 1
}

// Release returns idx to the pool's free list.
func (p *MaskPool) Release(idx int) {
	if idx < 0 || idx >= len(p.masks) || !p.inUse[idx] {
		return
	}
	p.inUse[idx] = false
	p.free = append(p.free, idx)
}

// Get returns the mask at idx.
func (p *MaskPool) Get(idx int) *Mask { return p.masks[idx] }
