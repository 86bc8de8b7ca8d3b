// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import "testing"

// Arena.Add must stamp each node's own index, in insertion order, so a
// node's Update can always recover its own arena slot.
func TestArenaAddStampsSelfIndex(t *testing.T) {
	arena := NewArena()
	a := newFakeNode(1)
	b := newFakeNode(1)
	c := newFakeNode(1)

	ia := arena.Add(a)
	ib := arena.Add(b)
	ic := arena.Add(c)

	if ia != 0 || ib != 1 || ic != 2 {
		t.Fatalf("expected sequential indices 0,1,2, got %d,%d,%d", ia, ib, ic)
	}
	if a.SelfIndex() != 0 || b.SelfIndex() != 1 || c.SelfIndex() != 2 {
		t.Errorf("expected each node's SelfIndex to match its arena slot, got %d,%d,%d",
			a.SelfIndex(), b.SelfIndex(), c.SelfIndex())
	}
	if arena.Len() != 3 {
		t.Errorf("expected arena length 3, got %d", arena.Len())
	}
	if arena.Get(ib) != b {
		t.Errorf("expected Get to round-trip the same node value")
	}
}

// A node's Update must stamp ctx.CurrentNodeIndex to its own self index on
// entry, so any task it registers is tagged with its own arena slot rather
// than a caller's.
func TestNodeUpdateStampsCurrentNodeIndex(t *testing.T) {
	arena := NewArena()
	a := newFakeNode(1)
	arena.Add(a)
	b := newFakeNode(1)
	arena.Add(b)

	ctx := newTestContext(1)
	a.Initialize(ctx, 0)
	b.Initialize(ctx, 0)

	a.Update(ctx, 0.1, nil)
	if ctx.CurrentNodeIndex != a.SelfIndex() {
		t.Errorf("expected CurrentNodeIndex %d after a's Update, got %d", a.SelfIndex(), ctx.CurrentNodeIndex)
	}
	b.Update(ctx, 0.1, nil)
	if ctx.CurrentNodeIndex != b.SelfIndex() {
		t.Errorf("expected CurrentNodeIndex %d after b's Update, got %d", b.SelfIndex(), ctx.CurrentNodeIndex)
	}
}
