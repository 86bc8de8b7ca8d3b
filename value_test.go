// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import (
	"testing"

	"github.com/gazed/animgraph/math/lin"
)

func TestConstantValueNodeEvaluate(t *testing.T) {
	n := &ConstantValueNode{Value: Value{Type: ValueFloat, Float: 3.5}}
	if got := n.Evaluate(nil).Float; got != 3.5 {
		t.Errorf("expected 3.5, got %f", got)
	}
}

func TestExternalParameterNodeSetEvaluate(t *testing.T) {
	n := &ExternalParameterNode{}
	if got := n.Evaluate(nil); got.Type != ValueFloat || got.Float != 0 {
		t.Errorf("expected a zero-value float before Set, got %+v", got)
	}
	n.Set(Value{Type: ValueBool, Bool: true})
	if got := n.Evaluate(nil); got.Type != ValueBool || !got.Bool {
		t.Errorf("expected the set value to read back, got %+v", got)
	}
}

// CachedValueNode must evaluate its source at most once until Reset.
func TestCachedValueNodeEvaluatesOnce(t *testing.T) {
	calls := 0
	src := countingValueNode{f: func() Value {
		calls++
		return Value{Type: ValueFloat, Float: float64(calls)}
	}}
	n := &CachedValueNode{Source: &src}

	first := n.Evaluate(nil).Float
	second := n.Evaluate(nil).Float
	if first != second {
		t.Errorf("expected the cached value to stay stable across calls, got %f then %f", first, second)
	}
	if calls != 1 {
		t.Errorf("expected the source to be evaluated exactly once, got %d", calls)
	}

	n.Reset()
	third := n.Evaluate(nil).Float
	if third == second {
		t.Errorf("expected Reset to force a fresh evaluation")
	}
	if calls != 2 {
		t.Errorf("expected exactly one more evaluation after Reset, got %d total", calls)
	}
}

type countingValueNode struct {
	f func() Value
}

func (c *countingValueNode) Evaluate(ctx *GraphContext) Value { return c.f() }

func TestComparisonValueNodeOperators(t *testing.T) {
	cases := []struct {
		op      ComparisonOp
		l, r    float64
		want    bool
	}{
		{CompareEqual, 1, 1, true},
		{CompareEqual, 1, 2, false},
		{CompareNotEqual, 1, 2, true},
		{CompareGreater, 2, 1, true},
		{CompareGreaterOrEqual, 1, 1, true},
		{CompareLess, 1, 2, true},
		{CompareLessOrEqual, 1, 1, true},
	}
	for _, c := range cases {
		n := &ComparisonValueNode{
			Left:  &ConstantValueNode{Value: Value{Type: ValueFloat, Float: c.l}},
			Right: &ConstantValueNode{Value: Value{Type: ValueFloat, Float: c.r}},
			Op:    c.op,
		}
		got := n.Evaluate(nil)
		if got.Type != ValueBool || got.Bool != c.want {
			t.Errorf("op %v on (%f,%f): expected %v, got %+v", c.op, c.l, c.r, c.want, got)
		}
	}
}

// TargetValueNode reports invalid when its Source is nil, and forwards
// Valid otherwise, tagging the result as ValueTarget regardless of what the
// source itself reports.
func TestTargetValueNodeValidity(t *testing.T) {
	nilSrc := &TargetValueNode{}
	if got := nilSrc.Evaluate(nil); got.Type != ValueTarget || got.Bool {
		t.Errorf("expected an invalid target from a nil source, got %+v", got)
	}

	target := lin.NewT()
	target.Loc.SetS(1, 2, 3)
	backing := &ConstantValueNode{Value: Value{Type: ValueFloat, Target: *target}}

	valid := &TargetValueNode{Source: backing, Valid: true}
	got := valid.Evaluate(nil)
	if got.Type != ValueTarget || !got.Bool {
		t.Errorf("expected a valid target, got %+v", got)
	}
	if !got.Target.Loc.Aeq(target.Loc) {
		t.Errorf("expected the target location to pass through, got %v", got.Target.Loc.Dump())
	}

	invalid := &TargetValueNode{Source: backing, Valid: false}
	if got := invalid.Evaluate(nil); got.Bool {
		t.Errorf("expected Valid:false to report an invalid target regardless of source")
	}
}
