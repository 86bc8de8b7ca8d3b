// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package animgraph

import "github.com/gazed/animgraph/math/lin"

// ValueType tags which field of a Value is meaningful.
type ValueType int

// Value kinds a graph's value nodes can produce (spec.md §2 "Value Nodes").
const (
	ValueFloat ValueType = iota
	ValueBool
	ValueVector3
	ValueTarget
	ValueID
)

// Value is a typed scalar/vector/target/ID produced by a ValueNode.
type Value struct {
	Type   ValueType
	Float  float64
	Bool   bool
	Vector lin.V3
	Target lin.T
	ID     int
}

// ValueNode evaluates to a Value given the current tick's context.
type ValueNode interface {
	Evaluate(ctx *GraphContext) Value
}

// ConstantValueNode always returns the same Value.
type ConstantValueNode struct {
	Value Value
}

// Evaluate returns the constant.
func (n *ConstantValueNode) Evaluate(ctx *GraphContext) Value { return n.Value }

// ExternalParameterNode is written once per tick by GraphInstance from
// the caller-supplied parameter map (spec.md §4.14 step 1).
type ExternalParameterNode struct {
	value Value
}

// Set stores this tick's externally-supplied value.
func (n *ExternalParameterNode) Set(v Value) { n.value = v }

// Evaluate returns the most recently Set value.
func (n *ExternalParameterNode) Evaluate(ctx *GraphContext) Value { return n.value }

// CachedValueNode evaluates its source at most once per update pass and
// reuses the result until explicitly Reset — grounded on the teacher's
// general "don't recompute within a frame" pattern.
type CachedValueNode struct {
	Source    ValueNode
	cached    Value
	hasCached bool
}

// Evaluate returns the cached value, computing it on first call.
func (n *CachedValueNode) Evaluate(ctx *GraphContext) Value {
	if !n.hasCached {
		n.cached = n.Source.Evaluate(ctx)
		n.hasCached = true
	}
	return n.cached
}

// Reset clears the cache so the next Evaluate recomputes.
func (n *CachedValueNode) Reset() { n.hasCached = false }

// ComparisonOp is a binary relational operator over two float values.
type ComparisonOp int

// Comparison operators.
const (
	CompareEqual ComparisonOp = iota
	CompareNotEqual
	CompareGreater
	CompareGreaterOrEqual
	CompareLess
	CompareLessOrEqual
)

// ComparisonValueNode evaluates Left `Op` Right into a ValueBool —
// the condition value node a transition conduit gates on (spec.md §4.11).
type ComparisonValueNode struct {
	Left, Right ValueNode
	Op          ComparisonOp
}

// Evaluate computes the comparison.
func (n *ComparisonValueNode) Evaluate(ctx *GraphContext) Value {
	l := n.Left.Evaluate(ctx).Float
	r := n.Right.Evaluate(ctx).Float
	var b bool
	switch n.Op {
	case CompareEqual:
		b = l == r
	case CompareNotEqual:
		b = l != r
	case CompareGreater:
		b = l > r
	case CompareGreaterOrEqual:
		b = l >= r
	case CompareLess:
		b = l < r
	case CompareLessOrEqual:
		b = l <= r
	}
	return Value{Type: ValueBool, Bool: b}
}

// TargetValueNode resolves a world-space target transform, e.g. for a
// TargetWarpNode — it is ordinarily backed by an ExternalParameterNode
// but kept as its own named type since a missing/invalid target is a
// distinct ResourceUnavailable-adjacent condition (spec.md §4.12 step 1).
type TargetValueNode struct {
	Source ValueNode
	Valid  bool
}

// Evaluate returns the source's target value with Bool carrying n.Valid —
// a TargetWarpNode disables warping when Bool comes back false (spec.md
// §4.12 step 1). A nil Source always reports invalid.
func (n *TargetValueNode) Evaluate(ctx *GraphContext) Value {
	if n.Source == nil {
		return Value{Type: ValueTarget}
	}
	v := n.Source.Evaluate(ctx)
	v.Type = ValueTarget
	v.Bool = n.Valid
	return v
}
