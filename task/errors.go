// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package task

import "errors"

// ErrDependencyCycle is logged (never returned past the tick boundary by
// the graph) when a task's transitive closure of pre-physics dependencies
// would require a post-physics task — a co-dependent cycle spec.md §4.13
// resolves by falling back to a reference-pose task.
var ErrDependencyCycle = errors.New("animgraph/task: pre/post-physics dependency cycle")

// Observer optionally receives debug notifications as tasks are
// registered (spec.md §9); the graph package implements the richer
// Observer interface this satisfies a subset of.
type Observer interface {
	OnTaskRegistered(index int, kind Kind, sourceNodeIndex int)
}
