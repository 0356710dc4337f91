// Copyright 2024 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package unionfind implements a concurrent disjoint-set structure
// over a dense, growable space of uint32 indices, plus a monotonic
// finalize step that promotes each root to a contiguous label the
// first time it is observed.
package unionfind

import (
	"sync"

	"github.com/dolthub/lazycc/internal/lzerr"
)

// Table is a thread-safe union-find over [0, N) for a growable N. The
// zero value is not usable; construct with New.
//
// A single mutex protects both the parent array and the finalize map.
// Contention is bounded in practice because most operations occur
// inside boundary-merge critical sections that are already serialized
// by per-chunk locks (see package labeling); find is not the hot path.
type Table struct {
	mu     sync.Mutex
	parent []uint32

	nextFinal uint32
	final     map[uint32]uint32 // root index -> final label, allocated lazily
}

// New returns an empty table. Capacity is a hint for the initial
// parent-array allocation (grown automatically as needed by
// MakeNewIndex); it need not be exact.
func New(capacity int) *Table {
	if capacity < 0 {
		capacity = 0
	}
	return &Table{
		parent: make([]uint32, 0, capacity),
		final:  make(map[uint32]uint32),
	}
}

// MakeNewIndex appends one new singleton element and returns its
// index.
func (t *Table) MakeNewIndex() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	u := uint32(len(t.parent))
	t.parent = append(t.parent, u)
	return u
}

// MakeNewIndices appends n new singleton elements and returns the
// index of the first one; the rest are contiguous. This is the bulk
// form label_if_needed uses to allocate a whole chunk's worth of
// global indices at once.
func (t *Table) MakeNewIndices(n uint32) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	first := uint32(len(t.parent))
	for i := uint32(0); i < n; i++ {
		t.parent = append(t.parent, first+i)
	}
	return first
}

// Find returns the representative (root) of a's set. The walk does
// not mutate shared state, so it is safe to call without holding the
// lock across the whole walk; we still take the lock per the
// teacher's "under lock is acceptable given expected tree depths stay
// near-constant" guidance, since reads must not race with a
// concurrent MakeNewIndex/MakeNewIndices append to the parent slice
// (slice growth can reallocate the backing array).
func (t *Table) Find(a uint32) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.findLocked(a)
}

func (t *Table) findLocked(a uint32) uint32 {
	lzerr.Invariant(int(a) < len(t.parent), "unionfind: index %d out of range (size %d)", a, len(t.parent))
	for t.parent[a] != a {
		a = t.parent[a]
	}
	return a
}

// Union merges the sets containing a and b. The root with the larger
// index is attached under the root with the smaller index, so roots
// are stable: a root, once created, never moves to a different root
// except by being subsumed by a strictly smaller index.
func (t *Table) Union(a, b uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ra := t.findLocked(a)
	rb := t.findLocked(b)
	if ra == rb {
		return
	}
	if ra < rb {
		t.parent[rb] = ra
	} else {
		t.parent[ra] = rb
	}
}

// Finalize returns the contiguous final label for find(index),
// allocating the next final label on first observation of that root.
// Every later Finalize of an index that resolves to that same root
// returns the same final label. Labels are keyed by root: if a later
// Union attaches a finalized root under a smaller, not yet finalized
// root, the next Finalize allocates a fresh label for that new root.
func (t *Table) Finalize(index uint32) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	root := t.findLocked(index)
	if lbl, ok := t.final[root]; ok {
		return lbl
	}
	t.nextFinal++
	t.final[root] = t.nextFinal
	return t.nextFinal
}

// Len returns the number of indices ever allocated.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.parent)
}

// NumFinal returns the number of distinct final labels allocated so
// far (the N in the "final labels form {1..N}" invariant).
func (t *Table) NumFinal() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextFinal
}
