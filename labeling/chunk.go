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

// Package labeling implements the lazy, chunked connected-component
// labeling engine: the union-find, the chunk registry, the label
// manager, the boundary merger, the region-growing finalization
// engine, and the output mapper described in the design.
package labeling

import "github.com/dolthub/lazycc/geom"

// chunkState is a chunk's position in its (only) lifecycle:
// unlabeled, then labeled, for the lifetime of one input version.
type chunkState int

const (
	unlabeled chunkState = iota
	labeledState
)

// chunk is the per-chunk registry record. Its fields are only ever
// mutated while the registry's per-coordinate keymutex lock is held
// (see registry.withChunkLocked); that lock is the "mutex" the design
// calls out as part of this entity, implemented once in the registry
// rather than allocated per chunk up front.
type chunk struct {
	state  chunkState
	shape  [3]int32 // actual (possibly truncated) extent; valid once labeled
	offset uint32   // global_index = local_label + offset - 1, for local_label >= 1
	// numLabels is the chunk's label count, excluding background.
	// -1 means "not yet labeled"; it is also readable through
	// the sentinel unlabeledNumLabels for clarity at call sites.
	numLabels  int32
	mergedWith map[geom.ChunkCoord]struct{}
}

const unlabeledNumLabels = int32(-1)

func newChunk() *chunk {
	return &chunk{
		state:      unlabeled,
		numLabels:  unlabeledNumLabels,
		mergedWith: make(map[geom.ChunkCoord]struct{}),
	}
}

// localLabels returns 1..numLabels, i.e. every non-background local
// label this chunk currently has. Must only be called once the chunk
// is labeled.
func (c *chunk) localLabels() []uint32 {
	n := int(c.numLabels)
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = uint32(i + 1)
	}
	return out
}

// globalIndex maps a local label (0 = background, or 1..numLabels) to
// its global union-find index.
func (c *chunk) globalIndex(local uint32) uint32 {
	if local == 0 {
		return 0
	}
	return local + c.offset - 1
}
