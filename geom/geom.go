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

// Package geom holds the small coordinate and shape types shared by
// chunksource, chunkstore, and labeling, kept separate from all three
// so none of them needs to import another to talk about geometry.
package geom

import "fmt"

// Dtype tags the allowed element types of an input volume. The core
// engine only ever sees uint32 local labels; Dtype exists purely at
// the boundary to validate input and to widen samples for comparison.
type Dtype uint8

const (
	U8 Dtype = iota
	U32
	U64
)

// Size returns the element width in bytes for dtype d.
func (d Dtype) Size() int {
	switch d {
	case U8:
		return 1
	case U32:
		return 4
	case U64:
		return 8
	default:
		return 0
	}
}

func (d Dtype) String() string {
	switch d {
	case U8:
		return "uint8"
	case U32:
		return "uint32"
	case U64:
		return "uint64"
	default:
		return "unknown"
	}
}

// ChunkCoord addresses one chunk in the chunk grid (not input voxel
// coordinates). It is used as a map/keymutex key, so it is a plain
// comparable array rather than a slice.
type ChunkCoord [3]int32

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c[0], c[1], c[2])
}

// Less gives ChunkCoord a lexicographic total order on x, then y,
// then z. Boundary merges and two-chunk lock acquisition both rely on
// this order to process each face exactly once and to avoid deadlock.
func (c ChunkCoord) Less(o ChunkCoord) bool {
	if c[0] != o[0] {
		return c[0] < o[0]
	}
	if c[1] != o[1] {
		return c[1] < o[1]
	}
	return c[2] < o[2]
}

// Box is a half-open 3D region in input voxel coordinates: [Min,
// Max).
type Box struct {
	Min, Max [3]int64
}

// Shape returns Max-Min per axis.
func (b Box) Shape() [3]int64 {
	return [3]int64{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// Empty reports whether the box has zero volume along any axis.
func (b Box) Empty() bool {
	s := b.Shape()
	return s[0] <= 0 || s[1] <= 0 || s[2] <= 0
}

// Intersect returns the overlap of b and o; the result is Empty if
// they do not overlap.
func (b Box) Intersect(o Box) Box {
	var r Box
	for i := 0; i < 3; i++ {
		if b.Min[i] > o.Min[i] {
			r.Min[i] = b.Min[i]
		} else {
			r.Min[i] = o.Min[i]
		}
		if b.Max[i] < o.Max[i] {
			r.Max[i] = b.Max[i]
		} else {
			r.Max[i] = o.Max[i]
		}
	}
	return r
}

// LocalBox is a half-open region expressed in one chunk's local voxel
// coordinates, i.e. [0, chunkShape) per axis.
type LocalBox struct {
	Min, Max [3]int32
}

func (b LocalBox) Shape() [3]int32 {
	return [3]int32{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}
