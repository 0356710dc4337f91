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

// Package chunkstore is the compressed chunk store collaborator: a
// keyed container of 3D arrays of local label ids, supporting slab
// read/write by chunk coordinate. package labeling treats a Store as
// a black box; this package supplies three interchangeable
// implementations (in-memory, local disk, S3), all built around the
// same wire shape so any one of them can back the same engine.
package chunkstore

import (
	"context"

	"github.com/dolthub/lazycc/geom"
)

// Store is the chunk-local-label container the engine reads from and
// writes to. Once a chunk has been written, its payload is immutable
// for the remainder of that input version (package labeling never
// calls WriteChunk twice for the same coord without an intervening
// Reset).
type Store interface {
	// WriteChunk stores the local-label volume for coord. shape is
	// the chunk's actual (possibly truncated) extent; labels has
	// shape[0]*shape[1]*shape[2] elements, row-major x,y,z.
	WriteChunk(ctx context.Context, coord geom.ChunkCoord, shape [3]int32, labels []uint32) error
	// ReadSlab reads the sub-volume box (in the chunk's local
	// coordinates) of a previously written chunk.
	ReadSlab(ctx context.Context, coord geom.ChunkCoord, box geom.LocalBox) ([]uint32, error)
	// Has reports whether coord has been written since the last
	// Reset.
	Has(ctx context.Context, coord geom.ChunkCoord) (bool, error)
	// Reset drops all stored chunks. Whether this frees the
	// underlying storage or only makes it logically unreachable is an
	// implementation choice; package labeling never depends on which.
	Reset(ctx context.Context) error
}

// sliceSlab extracts box from a dense, row-major shape-sized uint32
// volume. Shared by every backend so the slicing logic is written
// and tested once.
func sliceSlab(shape [3]int32, data []uint32, box geom.LocalBox) []uint32 {
	s := box.Shape()
	out := make([]uint32, int(s[0])*int(s[1])*int(s[2]))
	i := 0
	for x := box.Min[0]; x < box.Max[0]; x++ {
		for y := box.Min[1]; y < box.Max[1]; y++ {
			for z := box.Min[2]; z < box.Max[2]; z++ {
				idx := int(x)*int(shape[1])*int(shape[2]) + int(y)*int(shape[2]) + int(z)
				out[i] = data[idx]
				i++
			}
		}
	}
	return out
}
