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

package labeling

import (
	"context"

	"github.com/dolthub/lazycc/geom"
	"github.com/dolthub/lazycc/internal/lzerr"
)

// Block is a dense result buffer: final labels for a requested
// region, in the same shape, row-major x,y,z.
type Block struct {
	Shape [3]int64
	Data  []uint32
}

func newBlock(shape [3]int64) *Block {
	n := shape[0] * shape[1] * shape[2]
	return &Block{Shape: shape, Data: make([]uint32, n)}
}

func (b *Block) index(x, y, z int64) int64 {
	return x*b.Shape[1]*b.Shape[2] + y*b.Shape[2] + z
}

// mapOutput is the output mapper (component G): it walks every chunk
// intersecting region, builds that chunk's local-to-final mapping
// table, reads the stored local labels for the overlap, and writes
// final labels into block. By the time this runs, every ticket whose
// claims could affect region has already been waited on by the
// caller, so every union this mapping could need has been committed.
func (r *registry) mapOutput(ctx context.Context, region geom.Box, chunkShape [3]int32, gridShape [3]int32, block *Block) error {
	for _, coord := range chunksIntersecting(region, chunkShape, gridShape) {
		c := r.getOrInit(coord)
		lzerr.Invariant(c.state == labeledState, "labeling: mapOutput visited unlabeled chunk %v", coord)

		table := make([]uint32, c.numLabels+1)
		for i := uint32(1); i <= uint32(c.numLabels); i++ {
			table[i] = r.uf.Finalize(c.globalIndex(i))
		}

		voxelBox := chunkVoxelBox(coord, chunkShape, c.shape)
		overlap := voxelBox.Intersect(region)
		if overlap.Empty() {
			continue
		}

		var local geom.LocalBox
		for i := 0; i < 3; i++ {
			local.Min[i] = int32(overlap.Min[i] - voxelBox.Min[i])
			local.Max[i] = int32(overlap.Max[i] - voxelBox.Min[i])
		}

		slab, err := r.store.ReadSlab(ctx, coord, local)
		if err != nil {
			return lzerr.Wrap(lzerr.IOUpstream, "mapOutput.ReadSlab", err, coord.String())
		}

		i := 0
		for x := overlap.Min[0]; x < overlap.Max[0]; x++ {
			for y := overlap.Min[1]; y < overlap.Max[1]; y++ {
				for z := overlap.Min[2]; z < overlap.Max[2]; z++ {
					block.Data[block.index(x-region.Min[0], y-region.Min[1], z-region.Min[2])] = table[slab[i]]
					i++
				}
			}
		}
	}
	return nil
}
