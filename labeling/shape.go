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

import "github.com/dolthub/lazycc/geom"

// gridShapeFor returns the number of chunks per axis for an input of
// the given shape and chunk shape, rounding up so a trailing partial
// chunk still gets a grid cell.
func gridShapeFor(inputShape [3]int64, chunkShape [3]int32) [3]int32 {
	var g [3]int32
	for i := 0; i < 3; i++ {
		n := inputShape[i] / int64(chunkShape[i])
		if inputShape[i]%int64(chunkShape[i]) != 0 {
			n++
		}
		g[i] = int32(n)
	}
	return g
}

// chunksIntersecting returns every chunk coordinate whose voxel
// extent intersects box.
func chunksIntersecting(box geom.Box, chunkShape [3]int32, gridShape [3]int32) []geom.ChunkCoord {
	var lo, hi [3]int32
	for i := 0; i < 3; i++ {
		lo[i] = int32(box.Min[i] / int64(chunkShape[i]))
		// box.Max is exclusive; the last included voxel is Max[i]-1.
		last := box.Max[i] - 1
		hi[i] = int32(last / int64(chunkShape[i]))
		if hi[i] >= gridShape[i] {
			hi[i] = gridShape[i] - 1
		}
		if lo[i] < 0 {
			lo[i] = 0
		}
	}
	var out []geom.ChunkCoord
	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for z := lo[2]; z <= hi[2]; z++ {
				out = append(out, geom.ChunkCoord{x, y, z})
			}
		}
	}
	return out
}

// chunkVoxelBox returns the voxel-coordinate box a chunk occupies,
// given its recorded actual shape.
func chunkVoxelBox(coord geom.ChunkCoord, chunkShape [3]int32, actualShape [3]int32) geom.Box {
	var b geom.Box
	for i := 0; i < 3; i++ {
		b.Min[i] = int64(coord[i]) * int64(chunkShape[i])
		b.Max[i] = b.Min[i] + int64(actualShape[i])
	}
	return b
}
