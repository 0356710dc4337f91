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

package chunksource

import (
	"context"
	"fmt"

	"github.com/dolthub/lazycc/geom"
)

// MemSource is a dense, in-process volume. It is the Source used by
// tests, the reference labeler, and small CLI invocations.
type MemSource struct {
	shape [3]int64
	dtype geom.Dtype
	data  []uint64 // row-major x,y,z
}

// NewMemSource builds a MemSource of the given shape and dtype, all
// zero (background).
func NewMemSource(shape [3]int64, dtype geom.Dtype) *MemSource {
	n := shape[0] * shape[1] * shape[2]
	return &MemSource{shape: shape, dtype: dtype, data: make([]uint64, n)}
}

// NewMemSourceFromBytes decodes a headerless raw volume: shape[0] *
// shape[1] * shape[2] elements, each dtype.Size() bytes wide,
// little-endian, row-major x,y,z.
func NewMemSourceFromBytes(shape [3]int64, dtype geom.Dtype, raw []byte) (*MemSource, error) {
	width := dtype.Size()
	n := shape[0] * shape[1] * shape[2]
	if int64(len(raw)) != n*int64(width) {
		return nil, fmt.Errorf("chunksource: expected %d bytes for shape %v at dtype %s, got %d", n*int64(width), shape, dtype, len(raw))
	}

	m := &MemSource{shape: shape, dtype: dtype, data: make([]uint64, n)}
	for i := int64(0); i < n; i++ {
		off := i * int64(width)
		var v uint64
		for b := 0; b < width; b++ {
			v |= uint64(raw[off+int64(b)]) << (8 * b)
		}
		m.data[i] = v
	}
	return m, nil
}

func (m *MemSource) Shape() [3]int64   { return m.shape }
func (m *MemSource) Dtype() geom.Dtype { return m.dtype }

func (m *MemSource) index(x, y, z int64) int64 {
	return x*m.shape[1]*m.shape[2] + y*m.shape[2] + z
}

// Set writes one voxel value. It is meant for test setup, not for
// production use, and is not safe to call concurrently with reads.
func (m *MemSource) Set(x, y, z int64, v uint64) {
	m.data[m.index(x, y, z)] = v
}

// SetBox fills every voxel in [min, max) with v.
func (m *MemSource) SetBox(min, max [3]int64, v uint64) {
	for x := min[0]; x < max[0]; x++ {
		for y := min[1]; y < max[1]; y++ {
			for z := min[2]; z < max[2]; z++ {
				m.Set(x, y, z, v)
			}
		}
	}
}

func (m *MemSource) ReadChunk(_ context.Context, coord geom.ChunkCoord, nominalShape [3]int32) (RawChunk, error) {
	origin := [3]int64{int64(coord[0]) * int64(nominalShape[0]), int64(coord[1]) * int64(nominalShape[1]), int64(coord[2]) * int64(nominalShape[2])}
	var shape [3]int32
	for i := 0; i < 3; i++ {
		rem := m.shape[i] - origin[i]
		if rem < 0 {
			rem = 0
		}
		if int64(nominalShape[i]) < rem {
			shape[i] = nominalShape[i]
		} else {
			shape[i] = int32(rem)
		}
	}

	n := int(shape[0]) * int(shape[1]) * int(shape[2])
	out := make([]uint64, n)
	i := 0
	for x := int32(0); x < shape[0]; x++ {
		for y := int32(0); y < shape[1]; y++ {
			for z := int32(0); z < shape[2]; z++ {
				out[i] = m.data[m.index(origin[0]+int64(x), origin[1]+int64(y), origin[2]+int64(z))]
				i++
			}
		}
	}
	return RawChunk{Shape: shape, Data: out}, nil
}
