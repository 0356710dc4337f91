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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/lazycc/geom"
)

func TestMemSourceReadChunkClipsTrailingChunk(t *testing.T) {
	// A 5-voxel axis with chunk width 3 has a trailing chunk of width 2.
	src := NewMemSource([3]int64{5, 1, 1}, geom.U32)
	for x := int64(0); x < 5; x++ {
		src.Set(x, 0, 0, uint64(x)+1)
	}

	raw, err := src.ReadChunk(context.Background(), geom.ChunkCoord{1, 0, 0}, [3]int32{3, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, [3]int32{2, 1, 1}, raw.Shape)
	assert.Equal(t, uint64(4), raw.At(0, 0, 0))
	assert.Equal(t, uint64(5), raw.At(1, 0, 0))
}

func TestMemSourceReadChunkOriginUsesNominalShape(t *testing.T) {
	// Chunk (2,0,0) must start at voxel 6 (2*3), not 4 (2*2), even
	// though its own actual clipped shape is [2,1,1].
	src := NewMemSource([3]int64{8, 1, 1}, geom.U32)
	for x := int64(0); x < 8; x++ {
		src.Set(x, 0, 0, uint64(x)+100)
	}

	raw, err := src.ReadChunk(context.Background(), geom.ChunkCoord{2, 0, 0}, [3]int32{3, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, [3]int32{2, 1, 1}, raw.Shape)
	assert.Equal(t, uint64(106), raw.At(0, 0, 0))
	assert.Equal(t, uint64(107), raw.At(1, 0, 0))
}

func TestCCLabelSixConnectivityRequiresEqualValues(t *testing.T) {
	// Two foreground runs of different raw values, adjacent, must not
	// merge into one label even though both are nonzero.
	raw := RawChunk{
		Shape: [3]int32{1, 4, 1},
		Data:  []uint64{5, 5, 7, 7},
	}
	labels, numLabels, err := DefaultPrimitive.Label(raw)
	require.NoError(t, err)
	assert.EqualValues(t, 2, numLabels)
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[2], labels[3])
	assert.NotEqual(t, labels[0], labels[2])
}

func TestCCLabelBackgroundStaysZero(t *testing.T) {
	raw := RawChunk{
		Shape: [3]int32{1, 3, 1},
		Data:  []uint64{0, 9, 0},
	}
	labels, numLabels, err := DefaultPrimitive.Label(raw)
	require.NoError(t, err)
	assert.EqualValues(t, 1, numLabels)
	assert.Equal(t, uint32(0), labels[0])
	assert.NotEqual(t, uint32(0), labels[1])
	assert.Equal(t, uint32(0), labels[2])
}

func TestNewMemSourceFromBytesRoundTrips(t *testing.T) {
	shape := [3]int64{2, 2, 1}
	raw := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0, 4, 0, 0, 0} // u32 little-endian
	src, err := NewMemSourceFromBytes(shape, geom.U32, raw)
	require.NoError(t, err)

	rc, err := src.ReadChunk(context.Background(), geom.ChunkCoord{0, 0, 0}, [3]int32{2, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rc.At(0, 0, 0))
	assert.Equal(t, uint64(4), rc.At(1, 1, 0))
}

func TestNewMemSourceFromBytesRejectsWrongLength(t *testing.T) {
	_, err := NewMemSourceFromBytes([3]int64{2, 2, 1}, geom.U32, []byte{1, 2, 3})
	assert.Error(t, err)
}
