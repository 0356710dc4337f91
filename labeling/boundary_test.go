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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/lazycc/chunksource"
	"github.com/dolthub/lazycc/chunkstore"
	"github.com/dolthub/lazycc/geom"
	"github.com/dolthub/lazycc/internal/lzlog"
	"github.com/dolthub/lazycc/internal/unionfind"
)

func newTestRegistry(src chunksource.Source, chunkShape [3]int32) *registry {
	return newRegistry(chunkShape, src, chunksource.DefaultPrimitive, chunkstore.NewMemory(), unionfind.New(0), lzlog.NopLogger{})
}

// TestMergeBoundaryIdempotent is testable property 4: calling
// boundary_merge(a, b) twice has no effect beyond the first call.
func TestMergeBoundaryIdempotent(t *testing.T) {
	ctx := context.Background()
	chunkShape := [3]int32{3, 3, 1}
	src := chunksource.NewMemSource([3]int64{6, 3, 1}, geom.U32)
	// One foreground run straddling the boundary between chunk (0,0,0)
	// and chunk (1,0,0), all sharing raw value 1.
	src.SetBox([3]int64{2, 0, 0}, [3]int64{4, 1, 1}, 1)

	reg := newTestRegistry(src, chunkShape)
	lo, hi := geom.ChunkCoord{0, 0, 0}, geom.ChunkCoord{1, 0, 0}

	pairs1, err := reg.mergeBoundary(ctx, lo, hi)
	require.NoError(t, err)
	require.NotEmpty(t, pairs1)
	root1 := reg.uf.Find(reg.getOrInit(lo).globalIndex(pairs1[0].lo))
	numFinalBefore := reg.uf.NumFinal()

	pairs2, err := reg.mergeBoundary(ctx, lo, hi)
	require.NoError(t, err)
	assert.Equal(t, pairs1, pairs2, "second call must report the same face correspondence")

	root2 := reg.uf.Find(reg.getOrInit(lo).globalIndex(pairs2[0].lo))
	assert.Equal(t, root1, root2, "second call must not change the union-find state")
	assert.Equal(t, numFinalBefore, reg.uf.NumFinal(), "idempotent merge must not allocate final labels")
}

func TestMergeBoundaryRequiresRawEquality(t *testing.T) {
	ctx := context.Background()
	chunkShape := [3]int32{3, 3, 1}
	src := chunksource.NewMemSource([3]int64{6, 3, 1}, geom.U32)
	// Foreground on both sides of the boundary, but different raw
	// values: must not merge (the stricter "both nonzero AND raw
	// inputs equal" rule).
	src.SetBox([3]int64{2, 0, 0}, [3]int64{3, 1, 1}, 5)
	src.SetBox([3]int64{3, 0, 0}, [3]int64{4, 1, 1}, 9)

	reg := newTestRegistry(src, chunkShape)
	lo, hi := geom.ChunkCoord{0, 0, 0}, geom.ChunkCoord{1, 0, 0}

	pairs, err := reg.mergeBoundary(ctx, lo, hi)
	require.NoError(t, err)
	assert.Empty(t, pairs, "differing raw values across the boundary must not be paired")
}

func TestMergeBoundaryIgnoresBackground(t *testing.T) {
	ctx := context.Background()
	chunkShape := [3]int32{3, 3, 1}
	src := chunksource.NewMemSource([3]int64{6, 3, 1}, geom.U32)
	// Nothing is foreground; labelIfNeeded still runs but no pairs form.
	reg := newTestRegistry(src, chunkShape)
	lo, hi := geom.ChunkCoord{0, 0, 0}, geom.ChunkCoord{1, 0, 0}

	pairs, err := reg.mergeBoundary(ctx, lo, hi)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestDiffAxisRejectsNonAdjacent(t *testing.T) {
	_, ok := diffAxis(geom.ChunkCoord{0, 0, 0}, geom.ChunkCoord{2, 0, 0})
	assert.False(t, ok)

	_, ok = diffAxis(geom.ChunkCoord{0, 0, 0}, geom.ChunkCoord{1, 1, 0})
	assert.False(t, ok)

	axis, ok := diffAxis(geom.ChunkCoord{0, 0, 0}, geom.ChunkCoord{0, 1, 0})
	assert.True(t, ok)
	assert.Equal(t, 1, axis)
}
