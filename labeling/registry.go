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

	"github.com/dolthub/lazycc/chunksource"
	"github.com/dolthub/lazycc/chunkstore"
	"github.com/dolthub/lazycc/geom"
	"github.com/dolthub/lazycc/internal/concurrentmap"
	"github.com/dolthub/lazycc/internal/keymutex"
	"github.com/dolthub/lazycc/internal/lzerr"
	"github.com/dolthub/lazycc/internal/lzlog"
	"github.com/dolthub/lazycc/internal/unionfind"
)

// registry is the chunk registry (component C): per-chunk labeling
// state plus the per-chunk exclusion needed to label or merge a chunk
// exactly once.
type registry struct {
	chunkShape [3]int32
	src        chunksource.Source
	prim       chunksource.LabelPrimitive
	store      chunkstore.Store
	uf         *unionfind.Table
	log        lzlog.Logger

	chunks *concurrentmap.Map[geom.ChunkCoord, *chunk]
	locks  keymutex.Keymutex
}

func newRegistry(chunkShape [3]int32, src chunksource.Source, prim chunksource.LabelPrimitive, store chunkstore.Store, uf *unionfind.Table, log lzlog.Logger) *registry {
	return &registry{
		chunkShape: chunkShape,
		src:        src,
		prim:       prim,
		store:      store,
		uf:         uf,
		log:        log,
		chunks:     concurrentmap.New[geom.ChunkCoord, *chunk](),
		locks:      keymutex.NewMapped(),
	}
}

// getOrInit lazily creates a chunk record.
func (r *registry) getOrInit(coord geom.ChunkCoord) *chunk {
	return r.chunks.GetOrInit(coord, newChunk)
}

// withChunkLocked takes coord's exclusion lock and invokes fn with
// the chunk record.
func (r *registry) withChunkLocked(ctx context.Context, coord geom.ChunkCoord, fn func(c *chunk) error) error {
	if err := r.locks.Lock(ctx, coord); err != nil {
		return err
	}
	defer r.locks.Unlock(coord)
	return fn(r.getOrInit(coord))
}

// withChunksLocked takes both coords' exclusion locks, always in
// lexicographic order, to avoid deadlock against any other pair of
// chunks being locked concurrently elsewhere.
func (r *registry) withChunksLocked(ctx context.Context, a, b geom.ChunkCoord, fn func(ca, cb *chunk) error) error {
	lzerr.Invariant(a != b, "labeling: withChunksLocked called with identical coords %v", a)
	first, second := a, b
	if b.Less(a) {
		first, second = b, a
	}
	if err := r.locks.Lock(ctx, first); err != nil {
		return err
	}
	defer r.locks.Unlock(first)
	if err := r.locks.Lock(ctx, second); err != nil {
		return err
	}
	defer r.locks.Unlock(second)

	ca := r.getOrInit(a)
	cb := r.getOrInit(b)
	return fn(ca, cb)
}

// labelIfNeeded labels coord exactly once per input version: reads
// the raw sub-volume, runs the labeling primitive, writes the result
// to the chunk store, and allocates one global index per local label.
// Must be called with coord's lock held.
func (r *registry) labelIfNeeded(ctx context.Context, coord geom.ChunkCoord, c *chunk) error {
	if c.state == labeledState {
		return nil
	}

	raw, err := r.src.ReadChunk(ctx, coord, r.chunkShape)
	if err != nil {
		return lzerr.Wrap(lzerr.IOUpstream, "labelIfNeeded.ReadChunk", err, coord.String())
	}

	labels, numLabels, err := r.prim.Label(raw)
	if err != nil {
		return lzerr.Wrap(lzerr.Internal, "labelIfNeeded.Label", err, coord.String())
	}

	if err := r.store.WriteChunk(ctx, coord, raw.Shape, labels); err != nil {
		return lzerr.Wrap(lzerr.IOUpstream, "labelIfNeeded.WriteChunk", err, coord.String())
	}

	offset := uint32(0)
	if numLabels > 0 {
		offset = r.uf.MakeNewIndices(numLabels)
	}

	c.shape = raw.Shape
	c.numLabels = int32(numLabels)
	c.offset = offset
	c.state = labeledState

	r.log.Debugw("labeled chunk", "coord", coord.String(), "numLabels", numLabels, "offset", offset)
	return nil
}

// ensureLabeled is labelIfNeeded plus the chunk's own lock
// acquisition, for call sites that don't already hold it.
func (r *registry) ensureLabeled(ctx context.Context, coord geom.ChunkCoord) (*chunk, error) {
	var result *chunk
	err := r.withChunkLocked(ctx, coord, func(c *chunk) error {
		if err := r.labelIfNeeded(ctx, coord, c); err != nil {
			return err
		}
		result = c
		return nil
	})
	return result, err
}
