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
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dolthub/lazycc/chunksource"
	"github.com/dolthub/lazycc/chunkstore"
	"github.com/dolthub/lazycc/config"
	"github.com/dolthub/lazycc/geom"
	"github.com/dolthub/lazycc/internal/lzerr"
	"github.com/dolthub/lazycc/internal/lzlog"
	"github.com/dolthub/lazycc/internal/unionfind"
)

// Engine is the public entry point described by the design's external
// interface: it owns the union-find table, the chunk registry, the
// label manager, and the growth engine, and exposes Compute and
// Invalidate over a fixed input source and chunk store.
type Engine struct {
	mu sync.RWMutex // guards swapping reg/tm/uf wholesale on Invalidate

	src   chunksource.Source
	store chunkstore.Store

	chunkShape         [3]int32
	gridShape          [3]int32
	maxConcurrentGrows int

	uf  *unionfind.Table
	reg *registry
	tm  *ticketManager
	gr  *growthEngine
}

// New validates cfg against src and constructs an Engine ready to
// serve Compute requests, using chunksource.DefaultPrimitive to label
// each chunk. It returns lzerr.ShapeMismatch if cfg.Chunk.Shape has a
// non-positive axis or a dimensionality mismatch against src, and
// lzerr.UnsupportedDtype if src's dtype isn't one DefaultPrimitive can
// handle. A nil log defaults to lzlog.NopLogger{}.
func New(cfg config.Config, src chunksource.Source, store chunkstore.Store, log lzlog.Logger) (*Engine, error) {
	return newEngine(cfg, src, store, log, chunksource.DefaultPrimitive)
}

// NewWithPrimitive is New, but with an explicit labeling primitive in
// place of chunksource.DefaultPrimitive — used by callers (tests, or a
// deployment with its own segmentation logic) that validate dtype
// themselves.
func NewWithPrimitive(cfg config.Config, src chunksource.Source, store chunkstore.Store, log lzlog.Logger, prim chunksource.LabelPrimitive) (*Engine, error) {
	return newEngine(cfg, src, store, log, prim)
}

func newEngine(cfg config.Config, src chunksource.Source, store chunkstore.Store, log lzlog.Logger, prim chunksource.LabelPrimitive) (*Engine, error) {
	chunkShape := cfg.Chunk.Shape
	for i := 0; i < 3; i++ {
		if chunkShape[i] <= 0 {
			return nil, lzerr.New(lzerr.ShapeMismatch, "labeling.New", nil)
		}
	}

	if prim == chunksource.DefaultPrimitive {
		switch src.Dtype() {
		case geom.U8, geom.U32, geom.U64:
		default:
			return nil, lzerr.New(lzerr.UnsupportedDtype, "labeling.New", nil)
		}
	}

	if log == nil {
		log = lzlog.NopLogger{}
	}

	e := &Engine{
		src:                src,
		store:              store,
		chunkShape:         chunkShape,
		gridShape:          gridShapeFor(src.Shape(), chunkShape),
		maxConcurrentGrows: cfg.Engine.MaxConcurrentGrows,
	}
	e.resetLocked(src, store, prim, log)
	return e, nil
}

// estimateCapacity sizes the union-find table's initial backing array
// from the grid's chunk count, the way the original sizes its
// UnionFindArray up front instead of growing one index at a time. Four
// labels per chunk is a deliberately rough but cheap-to-compute guess;
// MakeNewIndices still grows the table past this on any chunk with
// more components.
func estimateCapacity(gridShape [3]int32) int {
	chunks := int64(gridShape[0]) * int64(gridShape[1]) * int64(gridShape[2])
	const labelsPerChunkGuess = 4
	return int(chunks * labelsPerChunkGuess)
}

func (e *Engine) resetLocked(src chunksource.Source, store chunkstore.Store, prim chunksource.LabelPrimitive, log lzlog.Logger) {
	e.uf = unionfind.New(estimateCapacity(e.gridShape))
	e.reg = newRegistry(e.chunkShape, src, prim, store, e.uf, log)
	e.tm = newTicketManager()
	e.gr = newGrowthEngine(e.reg, e.tm)
}

// Compute labels and returns the requested region. It decomposes
// region into the chunks it intersects, grows each into a fully
// finalized component (consulting and registering with the label
// manager so overlapping concurrent requests never double-finalize a
// label), waits for any other in-flight request whose claims this one
// depends on, and then maps every chunk's local labels to the final,
// contiguous label space.
func (e *Engine) Compute(ctx context.Context, region geom.Box) (*Block, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	seeds := chunksIntersecting(region, e.chunkShape, e.gridShape)

	foreignSeen := make(map[uint64]struct{})
	var mu sync.Mutex

	eg, gctx := errgroup.WithContext(ctx)
	if e.maxConcurrentGrows > 0 {
		eg.SetLimit(e.maxConcurrentGrows)
	}
	for _, seed := range seeds {
		seed := seed
		eg.Go(func() error {
			foreign, err := e.gr.grow(gctx, seed, e.gridShape)
			if err != nil {
				return err
			}
			mu.Lock()
			for _, id := range foreign {
				foreignSeen[id] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	waitIDs := make([]uint64, 0, len(foreignSeen))
	for id := range foreignSeen {
		waitIDs = append(waitIDs, id)
	}
	if err := e.tm.waitFor(ctx, waitIDs); err != nil {
		return nil, err
	}

	shape := region.Shape()
	block := newBlock(shape)
	if err := e.reg.mapOutput(ctx, region, e.chunkShape, e.gridShape, block); err != nil {
		return nil, err
	}
	return block, nil
}

// Invalidate discards all labeling progress: every chunk becomes
// unlabeled again, the union-find table is emptied, and every
// outstanding ticket claim is dropped. It also resets the backing
// chunk store, since stored local labels are only meaningful relative
// to the union-find and registry state that produced them. Callers
// must not have any Compute call in flight when calling Invalidate.
func (e *Engine) Invalidate(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.Reset(ctx); err != nil {
		return lzerr.Wrap(lzerr.IOUpstream, "Invalidate.Reset", err, "")
	}

	prim := e.reg.prim
	log := e.reg.log
	e.resetLocked(e.src, e.store, prim, log)
	return nil
}
