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
)

// growthEngine drives region-growing finalization (component F): from
// a seed chunk, it labels and merges outward across chunk boundaries
// until every component touching the seed has been fully traced, and
// every local label it is responsible for has been claimed by exactly
// one ticket.
type growthEngine struct {
	reg *registry
	tm  *ticketManager
}

func newGrowthEngine(reg *registry, tm *ticketManager) *growthEngine {
	return &growthEngine{reg: reg, tm: tm}
}

// neighbors returns the six face-adjacent chunk coordinates, in
// arbitrary order; diagonals are never adjacent for boundary-merge
// purposes.
func neighbors(c geom.ChunkCoord) [6]geom.ChunkCoord {
	return [6]geom.ChunkCoord{
		{c[0] - 1, c[1], c[2]}, {c[0] + 1, c[1], c[2]},
		{c[0], c[1] - 1, c[2]}, {c[0], c[1] + 1, c[2]},
		{c[0], c[1], c[2] - 1}, {c[0], c[1], c[2] + 1},
	}
}

// grow labels and merges outward from seed until the frontier is
// empty, returning the set of other tickets whose claims overlapped
// labels this ticket needed (the caller must wait for those before
// treating the region as final). Any failure inside labeling,
// merging, or store I/O is fatal to the request; chunks already
// labeled and unions already performed are left in place; they remain
// valid for future requests because every operation here is
// monotonic.
func (g *growthEngine) grow(ctx context.Context, seed geom.ChunkCoord, gridShape [3]int32) ([]uint64, error) {
	ticket := g.tm.register()
	defer g.tm.unregister(ticket)

	frontier := map[geom.ChunkCoord]map[uint32]struct{}{seed: nil}
	foreignSeen := make(map[uint64]struct{})

	popAny := func() (geom.ChunkCoord, bool) {
		for c := range frontier {
			return c, true
		}
		return geom.ChunkCoord{}, false
	}

	for {
		c, ok := popAny()
		if !ok {
			break
		}
		delete(frontier, c)

		cc, err := g.reg.ensureLabeled(ctx, c)
		if err != nil {
			return nil, err
		}

		mine, others := g.tm.checkout(c, cc.localLabels(), ticket)
		for _, o := range others {
			foreignSeen[o] = struct{}{}
		}
		mineSet := make(map[uint32]struct{}, len(mine))
		for _, l := range mine {
			mineSet[l] = struct{}{}
		}

		for _, n := range neighbors(c) {
			if !inGrid(n, gridShape) {
				continue
			}
			if _, err := g.reg.ensureLabeled(ctx, n); err != nil {
				return nil, err
			}

			lo, hi := c, n
			if n.Less(c) {
				lo, hi = n, c
			}
			pairs, err := g.reg.mergeBoundary(ctx, lo, hi)
			if err != nil {
				return nil, err
			}

			extending := make(map[uint32]struct{})
			for _, p := range pairs {
				var labelOnC, labelOnN uint32
				if lo == c {
					labelOnC, labelOnN = p.lo, p.hi
				} else {
					labelOnC, labelOnN = p.hi, p.lo
				}
				if _, ok := mineSet[labelOnC]; ok {
					extending[labelOnN] = struct{}{}
				}
			}
			if len(extending) == 0 {
				continue
			}
			existing, ok := frontier[n]
			if !ok {
				existing = make(map[uint32]struct{})
			}
			for l := range extending {
				existing[l] = struct{}{}
			}
			frontier[n] = existing
		}
	}

	foreign := make([]uint64, 0, len(foreignSeen))
	for id := range foreignSeen {
		foreign = append(foreign, id)
	}
	return foreign, nil
}

// inGrid reports whether coord falls within a grid of the given shape
// (number of chunks per axis); growth never labels a chunk outside
// the input's extent.
func inGrid(c geom.ChunkCoord, gridShape [3]int32) bool {
	for i := 0; i < 3; i++ {
		if c[i] < 0 || c[i] >= gridShape[i] {
			return false
		}
	}
	return true
}
