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

// labelPair is one position's aligned (local label in lo, local label
// in hi) observation on a shared face, restricted to foreground
// positions where the raw inputs agree (the mask described in the
// boundary-merge algorithm).
type labelPair struct {
	lo, hi uint32
}

// diffAxis returns the single axis along which a and b differ, and
// whether a precedes b on that axis (a must be the lexicographically
// smaller, face-adjacent neighbor).
func diffAxis(a, b geom.ChunkCoord) (axis int, ok bool) {
	diffs := 0
	axis = -1
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			diffs++
			axis = i
		}
	}
	if diffs != 1 {
		return -1, false
	}
	return axis, b[axis] == a[axis]+1
}

// faceBox returns the one-voxel-thick slab of a chunk of the given
// shape on the given axis: the last slab if last is true (this is
// "lo"'s face, abutting the next chunk), else the first slab (this is
// "hi"'s face, abutting the previous chunk).
func faceBox(shape [3]int32, axis int, last bool) geom.LocalBox {
	var box geom.LocalBox
	box.Max = shape
	if last {
		box.Min[axis] = shape[axis] - 1
	} else {
		box.Max[axis] = 1
	}
	return box
}

// mergeBoundary implements the boundary merger (component E) for the
// ordered pair (lo, hi), where lo precedes hi lexicographically along
// exactly one axis. It always returns the face's aligned local-label
// correspondence (needed by the growth engine on every visit to
// decide which labels extend into the neighbor), but only applies new
// unions — and records hi in lo's merged_with set — the first time
// the pair is processed; later calls are pure reads of already-stored
// data and are safe to repeat from multiple goroutines or multiple
// tickets.
func (r *registry) mergeBoundary(ctx context.Context, lo, hi geom.ChunkCoord) ([]labelPair, error) {
	axis, ordered := diffAxis(lo, hi)
	lzerr.Invariant(axis >= 0 && ordered, "labeling: mergeBoundary called with non-adjacent or misordered coords %v, %v", lo, hi)

	var pairs []labelPair
	err := r.withChunksLocked(ctx, lo, hi, func(cLo, cHi *chunk) error {
		if err := r.labelIfNeeded(ctx, lo, cLo); err != nil {
			return err
		}
		if err := r.labelIfNeeded(ctx, hi, cHi); err != nil {
			return err
		}

		loFaceBox := faceBox(cLo.shape, axis, true)
		hiFaceBox := faceBox(cHi.shape, axis, false)

		loLabels, err := r.store.ReadSlab(ctx, lo, loFaceBox)
		if err != nil {
			return lzerr.Wrap(lzerr.IOUpstream, "mergeBoundary.ReadSlab(lo)", err, lo.String())
		}
		hiLabels, err := r.store.ReadSlab(ctx, hi, hiFaceBox)
		if err != nil {
			return lzerr.Wrap(lzerr.IOUpstream, "mergeBoundary.ReadSlab(hi)", err, hi.String())
		}

		loRaw, err := r.src.ReadChunk(ctx, lo, r.chunkShape)
		if err != nil {
			return lzerr.Wrap(lzerr.IOUpstream, "mergeBoundary.ReadChunk(lo)", err, lo.String())
		}
		hiRaw, err := r.src.ReadChunk(ctx, hi, r.chunkShape)
		if err != nil {
			return lzerr.Wrap(lzerr.IOUpstream, "mergeBoundary.ReadChunk(hi)", err, hi.String())
		}

		lzerr.Invariant(len(loLabels) == len(hiLabels), "labeling: mismatched face sizes between %v and %v", lo, hi)

		already := false
		if _, ok := cLo.mergedWith[hi]; ok {
			already = true
		}

		n := len(loLabels)
		pairs = make([]labelPair, 0, n)
		loFace := faceSamples(loRaw, loFaceBox)
		hiFace := faceSamples(hiRaw, hiFaceBox)
		for i := 0; i < n; i++ {
			if loLabels[i] == 0 || hiLabels[i] == 0 {
				continue
			}
			if loFace[i] != hiFace[i] {
				continue
			}
			pairs = append(pairs, labelPair{lo: loLabels[i], hi: hiLabels[i]})
			if !already {
				r.uf.Union(cLo.globalIndex(loLabels[i]), cHi.globalIndex(hiLabels[i]))
			}
		}

		if !already {
			cLo.mergedWith[hi] = struct{}{}
		}
		return nil
	})
	return pairs, err
}

// faceSamples extracts the raw samples for box from raw, in the same
// row-major order sliceSlab uses for the stored label volume, so
// loLabels[i]/hiLabels[i]/loFace[i]/hiFace[i] all refer to the same
// voxel.
func faceSamples(raw rawReader, box geom.LocalBox) []uint64 {
	s := box.Shape()
	out := make([]uint64, 0, int(s[0])*int(s[1])*int(s[2]))
	for x := box.Min[0]; x < box.Max[0]; x++ {
		for y := box.Min[1]; y < box.Max[1]; y++ {
			for z := box.Min[2]; z < box.Max[2]; z++ {
				out = append(out, raw.At(x, y, z))
			}
		}
	}
	return out
}

// rawReader is satisfied by chunksource.RawChunk; declared locally so
// this file doesn't need to import chunksource just for the type.
type rawReader interface {
	At(x, y, z int32) uint64
}
