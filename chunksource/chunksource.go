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

// Package chunksource defines the "input provider" collaborator: read
// access to the raw volume the engine labels, plus the single-pass
// per-chunk labeling primitive. Both are treated as external,
// replaceable black boxes by package labeling; this package supplies
// one in-memory implementation of each, sufficient for tests, the
// CLI, and small volumes.
package chunksource

import (
	"context"

	"github.com/dolthub/lazycc/geom"
	"github.com/dolthub/lazycc/internal/lzerr"
)

// RawChunk is one chunk's worth of raw input samples, widened to
// uint64 regardless of the source Dtype so comparisons in the
// boundary merger never need to branch on element width.
type RawChunk struct {
	Shape [3]int32
	Data  []uint64 // row-major x,y,z; len == Shape[0]*Shape[1]*Shape[2]
}

// At returns the sample at local coordinate (x,y,z).
func (r RawChunk) At(x, y, z int32) uint64 {
	idx := int(x)*int(r.Shape[1])*int(r.Shape[2]) + int(y)*int(r.Shape[2]) + int(z)
	return r.Data[idx]
}

// Source supplies the raw input, chunk by chunk.
type Source interface {
	// Shape is the input volume's full spatial extent.
	Shape() [3]int64
	// Dtype is the input's element type, validated once at engine
	// construction.
	Dtype() geom.Dtype
	// ReadChunk returns the raw samples for the chunk at coord.
	// nominalShape is the configured chunk shape; ReadChunk clips it
	// against Shape() to compute the chunk's actual extent (trailing
	// chunks are smaller along any axis that doesn't divide evenly)
	// and returns that actual extent in RawChunk.Shape.
	ReadChunk(ctx context.Context, coord geom.ChunkCoord, nominalShape [3]int32) (RawChunk, error)
}

// LabelPrimitive is the "per-chunk single-pass labeling primitive":
// label_chunk(input) -> (labels, num_labels). 0 in the input is
// always background and maps to label 0.
type LabelPrimitive interface {
	Label(raw RawChunk) (labels []uint32, numLabels uint32, err error)
}

// ccLabel is a 6-connectivity flood-fill labeler: a reference
// implementation of LabelPrimitive good enough for real chunk sizes
// used in tests and the CLI. Production deployments are expected to
// swap in a faster primitive (e.g. vectorized two-pass union-find);
// labeling never depends on this type directly, only on the
// LabelPrimitive interface.
type ccLabel struct{}

// DefaultPrimitive is the built-in LabelPrimitive.
var DefaultPrimitive LabelPrimitive = ccLabel{}

func (ccLabel) Label(raw RawChunk) ([]uint32, uint32, error) {
	nx, ny, nz := int(raw.Shape[0]), int(raw.Shape[1]), int(raw.Shape[2])
	n := nx * ny * nz
	lzerr.Invariant(n == len(raw.Data), "chunksource: shape %v does not match data len %d", raw.Shape, len(raw.Data))

	labels := make([]uint32, n)
	var next uint32

	idx := func(x, y, z int) int { return x*ny*nz + y*nz + z }

	type pt struct{ x, y, z int }
	var stack []pt

	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			for z := 0; z < nz; z++ {
				i := idx(x, y, z)
				if raw.Data[i] == 0 || labels[i] != 0 {
					continue
				}
				next++
				val := raw.Data[i]
				labels[i] = next
				stack = append(stack[:0], pt{x, y, z})
				for len(stack) > 0 {
					p := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					neighbors := [6]pt{
						{p.x - 1, p.y, p.z}, {p.x + 1, p.y, p.z},
						{p.x, p.y - 1, p.z}, {p.x, p.y + 1, p.z},
						{p.x, p.y, p.z - 1}, {p.x, p.y, p.z + 1},
					}
					for _, q := range neighbors {
						if q.x < 0 || q.x >= nx || q.y < 0 || q.y >= ny || q.z < 0 || q.z >= nz {
							continue
						}
						qi := idx(q.x, q.y, q.z)
						if labels[qi] != 0 || raw.Data[qi] != val {
							continue
						}
						labels[qi] = next
						stack = append(stack, q)
					}
				}
			}
		}
	}
	return labels, next, nil
}
