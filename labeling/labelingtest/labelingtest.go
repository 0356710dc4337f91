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

// Package labelingtest holds a naive, whole-volume reference labeler
// used only by tests, to check that lazy, chunked labeling agrees with
// labeling the same volume in one pass. It is never imported by the
// engine itself.
package labelingtest

// ReferenceLabel runs a whole-volume 6-connectivity flood fill over
// data (row-major x,y,z, shape[0]*shape[1]*shape[2] elements),
// labeling connected runs of equal nonzero values exactly the way
// chunksource's per-chunk primitive does, just without chunk
// boundaries. It returns one label per voxel and the number of
// distinct nonzero labels produced.
func ReferenceLabel(data []uint64, shape [3]int64) ([]uint32, uint32) {
	nx, ny, nz := int(shape[0]), int(shape[1]), int(shape[2])
	n := nx * ny * nz
	if len(data) != n {
		panic("labelingtest: data length does not match shape")
	}

	labels := make([]uint32, n)
	var next uint32

	idx := func(x, y, z int) int { return x*ny*nz + y*nz + z }

	type pt struct{ x, y, z int }
	var stack []pt

	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			for z := 0; z < nz; z++ {
				i := idx(x, y, z)
				if data[i] == 0 || labels[i] != 0 {
					continue
				}
				next++
				val := data[i]
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
						if labels[qi] != 0 || data[qi] != val {
							continue
						}
						labels[qi] = next
						stack = append(stack, q)
					}
				}
			}
		}
	}
	return labels, next
}

// PartitionsEqual reports whether two label assignments induce the
// same partition of voxels into components, ignoring the actual label
// values (lazy labeling and whole-volume labeling are free to assign
// different numeric labels to the same component). Background (0) in
// a must equal background in b at every position.
func PartitionsEqual(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	aToB := make(map[uint32]uint32)
	bToA := make(map[uint32]uint32)
	for i := range a {
		if (a[i] == 0) != (b[i] == 0) {
			return false
		}
		if a[i] == 0 {
			continue
		}
		if mapped, ok := aToB[a[i]]; ok {
			if mapped != b[i] {
				return false
			}
		} else {
			aToB[a[i]] = b[i]
		}
		if mapped, ok := bToA[b[i]]; ok {
			if mapped != a[i] {
				return false
			}
		} else {
			bToA[b[i]] = a[i]
		}
	}
	return true
}
