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

package chunkstore

import (
	"context"
	"sync"

	"github.com/dolthub/lazycc/geom"
)

type entry struct {
	shape  [3]int32
	labels []uint32
}

// Memory is an in-process Store; the default backend for tests and
// for engines that don't need cached labels to survive the process.
type Memory struct {
	mu sync.RWMutex
	m  map[geom.ChunkCoord]entry
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{m: make(map[geom.ChunkCoord]entry)}
}

func (s *Memory) WriteChunk(_ context.Context, coord geom.ChunkCoord, shape [3]int32, labels []uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]uint32, len(labels))
	copy(cp, labels)
	s.m[coord] = entry{shape: shape, labels: cp}
	return nil
}

func (s *Memory) ReadSlab(_ context.Context, coord geom.ChunkCoord, box geom.LocalBox) ([]uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.m[coord]
	if !ok {
		return nil, &notFoundError{coord}
	}
	return sliceSlab(e.shape, e.labels, box), nil
}

func (s *Memory) Has(_ context.Context, coord geom.ChunkCoord) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.m[coord]
	return ok, nil
}

func (s *Memory) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = make(map[geom.ChunkCoord]entry)
	return nil
}

type notFoundError struct{ coord geom.ChunkCoord }

func (e *notFoundError) Error() string { return "chunkstore: chunk " + e.coord.String() + " not found" }
