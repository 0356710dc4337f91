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
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/snappy"

	"github.com/dolthub/lazycc/geom"
)

// Disk is a Store backed by one file per chunk coordinate under Root,
// with the payload snappy-compressed on disk. A chunk's file is
// written once and never rewritten for the lifetime of an input
// version, matching the registry's "labeled chunk data is immutable"
// invariant, so there is no need for per-file locking beyond the
// keymutex the registry already holds while labeling a chunk.
type Disk struct {
	Root string

	mu sync.Mutex // guards directory creation and Reset
}

// NewDisk returns a Disk store rooted at dir. dir is created lazily
// on first write.
func NewDisk(dir string) *Disk {
	return &Disk{Root: dir}
}

func (s *Disk) path(coord geom.ChunkCoord) string {
	return filepath.Join(s.Root, fmt.Sprintf("%d_%d_%d.chunk", coord[0], coord[1], coord[2]))
}

func (s *Disk) WriteChunk(_ context.Context, coord geom.ChunkCoord, shape [3]int32, labels []uint32) error {
	s.mu.Lock()
	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("chunkstore: mkdir %s: %w", s.Root, err)
	}
	s.mu.Unlock()

	buf := make([]byte, 12+4*len(labels))
	binary.LittleEndian.PutUint32(buf[0:], uint32(shape[0]))
	binary.LittleEndian.PutUint32(buf[4:], uint32(shape[1]))
	binary.LittleEndian.PutUint32(buf[8:], uint32(shape[2]))
	for i, v := range labels {
		binary.LittleEndian.PutUint32(buf[12+4*i:], v)
	}
	compressed := snappy.Encode(nil, buf)

	tmp := s.path(coord) + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return fmt.Errorf("chunkstore: write %s: %w", tmp, err)
	}
	return os.Rename(tmp, s.path(coord))
}

func (s *Disk) readChunk(coord geom.ChunkCoord) ([3]int32, []uint32, error) {
	compressed, err := os.ReadFile(s.path(coord))
	if err != nil {
		if os.IsNotExist(err) {
			return [3]int32{}, nil, &notFoundError{coord}
		}
		return [3]int32{}, nil, fmt.Errorf("chunkstore: read %s: %w", s.path(coord), err)
	}
	buf, err := snappy.Decode(nil, compressed)
	if err != nil {
		return [3]int32{}, nil, fmt.Errorf("chunkstore: decode %s: %w", s.path(coord), err)
	}
	shape := [3]int32{
		int32(binary.LittleEndian.Uint32(buf[0:])),
		int32(binary.LittleEndian.Uint32(buf[4:])),
		int32(binary.LittleEndian.Uint32(buf[8:])),
	}
	n := int(shape[0]) * int(shape[1]) * int(shape[2])
	labels := make([]uint32, n)
	for i := range labels {
		labels[i] = binary.LittleEndian.Uint32(buf[12+4*i:])
	}
	return shape, labels, nil
}

func (s *Disk) ReadSlab(_ context.Context, coord geom.ChunkCoord, box geom.LocalBox) ([]uint32, error) {
	shape, labels, err := s.readChunk(coord)
	if err != nil {
		return nil, err
	}
	return sliceSlab(shape, labels, box), nil
}

func (s *Disk) Has(_ context.Context, coord geom.ChunkCoord) (bool, error) {
	_, err := os.Stat(s.path(coord))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *Disk) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(s.Root, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
