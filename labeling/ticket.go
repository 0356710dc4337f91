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
	"sync/atomic"

	"github.com/dolthub/lazycc/geom"
)

// ticketManager is the label manager (component D): it tracks which
// region-growing ticket claims which (chunk, local label) pairs, so
// that two overlapping requests never both finalize the same label.
// Its mutex is a leaf in the lock order — it never acquires the
// registry's chunk locks or the union-find's lock while held.
type ticketManager struct {
	mu      sync.Mutex
	nextID  atomic.Uint64
	claims  map[geom.ChunkCoord]map[uint32]uint64 // local label -> owning ticket
	tickets map[uint64]*ticketState
}

type ticketState struct {
	done chan struct{}
}

func newTicketManager() *ticketManager {
	return &ticketManager{
		claims:  make(map[geom.ChunkCoord]map[uint32]uint64),
		tickets: make(map[uint64]*ticketState),
	}
}

// register allocates a new, active ticket.
func (tm *ticketManager) register() uint64 {
	id := tm.nextID.Add(1)
	tm.mu.Lock()
	tm.tickets[id] = &ticketState{done: make(chan struct{})}
	tm.mu.Unlock()
	return id
}

// unregister marks a ticket completed and wakes anyone in waitFor.
// Its claims remain in the map — cheap, and required so that a future
// checkout on the same chunk recognizes those labels as already
// finalized rather than re-finalizing them.
func (tm *ticketManager) unregister(id uint64) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if t, ok := tm.tickets[id]; ok {
		close(t.done)
	}
	// Dropping the ticketState itself (but not its claims) lets
	// checkout's "is the owner still active" check rely solely on
	// tickets map membership: a ticket id absent from tickets is
	// necessarily complete. The claims stay on their original
	// chunk/label entries, untouched, until the whole chunk is
	// invalidated.
	delete(tm.tickets, id)
}

// reset drops every claim and ticket. Engine.Invalidate does not call
// it; it replaces the whole ticketManager instead.
func (tm *ticketManager) reset() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.claims = make(map[geom.ChunkCoord]map[uint32]uint64)
	tm.tickets = make(map[uint64]*ticketState)
}

// checkout partitions labels into the subset newly (or previously)
// owned by ticket id ("owned") and the subset already owned by some
// other ticket ("others", the tickets to wait for — only those still
// active; labels already finalized by a now-complete ticket are
// simply dropped, since no further work is needed for them).
func (tm *ticketManager) checkout(coord geom.ChunkCoord, labels []uint32, id uint64) (owned []uint32, others []uint64) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	m, ok := tm.claims[coord]
	if !ok {
		m = make(map[uint32]uint64)
		tm.claims[coord] = m
	}

	seenOther := make(map[uint64]struct{})
	for _, l := range labels {
		owner, claimed := m[l]
		if !claimed {
			m[l] = id
			owned = append(owned, l)
			continue
		}
		if owner == id {
			owned = append(owned, l)
			continue
		}
		if _, active := tm.tickets[owner]; active {
			if _, dup := seenOther[owner]; !dup {
				seenOther[owner] = struct{}{}
				others = append(others, owner)
			}
		}
	}
	return owned, others
}

// waitFor blocks until every ticket in ids has unregistered, or ctx
// is done.
func (tm *ticketManager) waitFor(ctx context.Context, ids []uint64) error {
	for _, id := range ids {
		tm.mu.Lock()
		t, ok := tm.tickets[id]
		tm.mu.Unlock()
		if !ok {
			continue
		}
		select {
		case <-t.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
