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

// Package keymutex provides a mutex per distinct comparable key,
// created lazily and reclaimed as soon as nothing is waiting on it.
// The chunk registry uses one Mapped instance to give each chunk
// coordinate its own exclusion lock without pre-allocating a lock per
// chunk up front.
package keymutex

import (
	"context"
	"sync"
)

// Keymutex locks by key instead of globally.
type Keymutex interface {
	// Lock blocks until the named key's lock is held, or ctx is done.
	Lock(ctx context.Context, key interface{}) error
	// Unlock releases the named key's lock. It panics if the caller
	// does not hold it.
	Unlock(key interface{})
}

type state struct {
	locked  bool
	waitCnt int
	free    chan struct{}
}

type mapKeymutex struct {
	mu     sync.Mutex
	states map[interface{}]*state
}

// NewMapped returns a Keymutex backed by a plain map. Unlocking a key
// with no remaining waiters deletes its bookkeeping entry, so the
// memory cost is proportional to current contention, not to the
// number of keys ever locked.
func NewMapped() Keymutex {
	return &mapKeymutex{states: make(map[interface{}]*state)}
}

func (m *mapKeymutex) Lock(ctx context.Context, key interface{}) error {
	for {
		m.mu.Lock()
		s, ok := m.states[key]
		if !ok {
			s = &state{locked: true}
			m.states[key] = s
			m.mu.Unlock()
			return nil
		}
		if !s.locked {
			s.locked = true
			m.mu.Unlock()
			return nil
		}
		s.waitCnt++
		if s.free == nil {
			s.free = make(chan struct{})
		}
		free := s.free
		m.mu.Unlock()

		select {
		case <-free:
		case <-ctx.Done():
			m.mu.Lock()
			s.waitCnt--
			m.mu.Unlock()
			return ctx.Err()
		}
	}
}

func (m *mapKeymutex) Unlock(key interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[key]
	if !ok || !s.locked {
		panic("keymutex: Unlock of key that is not locked")
	}
	s.locked = false
	if s.waitCnt == 0 {
		delete(m.states, key)
		return
	}
	close(s.free)
	s.free = nil
	// The lock remains logically free; the next Lock call to observe
	// this state wins the race to set locked=true. The fresh state's
	// waitCnt starts at zero; waiters that lose the race count
	// themselves in again when they loop back into Lock.
	delete(m.states, key)
	m.states[key] = &state{locked: false, waitCnt: 0}
	// Re-home any still-waiting goroutines onto the fresh state by
	// leaving the closed channel as their wake signal; they will loop
	// back into Lock and find the fresh, unlocked state.
}
