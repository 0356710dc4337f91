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

package keymutex

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockUnlockRoundTrip(t *testing.T) {
	km := NewMapped()
	ctx := context.Background()
	require.NoError(t, km.Lock(ctx, "a"))
	km.Unlock("a")
	require.NoError(t, km.Lock(ctx, "a"))
	km.Unlock("a")
}

func TestDistinctKeysDoNotBlock(t *testing.T) {
	km := NewMapped()
	ctx := context.Background()
	require.NoError(t, km.Lock(ctx, "a"))
	require.NoError(t, km.Lock(ctx, "b"))
	km.Unlock("a")
	km.Unlock("b")
}

func TestUnlockOfUnlockedKeyPanics(t *testing.T) {
	km := NewMapped()
	assert.Panics(t, func() { km.Unlock("missing") })
}

func TestLockBlocksUntilUnlocked(t *testing.T) {
	km := NewMapped()
	ctx := context.Background()
	require.NoError(t, km.Lock(ctx, "a"))

	unblocked := make(chan struct{})
	go func() {
		require.NoError(t, km.Lock(ctx, "a"))
		close(unblocked)
		km.Unlock("a")
	}()

	select {
	case <-unblocked:
		t.Fatal("second Lock returned before first Unlock")
	case <-time.After(50 * time.Millisecond):
	}

	km.Unlock("a")
	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("second Lock never woke up after Unlock")
	}
}

func TestLockRespectsContextCancellation(t *testing.T) {
	km := NewMapped()
	ctx := context.Background()
	require.NoError(t, km.Lock(ctx, "a"))

	cctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- km.Lock(cctx, "a") }()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Lock did not return after context cancellation")
	}
	km.Unlock("a")
}

// TestManyWaitersEventuallyAllAcquire exercises the "thundering herd"
// wake path: several goroutines queue on the same key, and each must
// eventually get its turn, mirroring the concurrent fan-out style
// tests elsewhere in this module use for the registry's locks.
func TestManyWaitersEventuallyAllAcquire(t *testing.T) {
	km := NewMapped()
	ctx := context.Background()
	const n = 20

	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	require.NoError(t, km.Lock(ctx, "a"))
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, km.Lock(ctx, "a"))
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			km.Unlock("a")
		}()
	}
	time.Sleep(20 * time.Millisecond)
	km.Unlock("a")

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not all waiters acquired the lock")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, order, n)
}
