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

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallSucceedsWithoutRetry(t *testing.T) {
	calls := 0
	err := Call(context.Background(), Params{NumRetries: 3, Backoff: time.Millisecond}, func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestCallRetriesThenSucceeds(t *testing.T) {
	calls := 0
	err := Call(context.Background(), Params{NumRetries: 3, Backoff: time.Millisecond}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestCallReturnsLastErrorAfterExhausting(t *testing.T) {
	wantErr := errors.New("permanent")
	calls := 0
	err := Call(context.Background(), Params{NumRetries: 2, Backoff: time.Millisecond}, func(ctx context.Context) error {
		calls++
		return wantErr
	})
	assert.Equal(t, wantErr, err)
	assert.Equal(t, 3, calls) // initial attempt + 2 retries
}

func TestCallStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Call(ctx, Params{NumRetries: 100, Backoff: 5 * time.Millisecond}, func(ctx context.Context) error {
		calls++
		return errors.New("always fails")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, calls, 100)
}
