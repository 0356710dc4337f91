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

// Package retry provides bounded retry with exponential backoff for
// the chunk-store backends that talk to a remote service (S3). Only
// the store backends use this; the core labeling package never
// retries, per the engine's error-handling design (IOUpstream errors
// are propagated, not hidden behind retries, once they reach the
// core).
package retry

import (
	"context"
	"time"
)

// Params configures Call.
type Params struct {
	NumRetries int
	Backoff    time.Duration
	MaxDelay   time.Duration
}

// Call runs fn until it succeeds or it has failed NumRetries+1 times
// (the initial attempt plus NumRetries retries). Delay between attempts doubles each time, capped at MaxDelay. Call
// returns ctx.Err() immediately if ctx is canceled between attempts,
// and fn's last error if retries are exhausted.
func Call(ctx context.Context, p Params, fn func(ctx context.Context) error) error {
	delay := p.Backoff
	var err error
	for attempt := 0; attempt <= p.NumRetries; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if attempt == p.NumRetries {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}
