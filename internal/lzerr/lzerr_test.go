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

package lzerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	base := New(IOUpstream, "chunkstore.ReadSlab", errors.New("boom"))
	wrapped := fmtErrorf(base)

	assert.True(t, Is(wrapped, IOUpstream))
	assert.False(t, Is(wrapped, Internal))
}

func fmtErrorf(err error) error {
	return &wrapper{err}
}

type wrapper struct{ err error }

func (w *wrapper) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapper) Unwrap() error { return w.err }

func TestInvariantPanicsOnFalse(t *testing.T) {
	assert.Panics(t, func() { Invariant(false, "bad index %d", 5) })
	assert.NotPanics(t, func() { Invariant(true, "fine") })
}

func TestInvariantPanicValueIsInternalError(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(*Error)
		if !ok {
			t.Fatalf("expected *Error panic value, got %T", r)
		}
		assert.Equal(t, Internal, err.Kind)
	}()
	Invariant(false, "nope")
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	e := New(ShapeMismatch, "labeling.New", cause)
	assert.ErrorIs(t, e, cause)
	assert.Contains(t, e.Error(), "ShapeMismatch")
}
