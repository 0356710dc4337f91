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

// Package lzerr defines the small set of error kinds the engine can
// report to a caller, and the invariant-assertion helpers used to
// detect programmer bugs (which are fatal, never recoverable).
package lzerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error as one of the recognized error kinds.
type Kind int

const (
	// UnsupportedDtype means the input element type is not in the
	// allowed set (uint8/uint32/uint64).
	UnsupportedDtype Kind = iota
	// ShapeMismatch means chunk_shape's dimensionality differs from
	// the input's.
	ShapeMismatch
	// IOUpstream means a read or write against the input provider or
	// the chunk store failed.
	IOUpstream
	// Internal means an invariant was violated or the labeling
	// primitive itself failed. Invariant and Unreachable panic with
	// this kind; a labeling primitive failure is returned as an
	// Internal error.
	Internal
)

func (k Kind) String() string {
	switch k {
	case UnsupportedDtype:
		return "UnsupportedDtype"
	case ShapeMismatch:
		return "ShapeMismatch"
	case IOUpstream:
		return "IOUpstream"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is the error type returned across the engine's external
// interfaces. It carries a Kind so callers can switch on category
// without string matching, and the operation name that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind for operation op, wrapping
// cause if non-nil.
func New(k Kind, op string, cause error) *Error {
	return &Error{Kind: k, Op: op, Err: cause}
}

// Wrap is New with errors.Wrap semantics applied to cause first, so
// the resulting error's message carries both the op context and any
// message supplied by the caller.
func Wrap(k Kind, op string, cause error, msg string) *Error {
	return &Error{Kind: k, Op: op, Err: errors.Wrap(cause, msg)}
}

// Is reports whether err is an *Error of kind k, unwrapping as
// needed.
func Is(err error, k Kind) bool {
	var e *Error
	for err != nil {
		if as, ok := err.(*Error); ok {
			e = as
			break
		}
		err = errors.Unwrap(err)
	}
	return e != nil && e.Kind == k
}

// Invariant panics with a formatted message if cond is false. It is
// the engine's assertion primitive for conditions that must never be
// false absent a programming error — e.g. a union-find index out of
// range. Such violations are fatal to the process and must never be
// swallowed.
func Invariant(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(&Error{Kind: Internal, Op: "invariant", Err: fmt.Errorf(format, args...)})
	}
}

// Unreachable panics unconditionally; used for switch default cases
// over closed sets (e.g. Dtype) that must never be hit.
func Unreachable(format string, args ...interface{}) {
	panic(&Error{Kind: Internal, Op: "unreachable", Err: fmt.Errorf(format, args...)})
}
