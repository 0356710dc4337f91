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

// Package lzlog is the engine's thin structured-logging wrapper
// around zap. It exists so the core packages depend on a small
// interface rather than on zap directly, and so a no-op logger is
// available for tests and library callers that don't want engine
// logs on their console.
package lzlog

import "go.uber.org/zap"

// Logger is the structured logger the engine writes to. The engine
// logs one Debug entry each time it labels a chunk; boundary merges,
// ticket waits and invariant failures are not logged.
type Logger interface {
	Debugw(msg string, kv ...interface{})
	Infow(msg string, kv ...interface{})
	Warnw(msg string, kv ...interface{})
	Errorw(msg string, kv ...interface{})
	With(kv ...interface{}) Logger
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZap wraps a *zap.Logger.
func NewZap(l *zap.Logger) Logger {
	return &zapLogger{s: l.Sugar()}
}

// NewProduction returns a Logger backed by zap's production config.
func NewProduction() (Logger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return NewZap(l), nil
}

func (z *zapLogger) Debugw(msg string, kv ...interface{}) { z.s.Debugw(msg, kv...) }
func (z *zapLogger) Infow(msg string, kv ...interface{})  { z.s.Infow(msg, kv...) }
func (z *zapLogger) Warnw(msg string, kv ...interface{})  { z.s.Warnw(msg, kv...) }
func (z *zapLogger) Errorw(msg string, kv ...interface{}) { z.s.Errorw(msg, kv...) }
func (z *zapLogger) With(kv ...interface{}) Logger {
	return &zapLogger{s: z.s.With(kv...)}
}

// NopLogger discards everything; used by tests and by New when no
// logger is supplied.
type NopLogger struct{}

func (NopLogger) Debugw(string, ...interface{}) {}
func (NopLogger) Infow(string, ...interface{})  {}
func (NopLogger) Warnw(string, ...interface{})  {}
func (NopLogger) Errorw(string, ...interface{}) {}
func (n NopLogger) With(...interface{}) Logger  { return n }
