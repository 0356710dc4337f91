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

// Package config loads and validates the TOML configuration a lazycc
// deployment is started from: chunk geometry, the chunk store backend
// to use, and engine tuning knobs.
package config

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/dolthub/lazycc/chunkstore"
)

// ChunkConfig describes the fixed chunk geometry a deployment labels
// with. It never changes for the lifetime of a running Engine; a
// geometry change requires a fresh chunk store.
type ChunkConfig struct {
	Shape [3]int32 `toml:"shape"`
}

// S3Config names the bucket and key prefix an S3-backed store writes
// chunks under.
type S3Config struct {
	Bucket string `toml:"bucket"`
	Prefix string `toml:"prefix"`
}

// StoreConfig selects and parameterizes one of the chunkstore backends.
type StoreConfig struct {
	Kind string   `toml:"kind"` // "memory" | "disk" | "s3"
	Path string   `toml:"path"` // chunkstore.Disk root, when Kind == "disk"
	S3   S3Config `toml:"s3"`
}

// EngineConfig tunes the Engine's own behavior, independent of
// geometry or storage.
type EngineConfig struct {
	MaxConcurrentGrows int `toml:"max_concurrent_grows"`
}

// Config is the top-level, TOML-decodable configuration for a lazycc
// deployment.
type Config struct {
	Chunk  ChunkConfig  `toml:"chunk"`
	Store  StoreConfig  `toml:"store"`
	Engine EngineConfig `toml:"engine"`
}

// Load decodes a Config from a TOML file at path.
func Load(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "config.Load")
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Engine.MaxConcurrentGrows <= 0 {
		c.Engine.MaxConcurrentGrows = 8
	}
}

// NewStore constructs the chunkstore.Store this configuration names.
// "s3" builds a real AWS client from the ambient credential chain;
// callers that need a fake client for testing should construct
// chunkstore.S3 directly instead of going through NewStore.
func (c Config) NewStore(ctx context.Context) (chunkstore.Store, error) {
	switch c.Store.Kind {
	case "", "memory":
		return chunkstore.NewMemory(), nil
	case "disk":
		if c.Store.Path == "" {
			return nil, errors.New("config: store.path required for disk store")
		}
		return chunkstore.NewDisk(c.Store.Path), nil
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "config.NewStore: loading AWS config")
		}
		client := s3.NewFromConfig(awsCfg)
		return chunkstore.NewS3(client, c.Store.S3.Bucket, c.Store.S3.Prefix), nil
	default:
		return nil, fmt.Errorf("config: unknown store kind %q", c.Store.Kind)
	}
}
