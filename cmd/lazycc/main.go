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

// Command lazycc is a small harness around package labeling: it
// labels a region of a raw volume file from the command line, or
// benchmarks Compute over a synthetic volume. Neither subcommand is
// part of the core engine; both exist so the module is runnable
// end to end.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/attic-labs/kingpin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dolthub/lazycc/chunksource"
	"github.com/dolthub/lazycc/chunkstore"
	"github.com/dolthub/lazycc/config"
	"github.com/dolthub/lazycc/geom"
	"github.com/dolthub/lazycc/internal/lzlog"
	"github.com/dolthub/lazycc/labeling"
	"github.com/dolthub/lazycc/metrics"
)

var (
	app = kingpin.New("lazycc", "Lazy, chunked connected-component labeling.")

	labelCmd    = app.Command("label", "Label a region of a raw volume file and report final-label statistics.")
	labelConfig = labelCmd.Flag("config", "Path to a TOML config file (chunk shape, store backend).").Required().String()
	labelRegion = labelCmd.Flag("region", "Region to compute, as x0:x1,y0:y1,z0:z1. Defaults to the whole volume.").String()
	labelShape  = labelCmd.Flag("shape", "Input volume shape, as x,y,z (required when reading a headerless raw file).").Required().String()
	labelDtype  = labelCmd.Flag("dtype", "Input element type: u8, u32, or u64.").Default("u32").String()
	labelInput  = labelCmd.Arg("input", "Path to a headerless raw volume file.").Required().String()

	benchCmd       = app.Command("bench", "Run Compute over a synthetic volume and report timing.")
	benchShape     = benchCmd.Flag("shape", "Synthetic volume shape, as x,y,z.").Default("256,256,256").String()
	benchChunk     = benchCmd.Flag("chunk-shape", "Chunk shape, as x,y,z.").Default("64,64,64").String()
	benchDensity   = benchCmd.Flag("density", "Fraction of voxels that are foreground.").Default("0.3").Float64()
	benchRuns      = benchCmd.Flag("runs", "Number of Compute calls to time.").Default("5").Int()
)

func main() {
	runID := uuid.New().String()
	log, err := lzlog.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "lazycc: failed to init logger:", err)
		os.Exit(1)
	}
	log = log.With("run_id", runID)

	switch kingpin.MustParse(app.Parse(os.Args[1:])) {
	case labelCmd.FullCommand():
		if err := runLabel(log); err != nil {
			fmt.Fprintln(os.Stderr, "lazycc label:", err)
			os.Exit(1)
		}
	case benchCmd.FullCommand():
		if err := runBench(log); err != nil {
			fmt.Fprintln(os.Stderr, "lazycc bench:", err)
			os.Exit(1)
		}
	}
}

func runLabel(log lzlog.Logger) error {
	ctx := context.Background()

	cfg, err := config.Load(*labelConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	shape, err := parseTriple64(*labelShape)
	if err != nil {
		return fmt.Errorf("parsing --shape: %w", err)
	}
	dtype, err := parseDtype(*labelDtype)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(*labelInput)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *labelInput, err)
	}
	src, err := chunksource.NewMemSourceFromBytes(shape, dtype, data)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", *labelInput, err)
	}

	store, err := cfg.NewStore(ctx)
	if err != nil {
		return fmt.Errorf("constructing store: %w", err)
	}

	eng, err := labeling.New(cfg, src, store, log)
	if err != nil {
		return fmt.Errorf("constructing engine: %w", err)
	}

	region := geom.Box{Min: [3]int64{0, 0, 0}, Max: shape}
	if *labelRegion != "" {
		region, err = parseRegion(*labelRegion)
		if err != nil {
			return fmt.Errorf("parsing --region: %w", err)
		}
	}

	block, err := eng.Compute(ctx, region)
	if err != nil {
		return fmt.Errorf("computing region: %w", err)
	}

	distinct := make(map[uint32]struct{})
	for _, v := range block.Data {
		if v != 0 {
			distinct[v] = struct{}{}
		}
	}
	fmt.Printf("region %v: %d voxels, %d distinct final labels\n", region, len(block.Data), len(distinct))
	return nil
}

func runBench(log lzlog.Logger) error {
	ctx := context.Background()

	shape, err := parseTriple64(*benchShape)
	if err != nil {
		return fmt.Errorf("parsing --shape: %w", err)
	}
	chunkShape32, err := parseTriple32(*benchChunk)
	if err != nil {
		return fmt.Errorf("parsing --chunk-shape: %w", err)
	}

	src := chunksource.NewMemSource(shape, geom.U32)
	rng := rand.New(rand.NewSource(1))
	fillRandom(src, shape, *benchDensity, rng)

	cfg := config.Config{Chunk: config.ChunkConfig{Shape: chunkShape32}}
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)

	for i := 0; i < *benchRuns; i++ {
		store := chunkstore.NewMemory()
		eng, err := labeling.New(cfg, src, store, log)
		if err != nil {
			return fmt.Errorf("constructing engine: %w", err)
		}

		start := time.Now()
		block, err := eng.Compute(ctx, geom.Box{Min: [3]int64{0, 0, 0}, Max: shape})
		elapsed := time.Since(start)

		voxels := 0
		distinct := map[uint32]struct{}{}
		if err == nil {
			voxels = len(block.Data)
			for _, v := range block.Data {
				if v != 0 {
					distinct[v] = struct{}{}
				}
			}
		}
		rec.ObserveCompute(elapsed, voxels, len(distinct), err)
		if err != nil {
			return fmt.Errorf("run %d: %w", i, err)
		}
		fmt.Printf("run %d: %s, %d distinct final labels\n", i, elapsed, len(distinct))
	}
	return nil
}

func fillRandom(src *chunksource.MemSource, shape [3]int64, density float64, rng *rand.Rand) {
	for x := int64(0); x < shape[0]; x++ {
		for y := int64(0); y < shape[1]; y++ {
			for z := int64(0); z < shape[2]; z++ {
				if rng.Float64() < density {
					src.Set(x, y, z, 1)
				}
			}
		}
	}
}

func parseDtype(s string) (geom.Dtype, error) {
	switch s {
	case "u8":
		return geom.U8, nil
	case "u32":
		return geom.U32, nil
	case "u64":
		return geom.U64, nil
	default:
		return 0, fmt.Errorf("unknown dtype %q", s)
	}
}

func parseTriple64(s string) ([3]int64, error) {
	var out [3]int64
	n, err := fmt.Sscanf(s, "%d,%d,%d", &out[0], &out[1], &out[2])
	if err != nil || n != 3 {
		return out, fmt.Errorf("expected x,y,z, got %q", s)
	}
	return out, nil
}

func parseTriple32(s string) ([3]int32, error) {
	var out [3]int32
	n, err := fmt.Sscanf(s, "%d,%d,%d", &out[0], &out[1], &out[2])
	if err != nil || n != 3 {
		return out, fmt.Errorf("expected x,y,z, got %q", s)
	}
	return out, nil
}

func parseRegion(s string) (geom.Box, error) {
	var box geom.Box
	n, err := fmt.Sscanf(s, "%d:%d,%d:%d,%d:%d",
		&box.Min[0], &box.Max[0], &box.Min[1], &box.Max[1], &box.Min[2], &box.Max[2])
	if err != nil || n != 6 {
		return box, fmt.Errorf("expected x0:x1,y0:y1,z0:z1, got %q", s)
	}
	return box, nil
}
