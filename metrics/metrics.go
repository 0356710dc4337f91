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

// Package metrics records the CLI and benchmark harness's own view of
// a lazycc run: how many regions were computed, how long each took,
// and how big the results were. It is never imported by package
// labeling — the core engine stays free of any metrics dependency, and
// is instrumented only from the outside, by whoever calls Compute.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds every metric the CLI/benchmark harness publishes.
// The zero value is not usable; construct with NewRecorder.
type Recorder struct {
	regionsComputed  prometheus.Counter
	regionErrors     prometheus.Counter
	computeLatency   prometheus.Histogram
	voxelsLabeled    prometheus.Counter
	finalLabelsSeen  prometheus.Histogram
	invalidateCalls  prometheus.Counter
}

// NewRecorder builds a Recorder and registers its metrics with reg.
// Passing prometheus.NewRegistry() keeps the harness's metrics
// separate from any process-global default registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		regionsComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lazycc_regions_computed_total",
			Help: "Number of Compute calls that returned successfully.",
		}),
		regionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lazycc_region_errors_total",
			Help: "Number of Compute calls that returned an error.",
		}),
		computeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lazycc_compute_latency_seconds",
			Help:    "Wall-clock latency of a single Compute call.",
			Buckets: prometheus.DefBuckets,
		}),
		voxelsLabeled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lazycc_voxels_labeled_total",
			Help: "Total voxels returned across all Compute calls.",
		}),
		finalLabelsSeen: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lazycc_final_labels_per_region",
			Help:    "Distinct nonzero final labels observed in a single Compute result.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 16),
		}),
		invalidateCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lazycc_invalidate_total",
			Help: "Number of Invalidate calls.",
		}),
	}
	reg.MustRegister(
		r.regionsComputed,
		r.regionErrors,
		r.computeLatency,
		r.voxelsLabeled,
		r.finalLabelsSeen,
		r.invalidateCalls,
	)
	return r
}

// ObserveCompute records the outcome of one Compute call: its
// duration, the number of voxels in the result (0 on error), and the
// number of distinct nonzero labels present in the result.
func (r *Recorder) ObserveCompute(d time.Duration, voxels int, distinctLabels int, err error) {
	r.computeLatency.Observe(d.Seconds())
	if err != nil {
		r.regionErrors.Inc()
		return
	}
	r.regionsComputed.Inc()
	r.voxelsLabeled.Add(float64(voxels))
	r.finalLabelsSeen.Observe(float64(distinctLabels))
}

// ObserveInvalidate records one Invalidate call.
func (r *Recorder) ObserveInvalidate() {
	r.invalidateCalls.Inc()
}
