// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for graph building.
var (
	tracer = otel.Tracer("aleutian.relmap.graph")
	meter  = otel.Meter("aleutian.relmap.graph")
)

var (
	buildLatency   metric.Float64Histogram
	filesProcessed metric.Int64Counter
	buildFailures  metric.Int64Counter
	edgesInserted  metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"relmap_build_duration_seconds",
			metric.WithDescription("Duration of relationship graph builds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		filesProcessed, err = meter.Int64Counter(
			"relmap_build_files_total",
			metric.WithDescription("Files processed by graph builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildFailures, err = meter.Int64Counter(
			"relmap_build_file_failures_total",
			metric.WithDescription("Files skipped due to parse or invariant failures"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		edgesInserted, err = meter.Int64Histogram(
			"relmap_build_edges",
			metric.WithDescription("Call edges per completed build"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordBuildMetrics records metrics for one completed build.
func recordBuildMetrics(ctx context.Context, duration time.Duration, files, failures, edges int) {
	if err := initMetrics(); err != nil {
		return // Silently skip if metrics init failed
	}

	buildLatency.Record(ctx, duration.Seconds())
	filesProcessed.Add(ctx, int64(files))
	if failures > 0 {
		buildFailures.Add(ctx, int64(failures),
			metric.WithAttributes(attribute.Bool("partial", true)))
	}
	edgesInserted.Record(ctx, int64(edges))
}
