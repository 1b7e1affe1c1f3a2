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
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "structviz.graph"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)

	buildDuration metric.Float64Histogram
	buildNodes    metric.Int64Histogram
	buildEdges    metric.Int64Histogram
)

func init() {
	buildDuration, _ = meter.Float64Histogram("structviz.build.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("Duration of a single graph build"))
	buildNodes, _ = meter.Int64Histogram("structviz.build.nodes",
		metric.WithDescription("Nodes created per build"))
	buildEdges, _ = meter.Int64Histogram("structviz.build.edges",
		metric.WithDescription("Edges created per build"))
}

// startBuildSpan starts the tracing span for one Build call.
func startBuildSpan(ctx context.Context, module string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "graph.build",
		trace.WithAttributes(attribute.String("module", module)),
	)
}

// setBuildSpanResult records the build outcome on the span.
func setBuildSpanResult(span trace.Span, nodes, edges int) {
	span.SetAttributes(
		attribute.Int("nodes", nodes),
		attribute.Int("edges", edges),
	)
}

// recordBuildMetrics records duration and size of a Build call.
func recordBuildMetrics(ctx context.Context, duration time.Duration, nodes, edges int, success bool) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	if buildDuration != nil {
		buildDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
	if buildNodes != nil {
		buildNodes.Record(ctx, int64(nodes), attrs)
	}
	if buildEdges != nil {
		buildEdges.Record(ctx, int64(edges), attrs)
	}
}
