// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "structviz.ast"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)

	parseDuration metric.Float64Histogram
	parseTotal    metric.Int64Counter
)

func init() {
	parseDuration, _ = meter.Float64Histogram("structviz.parse.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("Duration of a single parse call"))
	parseTotal, _ = meter.Int64Counter("structviz.parse.total",
		metric.WithDescription("Number of parse calls by outcome"))
}

// startParseSpan starts the tracing span for one Parse call.
func startParseSpan(ctx context.Context, filePath string, sizeBytes int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ast.parse",
		trace.WithAttributes(
			attribute.String("language", "python"),
			attribute.String("file", filePath),
			attribute.Int("size_bytes", sizeBytes),
		),
	)
}

// setParseSpanResult records the successful parse outcome on the span.
func setParseSpanResult(span trace.Span, module string) {
	span.SetAttributes(attribute.String("module", module))
}

// recordParseMetrics records duration and outcome of a Parse call.
func recordParseMetrics(ctx context.Context, duration time.Duration, success bool) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	if parseDuration != nil {
		parseDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
	if parseTotal != nil {
		parseTotal.Add(ctx, 1, attrs)
	}
}
