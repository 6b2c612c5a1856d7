// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package signals

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("crewscope.signals")
	meter  = otel.Meter("crewscope.signals")

	extractLatency metric.Float64Histogram
	extractTotal   metric.Int64Counter

	metricsOnce sync.Once
)

func initMetrics() {
	var err error
	extractLatency, err = meter.Float64Histogram(
		"crewscope.signals.extract.duration",
		metric.WithDescription("Signal extraction latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		otel.Handle(err)
	}
	extractTotal, err = meter.Int64Counter(
		"crewscope.signals.extract.total",
		metric.WithDescription("Total signal extraction attempts"),
	)
	if err != nil {
		otel.Handle(err)
	}
}

func startExtractSpan(ctx context.Context, kind, filePath string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "signals.extract",
		trace.WithAttributes(
			attribute.String("extract.kind", kind),
			attribute.String("file.path", filePath),
		))
}

func recordExtract(ctx context.Context, kind string, duration time.Duration, matched bool) {
	metricsOnce.Do(initMetrics)
	attrs := metric.WithAttributes(
		attribute.String("extract.kind", kind),
		attribute.Bool("extract.matched", matched),
	)
	if extractLatency != nil {
		extractLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
	if extractTotal != nil {
		extractTotal.Add(ctx, 1, attrs)
	}
}
