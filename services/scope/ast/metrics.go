// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for syntax extraction.
var (
	tracer = otel.Tracer("crewscope.ast")
	meter  = otel.Meter("crewscope.ast")
)

// Metrics for parse operations.
var (
	parseLatency metric.Float64Histogram
	parseTotal   metric.Int64Counter
	parseErrors  metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		parseLatency, err = meter.Float64Histogram(
			"scope_parse_duration_seconds",
			metric.WithDescription("Duration of workflow source parse operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		parseTotal, err = meter.Int64Counter(
			"scope_parse_total",
			metric.WithDescription("Total number of parse operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		parseErrors, err = meter.Int64Counter(
			"scope_parse_errors_total",
			metric.WithDescription("Total number of failed parse operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startParseSpan creates a span for a parse operation.
//
// The caller must call span.End().
func startParseSpan(ctx context.Context, filePath string, contentSize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "PythonParser.Parse",
		trace.WithAttributes(
			attribute.String("scope.file", filePath),
			attribute.Int("scope.content_size", contentSize),
		),
	)
}

// recordParse records metrics and a span event for one parse operation.
func recordParse(ctx context.Context, filePath string, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return // Silently skip if metrics init failed
	}

	attrs := metric.WithAttributes(
		attribute.Bool("success", success),
	)

	parseLatency.Record(ctx, duration.Seconds(), attrs)
	parseTotal.Add(ctx, 1, attrs)

	if !success {
		parseErrors.Add(ctx, 1,
			metric.WithAttributes(attribute.String("file", filePath)),
		)
	}
}
