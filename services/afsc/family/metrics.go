// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package family

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for family operations.
var (
	tracer = otel.Tracer("govcodes.afsc.family")
	meter  = otel.Meter("govcodes.afsc.family")
)

var (
	cacheHits      metric.Int64Counter
	cacheMisses    metric.Int64Counter
	lookupDuration metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		cacheHits, err = meter.Int64Counter(
			"govcodes_family_cache_hits_total",
			metric.WithDescription("Lookups answered from the per-family cache"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheMisses, err = meter.Int64Counter(
			"govcodes_family_cache_misses_total",
			metric.WithDescription("Lookups that had to scan and resolve"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		lookupDuration, err = meter.Float64Histogram(
			"govcodes_family_lookup_duration_seconds",
			metric.WithDescription("Duration of family lookups"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordCacheHit(ctx context.Context, family string) {
	if err := initMetrics(); err != nil {
		return
	}
	cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("family", family)))
}

func recordCacheMiss(ctx context.Context, family string) {
	if err := initMetrics(); err != nil {
		return
	}
	cacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("family", family)))
}

func recordLookupDuration(ctx context.Context, family string, outcome Outcome, d time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}
	lookupDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("family", family),
		attribute.String("outcome", string(outcome)),
	))
}

// startSpan creates a span for a family operation.
func startSpan(ctx context.Context, operation, family string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Family."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("afsc.family", family),
		}, attrs...)...),
	)
}

// setLookupResult sets outcome attributes on a lookup span.
func setLookupResult(span trace.Span, outcome Outcome, cached bool) {
	span.SetAttributes(
		attribute.String("afsc.outcome", string(outcome)),
		attribute.Bool("afsc.cache_hit", cached),
	)
}
