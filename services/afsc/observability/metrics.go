// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for code lookups.
//
// # Description
//
// Lookup failures collapse to "not found" for callers, but operators still
// need to tell bad input from missing reference data. LookupsTotal keeps the
// distinction with its outcome label:
//
//   - found
//   - parse_incomplete
//   - validation_failure
//   - data_absent
//
// Metrics implements family.Recorder and is handed to every family by the
// dispatcher. The HTTP layer records request counts through RecordRequest.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics.
const metricsNamespace = "govcodes"

// Metrics holds the lookup service collectors.
type Metrics struct {
	// LookupsTotal counts lookups. Labels: family, outcome.
	LookupsTotal *prometheus.CounterVec

	// LookupDurationSeconds measures lookups. Labels: family.
	LookupDurationSeconds *prometheus.HistogramVec

	// SearchesTotal counts prefix searches. Labels: family.
	SearchesTotal *prometheus.CounterVec

	// SearchResults measures result counts per search. Labels: family.
	SearchResults *prometheus.HistogramVec

	// ReloadsTotal counts reference reloads. Labels: family, status
	// (ok, partial, error).
	ReloadsTotal *prometheus.CounterVec

	// SkippedDocumentsTotal counts reference documents skipped during
	// loads. Labels: family.
	SkippedDocumentsTotal *prometheus.CounterVec

	// HTTPRequestsTotal counts API requests. Labels: route, status.
	HTTPRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
//
// # Inputs
//
//   - reg: Registry to register with. nil creates unregistered collectors,
//     which is what library users and tests that do not scrape want.
//
// # Limitations
//
//   - Panics on duplicate registration, like promauto. Use one Metrics per
//     registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "lookups_total",
				Help:      "Code lookups by family and outcome",
			},
			[]string{"family", "outcome"},
		),
		LookupDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "lookup_duration_seconds",
				Help:      "Code lookup duration in seconds",
				Buckets:   []float64{0.000005, 0.00001, 0.000025, 0.00005, 0.0001, 0.00025, 0.001, 0.01},
			},
			[]string{"family"},
		),
		SearchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "searches_total",
				Help:      "Prefix searches by family",
			},
			[]string{"family"},
		),
		SearchResults: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "search_results",
				Help:      "Number of codes returned per prefix search",
				Buckets:   []float64{0, 1, 5, 10, 50, 100, 500},
			},
			[]string{"family"},
		),
		ReloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "reloads_total",
				Help:      "Reference data reloads by family and status",
			},
			[]string{"family", "status"},
		),
		SkippedDocumentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "skipped_documents_total",
				Help:      "Reference documents skipped because they could not be decoded",
			},
			[]string{"family"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "API requests by route and status code",
			},
			[]string{"route", "status"},
		),
	}
}

// RecordLookup counts one lookup and its duration.
func (m *Metrics) RecordLookup(family, outcome string, d time.Duration) {
	m.LookupsTotal.WithLabelValues(family, outcome).Inc()
	m.LookupDurationSeconds.WithLabelValues(family).Observe(d.Seconds())
}

// RecordSearch counts one search and its result size.
func (m *Metrics) RecordSearch(family string, results int) {
	m.SearchesTotal.WithLabelValues(family).Inc()
	m.SearchResults.WithLabelValues(family).Observe(float64(results))
}

// RecordReload counts one reload and the documents it skipped.
func (m *Metrics) RecordReload(family, status string, skipped int) {
	m.ReloadsTotal.WithLabelValues(family, status).Inc()
	if skipped > 0 {
		m.SkippedDocumentsTotal.WithLabelValues(family).Add(float64(skipped))
	}
}

// RecordRequest counts one API request.
func (m *Metrics) RecordRequest(route string, status int) {
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
