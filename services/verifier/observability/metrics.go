// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides metrics and instrumentation for the verifier.
//
// # Description
//
// This package implements Prometheus metrics for monitoring verification
// runs. Metrics include:
//   - Run counters (by endpoint, outcome)
//   - Per-stage duration histograms
//   - Run duration histograms
//   - Active stream gauges
//   - Deadline-exceeded and error counters
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "truthspotter"

// Subsystem for verification metrics
const verifierSubsystem = "verifier"

// Metrics holds all Prometheus metrics for verification runs.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring pipeline
// performance. Initialize once at startup via InitMetrics().
//
// # Thread Safety
//
// All operations are thread-safe.
type Metrics struct {
	// RunsTotal counts verification runs by endpoint and outcome.
	// Labels: endpoint (verify, verify_stream), outcome (completed, casual,
	// timed_out, rejected)
	RunsTotal *prometheus.CounterVec

	// RunDurationSeconds measures total run duration.
	// Labels: endpoint, outcome
	RunDurationSeconds *prometheus.HistogramVec

	// StageDurationSeconds measures per-stage duration.
	// Labels: stage (Classifying, Analyzing, Researching, ...)
	StageDurationSeconds *prometheus.HistogramVec

	// VerdictsTotal counts adjudication verdicts.
	// Labels: verdict (SUPPORTED, REFUTED, INCONCLUSIVE)
	VerdictsTotal *prometheus.CounterVec

	// EvidenceItems observes how many curated evidence items each run
	// surfaced.
	EvidenceItems prometheus.Histogram

	// ActiveStreams tracks currently active streaming connections.
	ActiveStreams prometheus.Gauge

	// DeadlinesExceededTotal counts runs cut off by the global deadline.
	DeadlinesExceededTotal prometheus.Counter

	// ErrorsTotal counts degraded stages by stage and error type.
	// Labels: stage, error_code (llm_error, search_error, store_error,
	// parse_error)
	ErrorsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of Metrics.
// Initialized by InitMetrics().
var DefaultMetrics *Metrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics on the default registry.
// Call once at application startup.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *Metrics {
	DefaultMetrics = &Metrics{
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: verifierSubsystem,
				Name:      "runs_total",
				Help:      "Total verification runs by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),

		RunDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: verifierSubsystem,
				Name:      "run_duration_seconds",
				Help:      "Total verification run duration in seconds",
				Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 60, 90, 120},
			},
			[]string{"endpoint", "outcome"},
		),

		StageDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: verifierSubsystem,
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage duration in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),

		VerdictsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: verifierSubsystem,
				Name:      "verdicts_total",
				Help:      "Total adjudication verdicts by outcome",
			},
			[]string{"verdict"},
		),

		EvidenceItems: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: verifierSubsystem,
				Name:      "evidence_items",
				Help:      "Curated evidence items surfaced per run",
				Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 8},
			},
		),

		ActiveStreams: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: verifierSubsystem,
				Name:      "active_streams",
				Help:      "Number of currently active streaming connections",
			},
		),

		DeadlinesExceededTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: verifierSubsystem,
				Name:      "deadlines_exceeded_total",
				Help:      "Total runs cut off by the global verification deadline",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: verifierSubsystem,
				Name:      "errors_total",
				Help:      "Total degraded stages by stage and error type",
			},
			[]string{"stage", "error_code"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRun records a completed verification run.
func (m *Metrics) RecordRun(endpoint, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.RunDurationSeconds.WithLabelValues(endpoint, outcome).Observe(seconds)
}

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.StageDurationSeconds.WithLabelValues(stage).Observe(seconds)
}

// RecordVerdict records one adjudication verdict.
func (m *Metrics) RecordVerdict(verdict string) {
	if m == nil {
		return
	}
	m.VerdictsTotal.WithLabelValues(verdict).Inc()
}

// RecordEvidence records how many evidence items a run surfaced.
func (m *Metrics) RecordEvidence(count int) {
	if m == nil {
		return
	}
	m.EvidenceItems.Observe(float64(count))
}

// RecordDeadlineExceeded counts a run cut off by the global deadline.
func (m *Metrics) RecordDeadlineExceeded() {
	if m == nil {
		return
	}
	m.DeadlinesExceededTotal.Inc()
}

// RecordStageError counts a degraded stage.
func (m *Metrics) RecordStageError(stage, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(stage, code).Inc()
}

// StreamStarted increments the active streams gauge.
func (m *Metrics) StreamStarted() {
	if m == nil {
		return
	}
	m.ActiveStreams.Inc()
}

// StreamEnded decrements the active streams gauge.
func (m *Metrics) StreamEnded() {
	if m == nil {
		return
	}
	m.ActiveStreams.Dec()
}
