// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the model
// serving control plane.
//
// # Description
//
// Metrics cover prediction traffic (per-variant counters and latency
// histograms), admin deployment operations, and canary health checks.
// They complement the in-process latency series used by the health
// checker; the statistical test never reads Prometheus.
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
const metricsNamespace = "aleutian"

// Subsystem for model serving metrics
const servingSubsystem = "modelserve"

// ServingMetrics holds all Prometheus metrics for the serving plane.
//
// # Thread Safety
//
// All operations are thread-safe.
type ServingMetrics struct {
	// PredictionsTotal counts predictions by variant and status.
	// Labels: model (stable, canary), status (success, error)
	PredictionsTotal *prometheus.CounterVec

	// PredictionLatencySeconds measures end-to-end prediction latency.
	// Labels: model (stable, canary)
	PredictionLatencySeconds *prometheus.HistogramVec

	// DeploymentOpsTotal counts admin operations by kind and status.
	// Labels: operation (deploy, rollback, promote, toggle_slowdown),
	// status (success, error)
	DeploymentOpsTotal *prometheus.CounterVec

	// HealthChecksTotal counts health checks by outcome.
	// Labels: outcome (alert, healthy, insufficient_data, no_canary)
	HealthChecksTotal *prometheus.CounterVec

	// CanaryActive is 1 while a canary deployment is live.
	CanaryActive prometheus.Gauge

	// AlertActive is 1 while the latency alert is raised.
	AlertActive prometheus.Gauge
}

// DefaultMetrics is the singleton instance of ServingMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *ServingMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup.
//
// # Outputs
//
//   - *ServingMetrics: The initialized metrics instance.
func InitMetrics() *ServingMetrics {
	DefaultMetrics = &ServingMetrics{
		PredictionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: servingSubsystem,
				Name:      "predictions_total",
				Help:      "Total prediction requests by model variant and status",
			},
			[]string{"model", "status"},
		),

		PredictionLatencySeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: servingSubsystem,
				Name:      "prediction_latency_seconds",
				Help:      "End-to-end prediction latency in seconds",
				Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"model"},
		),

		DeploymentOpsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: servingSubsystem,
				Name:      "deployment_ops_total",
				Help:      "Total admin deployment operations by kind and status",
			},
			[]string{"operation", "status"},
		),

		HealthChecksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: servingSubsystem,
				Name:      "health_checks_total",
				Help:      "Total canary health checks by outcome",
			},
			[]string{"outcome"},
		),

		CanaryActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: servingSubsystem,
				Name:      "canary_active",
				Help:      "1 while a canary deployment is live",
			},
		),

		AlertActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: servingSubsystem,
				Name:      "alert_active",
				Help:      "1 while the canary latency alert is raised",
			},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Label Values
// =============================================================================

// Operation labels admin ops for metrics.
type Operation string

const (
	// OpDeploy labels canary deployments.
	OpDeploy Operation = "deploy"

	// OpRollback labels canary rollbacks.
	OpRollback Operation = "rollback"

	// OpPromote labels canary promotions.
	OpPromote Operation = "promote"

	// OpToggleSlowdown labels slowdown toggles.
	OpToggleSlowdown Operation = "toggle_slowdown"
)

// HealthOutcome labels health check results for metrics.
type HealthOutcome string

const (
	// OutcomeAlert indicates the check raised the latency alert.
	OutcomeAlert HealthOutcome = "alert"

	// OutcomeHealthy indicates the canary passed the check.
	OutcomeHealthy HealthOutcome = "healthy"

	// OutcomeInsufficientData indicates the sample floor was not met.
	OutcomeInsufficientData HealthOutcome = "insufficient_data"

	// OutcomeNoCanary indicates no canary was active.
	OutcomeNoCanary HealthOutcome = "no_canary"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordPrediction records one completed prediction.
func (m *ServingMetrics) RecordPrediction(variant string, success bool, seconds float64) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.PredictionsTotal.WithLabelValues(variant, status).Inc()
	if success {
		m.PredictionLatencySeconds.WithLabelValues(variant).Observe(seconds)
	}
}

// RecordDeploymentOp records one admin operation.
func (m *ServingMetrics) RecordDeploymentOp(op Operation, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.DeploymentOpsTotal.WithLabelValues(string(op), status).Inc()
}

// RecordHealthCheck records one health check outcome.
func (m *ServingMetrics) RecordHealthCheck(outcome HealthOutcome) {
	if m == nil {
		return
	}
	m.HealthChecksTotal.WithLabelValues(string(outcome)).Inc()
}

// SetCanaryActive reflects the deployment state into the gauge.
func (m *ServingMetrics) SetCanaryActive(active bool) {
	if m == nil {
		return
	}
	m.CanaryActive.Set(boolGauge(active))
}

// SetAlertActive reflects the alert flag into the gauge.
func (m *ServingMetrics) SetAlertActive(active bool) {
	if m == nil {
		return
	}
	m.AlertActive.Set(boolGauge(active))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
