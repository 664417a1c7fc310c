// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package canary

import (
	"log/slog"
	"math"

	"github.com/AleutianAI/AleutianServe/services/modelserve/datatypes"
	"github.com/AleutianAI/AleutianServe/services/modelserve/deployment"
)

const (
	// DefaultMinSamples is the per-variant sample floor below which no
	// statistical test is attempted.
	DefaultMinSamples = 20

	// DefaultAlpha is the significance level for the latency comparison.
	DefaultAlpha = 0.05
)

// Report is the outcome of one canary health check.
//
// The numeric fields are present only when a test was actually run;
// sample counts are present whenever samples were inspected. Rounded
// values are for presentation, the alert decision is made on the raw
// statistics.
type Report struct {
	AlertTriggered    bool     `json:"alert_triggered"`
	Message           string   `json:"message"`
	PValue            *float64 `json:"p_value,omitempty"`
	StableAvgMs       *float64 `json:"stable_avg_latency_ms,omitempty"`
	CanaryAvgMs       *float64 `json:"canary_avg_latency_ms,omitempty"`
	StableSampleCount *int     `json:"stable_sample_count,omitempty"`
	CanarySampleCount *int     `json:"canary_sample_count,omitempty"`
}

// Checker compares canary latency against stable latency and writes the
// alert flag back into the deployment state.
//
// Description:
//
//	Each Check reads both latency series from the metrics store, runs
//	Welch's t-test, and sets or clears the alert flag. The alert fires
//	only when the difference is significant AND the canary is the slower
//	side; a later healthy check clears a previously raised alert.
//
// # Thread Safety
//
// Safe for concurrent use. Reads take the metrics lock, the flag write
// takes the state lock; neither is held across the computation.
type Checker struct {
	state      *deployment.State
	metrics    *deployment.LatencyMetrics
	minSamples int
	alpha      float64
}

// CheckerOption customizes Checker construction.
type CheckerOption func(*Checker)

// WithMinSamples overrides the per-variant sample floor.
func WithMinSamples(n int) CheckerOption {
	return func(c *Checker) {
		c.minSamples = n
	}
}

// WithAlpha overrides the significance level.
func WithAlpha(alpha float64) CheckerOption {
	return func(c *Checker) {
		c.alpha = alpha
	}
}

// NewChecker wires a health checker to the shared state and metrics.
func NewChecker(state *deployment.State, metrics *deployment.LatencyMetrics, opts ...CheckerOption) *Checker {
	c := &Checker{
		state:      state,
		metrics:    metrics,
		minSamples: DefaultMinSamples,
		alpha:      DefaultAlpha,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check runs one health evaluation.
//
// Outputs:
//   - *Report: Always non-nil on success; carries the alert decision and
//     whichever statistics were computed.
//   - error: Non-nil only for statistical failure (zero-variance series),
//     which the precondition gates make unreachable in normal operation.
func (c *Checker) Check() (*Report, error) {
	if !c.state.CanaryActive() {
		return &Report{
			AlertTriggered: false,
			Message:        "No active canary deployment to monitor.",
		}, nil
	}

	stable := c.metrics.Samples(datatypes.VariantStable)
	canary := c.metrics.Samples(datatypes.VariantCanary)
	stableCount := len(stable)
	canaryCount := len(canary)

	if stableCount < c.minSamples || canaryCount < c.minSamples {
		return &Report{
			AlertTriggered:    false,
			Message:           "Insufficient data for statistical analysis. Need at least 20 samples for both models.",
			StableSampleCount: &stableCount,
			CanarySampleCount: &canaryCount,
		}, nil
	}

	result, err := WelchTTest(canary, stable, c.alpha)
	if err != nil {
		return nil, err
	}
	canaryAvg := result.Mean1
	stableAvg := result.Mean2

	alert := result.Significant && canaryAvg > stableAvg
	c.state.SetAlert(alert)

	message := "Canary performance is acceptable."
	if alert {
		message = "ALERT: Canary latency is significantly higher than stable."
	}

	slog.Info("canary health checked",
		"alert_triggered", alert,
		"p_value", result.PValue,
		"t_statistic", result.TStatistic,
		"stable_samples", stableCount,
		"canary_samples", canaryCount,
	)

	pValue := roundTo(result.PValue, 3)
	stableRounded := roundTo(stableAvg, 1)
	canaryRounded := roundTo(canaryAvg, 1)
	return &Report{
		AlertTriggered:    alert,
		Message:           message,
		PValue:            &pValue,
		StableAvgMs:       &stableRounded,
		CanaryAvgMs:       &canaryRounded,
		StableSampleCount: &stableCount,
		CanarySampleCount: &canaryCount,
	}, nil
}

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
