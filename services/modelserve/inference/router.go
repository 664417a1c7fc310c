// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package inference routes prediction requests between the stable and
// canary model variants and records per-variant latency.
package inference

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/AleutianAI/AleutianServe/services/modelserve/datatypes"
	"github.com/AleutianAI/AleutianServe/services/modelserve/deployment"
	"github.com/AleutianAI/AleutianServe/services/modelserve/model"
)

const (
	// DefaultMaxInFlight bounds concurrent predictions per router.
	DefaultMaxInFlight = 256

	// slowdownDelay is the artificial canary latency injected when the
	// slowdown simulation is enabled.
	slowdownDelay = 10 * time.Millisecond
)

// Router selects a model variant per request and runs the prediction.
//
// Description:
//
//	Routing is deterministic: a request whose millisecond timestamp is
//	divisible by 10 goes to the canary when one is active, so canary
//	traffic converges on 10% under uniform arrival times. The latency
//	window opens before variant resolution and closes after the
//	prediction returns, so model load time and any simulated slowdown
//	are part of the recorded sample.
//
// # Thread Safety
//
// Safe for concurrent use. No lock is held across model loading or
// prediction; the deployment state is read per request, so a request may
// still finish on a canary that an admin rolled back mid-flight. Its
// sample lands in the canary series that the rollback already reset,
// which the health checker tolerates.
type Router struct {
	state    *deployment.State
	metrics  *deployment.LatencyMetrics
	resolver *model.Resolver
	sem      *semaphore.Weighted
	now      func() time.Time
	sleep    func(time.Duration)
}

// RouterOption customizes Router construction.
type RouterOption func(*Router)

// WithClock pins the routing clock. Tests use this to force requests
// onto either variant.
func WithClock(now func() time.Time) RouterOption {
	return func(r *Router) {
		r.now = now
	}
}

// WithMaxInFlight bounds concurrent predictions. Values below 1 keep
// the default.
func WithMaxInFlight(n int) RouterOption {
	return func(r *Router) {
		if n >= 1 {
			r.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// withSleep replaces the slowdown sleeper, for tests.
func withSleep(sleep func(time.Duration)) RouterOption {
	return func(r *Router) {
		r.sleep = sleep
	}
}

// NewRouter wires a router to the shared deployment state, the latency
// metrics store, and a variant resolver.
func NewRouter(state *deployment.State, metrics *deployment.LatencyMetrics, resolver *model.Resolver, opts ...RouterOption) *Router {
	r := &Router{
		state:    state,
		metrics:  metrics,
		resolver: resolver,
		sem:      semaphore.NewWeighted(DefaultMaxInFlight),
		now:      time.Now,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Predict routes one feature vector to a variant and returns the scored
// response.
//
// Inputs:
//   - ctx: Cancels the wait for an in-flight slot.
//   - features: Raw feature vector. Arity and finiteness are checked by
//     the model; violations surface as validation.ErrInvalidFeatures.
//
// Outputs:
//   - *datatypes.PredictionResponse: Probability, variant, latency, and
//     request ID.
//   - error: model.ErrModelLoad when the routed artifact cannot be
//     loaded, validation errors from the model, or ctx.Err().
func (r *Router) Predict(ctx context.Context, features []float64) (*datatypes.PredictionResponse, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)

	nowMs := r.now().UnixMilli()
	requestID := fmt.Sprintf("req_%d", nowMs)
	slog.Info("processing prediction request",
		"request_id", requestID,
		"feature_count", len(features),
	)

	// Deterministic 1-in-10 split on the millisecond timestamp.
	useCanary := r.state.CanaryActive() && nowMs%10 == 0
	variant := datatypes.VariantStable
	if useCanary {
		variant = datatypes.VariantCanary
	}
	slog.Info("routing request", "request_id", requestID, "model", variant)

	start := time.Now()

	predictor, err := r.resolve(useCanary)
	if err != nil {
		return nil, err
	}
	if predictor == nil {
		// Canary rolled back between the check and the resolve.
		variant = datatypes.VariantStable
		useCanary = false
		if predictor, err = r.resolver.Stable(); err != nil {
			return nil, err
		}
	}

	if useCanary && r.state.SimulateSlowdown() {
		slog.Debug("applying simulated slowdown", "request_id", requestID)
		r.sleep(slowdownDelay)
	}

	churnProbability, err := predictor.PredictProba(features)
	if err != nil {
		return nil, err
	}

	latencyMs := float64(time.Since(start)) / float64(time.Millisecond)
	r.metrics.Append(variant, latencyMs)

	slog.Info("request completed",
		"request_id", requestID,
		"model", variant,
		"latency_ms", latencyMs,
	)
	return &datatypes.PredictionResponse{
		ChurnProbability: churnProbability,
		ModelUsed:        variant,
		LatencyMs:        latencyMs,
		RequestID:        requestID,
	}, nil
}

func (r *Router) resolve(useCanary bool) (model.Predictor, error) {
	if useCanary {
		return r.resolver.Canary()
	}
	return r.resolver.Stable()
}
