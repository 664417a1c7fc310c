// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package inference

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianServe/pkg/validation"
	"github.com/AleutianAI/AleutianServe/services/modelserve/datatypes"
	"github.com/AleutianAI/AleutianServe/services/modelserve/deployment"
	"github.com/AleutianAI/AleutianServe/services/modelserve/model"
)

func writeTestArtifact(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	payload := `{
		"schema_version": 1,
		"model_type": "logistic_regression",
		"feature_count": 2,
		"coefficients": [0.4, -0.6],
		"intercept": 0.1
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))
	return path
}

// msClock returns a clock pinned to a unix-millisecond value.
func msClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

type routerFixture struct {
	router  *Router
	state   *deployment.State
	metrics *deployment.LatencyMetrics
	stable  string
	canary  string
}

func newRouterFixture(t *testing.T, opts ...RouterOption) *routerFixture {
	t.Helper()
	stable := writeTestArtifact(t, "model_v1.json")
	canary := writeTestArtifact(t, "model_v2.json")

	state := deployment.NewState(stable)
	metrics := deployment.NewLatencyMetrics()
	store := model.NewStore()
	resolver := model.NewResolver(store, state)

	return &routerFixture{
		router:  NewRouter(state, metrics, resolver, opts...),
		state:   state,
		metrics: metrics,
		stable:  stable,
		canary:  canary,
	}
}

func (f *routerFixture) activateCanary() {
	f.state.ActivateCanary(f.canary, "dep-1", time.Now())
}

func TestRouter_StableByDefault(t *testing.T) {
	f := newRouterFixture(t, WithClock(msClock(1000))) // divisible by 10

	resp, err := f.router.Predict(context.Background(), []float64{1, 2})
	require.NoError(t, err)

	assert.Equal(t, datatypes.VariantStable, resp.ModelUsed,
		"no canary deployed, timestamp split must not apply")
	assert.Equal(t, "req_1000", resp.RequestID)
	assert.Greater(t, resp.ChurnProbability, 0.0)
	assert.Less(t, resp.ChurnProbability, 1.0)

	stableN, canaryN := f.metrics.Counts()
	assert.Equal(t, 1, stableN)
	assert.Zero(t, canaryN)
}

func TestRouter_DeterministicSplit(t *testing.T) {
	f := newRouterFixture(t)
	f.activateCanary()

	cases := []struct {
		ms   int64
		want datatypes.ModelVariant
	}{
		{1000, datatypes.VariantCanary},
		{1001, datatypes.VariantStable},
		{1005, datatypes.VariantStable},
		{1010, datatypes.VariantCanary},
		{1019, datatypes.VariantStable},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("ms_%d", tc.ms), func(t *testing.T) {
			r := NewRouter(f.state, f.metrics, model.NewResolver(model.NewStore(), f.state),
				WithClock(msClock(tc.ms)))
			resp, err := r.Predict(context.Background(), []float64{1, 2})
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.ModelUsed)
			assert.Equal(t, fmt.Sprintf("req_%d", tc.ms), resp.RequestID)
		})
	}
}

func TestRouter_InvalidFeatures(t *testing.T) {
	f := newRouterFixture(t, WithClock(msClock(1001)))

	_, err := f.router.Predict(context.Background(), []float64{1, 2, 3})
	assert.ErrorIs(t, err, validation.ErrInvalidFeatures, "arity mismatch")

	stableN, canaryN := f.metrics.Counts()
	assert.Zero(t, stableN, "failed predictions must not pollute the series")
	assert.Zero(t, canaryN)
}

func TestRouter_MissingStableArtifact(t *testing.T) {
	state := deployment.NewState(filepath.Join(t.TempDir(), "gone.json"))
	metrics := deployment.NewLatencyMetrics()
	r := NewRouter(state, metrics, model.NewResolver(model.NewStore(), state))

	_, err := r.Predict(context.Background(), []float64{1, 2})
	assert.ErrorIs(t, err, model.ErrModelNotFound)
}

type stubPaths struct {
	stable, canary string
}

func (p stubPaths) StablePath() string { return p.stable }
func (p stubPaths) CanaryPath() string { return p.canary }

func TestRouter_FallsBackWhenCanaryVanishes(t *testing.T) {
	// The state says a canary is active, but by resolve time the path is
	// gone. The request must finish on stable.
	stable := writeTestArtifact(t, "model_v1.json")
	state := deployment.NewState(stable)
	state.ActivateCanary(writeTestArtifact(t, "model_v2.json"), "dep-1", time.Now())

	metrics := deployment.NewLatencyMetrics()
	resolver := model.NewResolver(model.NewStore(), stubPaths{stable: stable})
	r := NewRouter(state, metrics, resolver, WithClock(msClock(1000)))

	resp, err := r.Predict(context.Background(), []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, datatypes.VariantStable, resp.ModelUsed)

	stableN, canaryN := metrics.Counts()
	assert.Equal(t, 1, stableN)
	assert.Zero(t, canaryN)
}

func TestRouter_SlowdownShowsUpInCanaryLatency(t *testing.T) {
	f := newRouterFixture(t)
	f.activateCanary()
	f.state.ToggleSlowdown()

	// 25 requests with consecutive millisecond timestamps: three land on
	// a multiple of 10.
	var ms int64
	r := NewRouter(f.state, f.metrics, model.NewResolver(model.NewStore(), f.state),
		WithClock(func() time.Time {
			ms++
			return time.UnixMilli(ms - 1)
		}))

	canarySeen := 0
	for i := 0; i < 25; i++ {
		resp, err := r.Predict(context.Background(), []float64{1, 2})
		require.NoError(t, err)
		if resp.ModelUsed == datatypes.VariantCanary {
			canarySeen++
			assert.GreaterOrEqual(t, resp.LatencyMs, 10.0,
				"slowdown must be inside the measured window")
		}
	}
	assert.Equal(t, 3, canarySeen)

	stableN, canaryN := f.metrics.Counts()
	assert.Equal(t, 22, stableN)
	assert.Equal(t, 3, canaryN)

	for _, sample := range f.metrics.Samples(datatypes.VariantCanary) {
		assert.GreaterOrEqual(t, sample, 10.0)
	}
}

func TestRouter_SlowdownDisabledOffCanary(t *testing.T) {
	slept := false
	f := newRouterFixture(t,
		WithClock(msClock(1000)),
		withSleep(func(time.Duration) { slept = true }))
	f.state.ToggleSlowdown()

	// Slowdown on, but no canary: the stable path must never sleep.
	_, err := f.router.Predict(context.Background(), []float64{1, 2})
	require.NoError(t, err)
	assert.False(t, slept)
}

func TestRouter_ConcurrentPredictions(t *testing.T) {
	f := newRouterFixture(t, WithMaxInFlight(4))
	f.activateCanary()

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.router.Predict(context.Background(), []float64{1, 2})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	stableN, canaryN := f.metrics.Counts()
	assert.Equal(t, 64, stableN+canaryN)
}
