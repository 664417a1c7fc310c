// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package deployment

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianServe/services/modelserve/datatypes"
	"github.com/AleutianAI/AleutianServe/services/modelserve/model"
)

func writeTestArtifact(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	payload := `{
		"schema_version": 1,
		"model_type": "logistic_regression",
		"feature_count": 3,
		"coefficients": [0.5, -0.25, 1.0],
		"intercept": -0.1
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))
	return path
}

func newTestController(t *testing.T, stablePath string, opts ...ControllerOption) (*Controller, *State, *LatencyMetrics) {
	t.Helper()
	state := NewState(stablePath)
	metrics := NewLatencyMetrics()
	store := model.NewStore()
	return NewController(state, metrics, store, opts...), state, metrics
}

func TestController_DeployCanary(t *testing.T) {
	stable := writeTestArtifact(t, "model_v1.json")
	canary := writeTestArtifact(t, "model_v2.json")

	fixed := time.Date(2026, 8, 26, 9, 30, 0, 0, time.UTC)
	ctrl, state, metrics := newTestController(t, stable,
		WithClock(func() time.Time { return fixed }))

	// Stale samples from before the deployment must not survive it.
	metrics.Append(datatypes.VariantStable, 11)

	result, err := ctrl.DeployCanary(canary)
	require.NoError(t, err)
	assert.Equal(t, canary, result.ModelPath)
	assert.Equal(t, fixed, result.CanaryStartTime)
	assert.NotEmpty(t, result.DeploymentID)

	assert.True(t, state.CanaryActive())
	assert.Equal(t, canary, state.CanaryPath())

	stableN, canaryN := metrics.Counts()
	assert.Zero(t, stableN)
	assert.Zero(t, canaryN)
}

func TestController_DeployCanary_DistinctDeploymentIDs(t *testing.T) {
	canary := writeTestArtifact(t, "model_v2.json")
	ctrl, _, _ := newTestController(t, writeTestArtifact(t, "model_v1.json"))

	first, err := ctrl.DeployCanary(canary)
	require.NoError(t, err)
	second, err := ctrl.DeployCanary(canary)
	require.NoError(t, err)

	assert.NotEqual(t, first.DeploymentID, second.DeploymentID)
}

func TestController_DeployCanary_MissingArtifact(t *testing.T) {
	ctrl, state, _ := newTestController(t, writeTestArtifact(t, "model_v1.json"))

	_, err := ctrl.DeployCanary(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, model.ErrModelNotFound)
	assert.False(t, state.CanaryActive(), "failed deploy must not mutate state")
}

func TestController_DeployCanary_CorruptArtifact(t *testing.T) {
	ctrl, state, _ := newTestController(t, writeTestArtifact(t, "model_v1.json"))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))

	_, err := ctrl.DeployCanary(bad)
	assert.ErrorIs(t, err, model.ErrModelLoad)
	assert.False(t, state.CanaryActive())
}

func TestController_RollbackCanary(t *testing.T) {
	canary := writeTestArtifact(t, "model_v2.json")
	ctrl, state, metrics := newTestController(t, writeTestArtifact(t, "model_v1.json"))

	_, err := ctrl.DeployCanary(canary)
	require.NoError(t, err)
	metrics.Append(datatypes.VariantCanary, 55)

	require.NoError(t, ctrl.RollbackCanary())
	assert.False(t, state.CanaryActive())

	stableN, canaryN := metrics.Counts()
	assert.Zero(t, stableN)
	assert.Zero(t, canaryN)

	assert.ErrorIs(t, ctrl.RollbackCanary(), ErrNoActiveCanary)
}

func TestController_PromoteCanary(t *testing.T) {
	stable := writeTestArtifact(t, "model_v1.json")
	canary := writeTestArtifact(t, "model_v2.json")
	ctrl, state, metrics := newTestController(t, stable)

	t.Run("without canary", func(t *testing.T) {
		_, err := ctrl.PromoteCanary()
		assert.ErrorIs(t, err, ErrNoActiveCanary)
	})

	_, err := ctrl.DeployCanary(canary)
	require.NoError(t, err)
	metrics.Append(datatypes.VariantStable, 10)

	t.Run("blocked by alert", func(t *testing.T) {
		state.SetAlert(true)
		_, err := ctrl.PromoteCanary()
		assert.ErrorIs(t, err, ErrAlertActive)
		assert.True(t, state.CanaryActive())
		state.SetAlert(false)
	})

	t.Run("swaps and resets", func(t *testing.T) {
		result, err := ctrl.PromoteCanary()
		require.NoError(t, err)
		assert.Equal(t, "model_v1.json", result.PreviousStableModel)
		assert.Equal(t, "model_v2.json", result.NewStableModel)

		assert.Equal(t, canary, state.StablePath())
		assert.False(t, state.CanaryActive())

		stableN, canaryN := metrics.Counts()
		assert.Zero(t, stableN)
		assert.Zero(t, canaryN)
	})
}

func TestController_ToggleSlowdown(t *testing.T) {
	ctrl, state, _ := newTestController(t, writeTestArtifact(t, "model_v1.json"))

	assert.True(t, ctrl.ToggleSlowdown())
	assert.True(t, state.SimulateSlowdown())
	assert.False(t, ctrl.ToggleSlowdown())
}
