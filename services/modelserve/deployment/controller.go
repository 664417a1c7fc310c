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
	"log/slog"
	"path/filepath"
	"time"

	"github.com/AleutianAI/AleutianServe/services/modelserve/model"
	"github.com/google/uuid"
)

// Controller orchestrates admin transitions across the model store, the
// deployment state, and the latency metrics store.
//
// Description:
//
//	Each transition is atomic from the caller's perspective: a single
//	critical section on the state lock followed by an independent one on
//	the metrics lock. There is deliberately no outer lock spanning both;
//	concurrent admin calls are last-writer-wins (see package doc).
//
// # Thread Safety
//
// Safe for concurrent use; all fields are read-only after construction.
type Controller struct {
	state   *State
	metrics *LatencyMetrics
	store   *model.Store
	now     func() time.Time
}

// DeployResult reports a successful canary deployment.
type DeployResult struct {
	ModelPath       string
	CanaryStartTime time.Time
	DeploymentID    string
}

// PromoteResult reports a successful promotion. Paths are basenames, for
// operator display.
type PromoteResult struct {
	PreviousStableModel string
	NewStableModel      string
}

// ControllerOption customizes Controller construction.
type ControllerOption func(*Controller)

// WithClock pins the controller's clock. Tests use this to make canary
// start times deterministic.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.now = now
	}
}

// NewController wires a controller to the shared state, metrics, and
// model store.
func NewController(state *State, metrics *LatencyMetrics, store *model.Store, opts ...ControllerOption) *Controller {
	c := &Controller{
		state:   state,
		metrics: metrics,
		store:   store,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DeployCanary validates and activates a new canary model.
//
// The artifact is loaded through the store before any state mutation, so
// a missing or corrupt artifact leaves the deployment untouched
// (model.ErrModelNotFound / model.ErrModelLoad propagate to the caller).
// On success the canary slot is set, the alert flag cleared, and both
// latency series reset.
func (c *Controller) DeployCanary(path string) (DeployResult, error) {
	if _, err := c.store.Get(path); err != nil {
		slog.Warn("canary deploy rejected", "model_path", path, "error", err)
		return DeployResult{}, err
	}

	deploymentID := uuid.NewString()
	startTime := c.now()
	c.state.ActivateCanary(path, deploymentID, startTime)
	c.metrics.Reset()

	slog.Info("canary deployed",
		"model_path", path,
		"deployment_id", deploymentID,
		"canary_start_time", startTime.Format(time.RFC3339),
	)
	return DeployResult{
		ModelPath:       path,
		CanaryStartTime: startTime,
		DeploymentID:    deploymentID,
	}, nil
}

// RollbackCanary deactivates the canary and resets metrics. Returns
// ErrNoActiveCanary (reported, non-fatal) when nothing is deployed.
func (c *Controller) RollbackCanary() error {
	if err := c.state.RollbackCanary(); err != nil {
		return err
	}
	c.metrics.Reset()
	slog.Info("canary rolled back")
	return nil
}

// PromoteCanary swaps the canary into the stable slot and resets
// metrics. Fails with ErrNoActiveCanary or ErrAlertActive, leaving all
// state untouched.
func (c *Controller) PromoteCanary() (PromoteResult, error) {
	previous, current, err := c.state.PromoteCanary()
	if err != nil {
		slog.Warn("canary promote rejected", "error", err)
		return PromoteResult{}, err
	}
	c.metrics.Reset()

	result := PromoteResult{
		PreviousStableModel: filepath.Base(previous),
		NewStableModel:      filepath.Base(current),
	}
	slog.Info("canary promoted to stable",
		"previous_stable_model", result.PreviousStableModel,
		"new_stable_model", result.NewStableModel,
	)
	return result, nil
}

// ToggleSlowdown flips the canary slowdown simulation flag and returns
// the new value. Always succeeds.
func (c *Controller) ToggleSlowdown() bool {
	enabled := c.state.ToggleSlowdown()
	slog.Info("slowdown simulation toggled", "enabled", enabled)
	return enabled
}
