// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Admin API types: canary deploy, rollback, promote, slowdown toggle,
// and the read-only status snapshot.
package datatypes

import "fmt"

// Admin operation result statuses. Precondition failures on rollback and
// promote are reported (status "error") rather than fatal, matching the
// transition contract: state is left untouched and the caller gets a cause.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// DeployCanaryRequest is the inbound payload for POST /admin/deploy-canary.
type DeployCanaryRequest struct {
	// ModelPath is the on-disk path of the artifact to deploy as canary.
	ModelPath string `json:"model_path" binding:"required" validate:"required"`
}

// Validate performs struct-tag validation on the request.
func (r *DeployCanaryRequest) Validate() error {
	if err := apiValidate.Struct(r); err != nil {
		return fmt.Errorf("invalid deploy request: %w", err)
	}
	return nil
}

// DeployCanaryResponse reports a successful canary deployment.
type DeployCanaryResponse struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	ModelPath       string `json:"model_path"`
	CanaryStartTime string `json:"canary_start_time"`
	DeploymentID    string `json:"deployment_id"`
}

// OperationResponse is the generic admin operation result used by
// rollback and by reported (non-fatal) precondition failures.
type OperationResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PromoteCanaryResponse reports a promotion, including the stable-path
// swap for operator visibility.
type PromoteCanaryResponse struct {
	Status              string `json:"status"`
	Message             string `json:"message"`
	PreviousStableModel string `json:"previous_stable_model,omitempty"`
	NewStableModel      string `json:"new_stable_model,omitempty"`
}

// ToggleSlowdownResponse reports the updated slowdown flag.
type ToggleSlowdownResponse struct {
	SimulateSlowdown bool   `json:"simulate_slowdown"`
	Message          string `json:"message"`
}

// StatusResponse is the read-only deployment snapshot served at GET /.
type StatusResponse struct {
	Message      string `json:"message"`
	StableModel  string `json:"stable_model"`
	CanaryModel  string `json:"canary_model,omitempty"`
	CanaryActive bool   `json:"canary_active"`
	DeploymentID string `json:"deployment_id,omitempty"`
}
