// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides type definitions for the model serving API.
//
// This file contains the prediction request/response types and the model
// variant enum shared by the router, metrics store, and handlers.
package datatypes

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// ENUMS
// =============================================================================

// ModelVariant identifies which model slot served a request.
//
// Description:
//
//	A deployment has exactly two slots: the stable model serving baseline
//	traffic and an optional canary receiving a deterministic slice of
//	traffic. The variant is used as the metrics-store key and echoed in
//	prediction responses so callers can correlate latency with the slot.
//
// Valid Values:
//   - "stable": The baseline model.
//   - "canary": The candidate model under live comparison.
type ModelVariant string

const (
	VariantStable ModelVariant = "stable"
	VariantCanary ModelVariant = "canary"
)

// IsValid checks if the ModelVariant is a defined value.
func (v ModelVariant) IsValid() bool {
	return v == VariantStable || v == VariantCanary
}

// String returns the wire representation of the variant.
func (v ModelVariant) String() string {
	return string(v)
}

// =============================================================================
// Validation
// =============================================================================

// apiValidate is the validator instance for serving datatypes.
var apiValidate *validator.Validate

func init() {
	apiValidate = validator.New()
}

// =============================================================================
// Prediction API
// =============================================================================

// PredictionRequest is the inbound payload for POST /predict.
//
// The binding layer rejects a missing or empty features array; semantic
// checks (finite values, arity against the resolved model) happen in the
// router so that the error taxonomy stays in one place.
type PredictionRequest struct {
	// Features is the raw feature vector for a single observation.
	Features []float64 `json:"features" binding:"required,min=1" validate:"required,min=1"`
}

// Validate performs struct-tag validation on the request.
//
// Outputs:
//   - error: Non-nil with a field-level description if validation fails.
func (r *PredictionRequest) Validate() error {
	if err := apiValidate.Struct(r); err != nil {
		return fmt.Errorf("invalid prediction request: %w", err)
	}
	return nil
}

// PredictionResponse is the result of a routed prediction.
type PredictionResponse struct {
	// ChurnProbability is the class-1 probability in [0,1].
	ChurnProbability float64 `json:"churn_probability"`

	// ModelUsed reports which variant served the request.
	ModelUsed ModelVariant `json:"model_used"`

	// LatencyMs is the wall-clock latency of variant resolution through
	// prediction, in milliseconds.
	LatencyMs float64 `json:"latency_ms"`

	// RequestID embeds the millisecond-resolution routing timestamp,
	// e.g. "req_1756200000123".
	RequestID string `json:"request_id"`
}
