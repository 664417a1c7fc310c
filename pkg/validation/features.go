// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for inference inputs.
//
// This package contains validators for user-provided feature vectors before
// they reach a model. Wire-level checks (missing fields, wrong JSON types)
// are handled by the HTTP binding layer; the validators here cover the
// semantic checks the binder cannot express: arity against the model and
// numeric sanity (no NaN or Inf values, which would poison latency metrics
// and model output alike).
package validation

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidFeatures is the sentinel for any malformed feature vector.
// Callers match it with errors.Is to distinguish client errors from
// model-load or internal failures.
var ErrInvalidFeatures = errors.New("invalid feature vector")

// ValidateFeatures checks that a feature vector is non-empty and contains
// only finite values.
//
// Returns an error wrapping ErrInvalidFeatures if the vector is invalid.
//
// Example:
//
//	if err := validation.ValidateFeatures(req.Features); err != nil {
//	    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
//	    return
//	}
func ValidateFeatures(features []float64) error {
	if len(features) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidFeatures)
	}
	for i, v := range features {
		if math.IsNaN(v) {
			return fmt.Errorf("%w: feature %d is NaN", ErrInvalidFeatures, i)
		}
		if math.IsInf(v, 0) {
			return fmt.Errorf("%w: feature %d is infinite", ErrInvalidFeatures, i)
		}
	}
	return nil
}

// ValidateFeatureCount checks a feature vector against the arity a model
// expects. A want of zero disables the check (model with unknown arity).
func ValidateFeatureCount(features []float64, want int) error {
	if want > 0 && len(features) != want {
		return fmt.Errorf("%w: got %d features, model expects %d",
			ErrInvalidFeatures, len(features), want)
	}
	return nil
}
