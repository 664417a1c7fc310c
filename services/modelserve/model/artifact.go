// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package model

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/AleutianAI/AleutianServe/pkg/validation"
)

// ArtifactSchemaVersion is the only schema this build can decode.
const ArtifactSchemaVersion = 1

// ModelTypeLogisticRegression is the model type emitted by the offline
// training pipeline (and by cmd/modelgen for dev fixtures).
const ModelTypeLogisticRegression = "logistic_regression"

// Artifact is the on-disk representation of a trained binary classifier.
//
// Description:
//
//	The offline training collaborator serializes fitted models to a flat
//	JSON document. The serving side treats the contents as opaque beyond
//	what it needs to evaluate a class-1 probability. Unknown fields are
//	ignored so training can add metadata without breaking serving.
//
// Example document:
//
//	{
//	  "schema_version": 1,
//	  "model_type": "logistic_regression",
//	  "feature_count": 4,
//	  "coefficients": [0.8, -1.2, 0.05, 2.4],
//	  "intercept": -0.3
//	}
type Artifact struct {
	SchemaVersion int       `json:"schema_version"`
	ModelType     string    `json:"model_type"`
	FeatureCount  int       `json:"feature_count"`
	Coefficients  []float64 `json:"coefficients"`
	Intercept     float64   `json:"intercept"`
}

// Predictor is the opaque model capability the rest of the system sees.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; predictions carry no
// mutable state.
type Predictor interface {
	// PredictProba returns the probability mass assigned to the positive
	// (churn) class for a single feature vector. The result is in [0,1].
	// A vector of the wrong arity yields an error wrapping
	// validation.ErrInvalidFeatures.
	PredictProba(features []float64) (float64, error)

	// FeatureCount reports the arity the model was trained with.
	FeatureCount() int
}

// DecodeArtifact reads and validates an artifact document, returning the
// Predictor it describes.
//
// Outputs:
//   - Predictor: The loaded model. Nil on error.
//   - error: Wraps ErrModelLoad on any decode or validation failure.
func DecodeArtifact(r io.Reader) (Predictor, error) {
	var a Artifact
	dec := json.NewDecoder(r)
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: decode artifact: %v", ErrModelLoad, err)
	}

	if a.SchemaVersion != ArtifactSchemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d",
			ErrModelLoad, a.SchemaVersion)
	}
	if a.ModelType != ModelTypeLogisticRegression {
		return nil, fmt.Errorf("%w: unsupported model type %q",
			ErrModelLoad, a.ModelType)
	}
	if len(a.Coefficients) == 0 {
		return nil, fmt.Errorf("%w: artifact has no coefficients", ErrModelLoad)
	}
	if a.FeatureCount != 0 && a.FeatureCount != len(a.Coefficients) {
		return nil, fmt.Errorf("%w: feature_count %d does not match %d coefficients",
			ErrModelLoad, a.FeatureCount, len(a.Coefficients))
	}
	for i, c := range a.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("%w: coefficient %d is not finite", ErrModelLoad, i)
		}
	}

	return &logisticModel{
		coefficients: a.Coefficients,
		intercept:    a.Intercept,
	}, nil
}

// logisticModel evaluates a fitted logistic regression.
type logisticModel struct {
	coefficients []float64
	intercept    float64
}

// PredictProba computes sigmoid(intercept + w . x).
func (m *logisticModel) PredictProba(features []float64) (float64, error) {
	if err := validation.ValidateFeatures(features); err != nil {
		return 0, err
	}
	if err := validation.ValidateFeatureCount(features, len(m.coefficients)); err != nil {
		return 0, err
	}

	z := m.intercept
	for i, w := range m.coefficients {
		z += w * features[i]
	}
	return 1.0 / (1.0 + math.Exp(-z)), nil
}

// FeatureCount reports the trained arity.
func (m *logisticModel) FeatureCount() int {
	return len(m.coefficients)
}
