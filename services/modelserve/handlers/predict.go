// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers provides gin HTTP handlers for the model serving API.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianServe/pkg/validation"
	"github.com/AleutianAI/AleutianServe/services/modelserve/datatypes"
	"github.com/AleutianAI/AleutianServe/services/modelserve/inference"
	"github.com/AleutianAI/AleutianServe/services/modelserve/observability"
)

// HandlePredict serves POST /predict.
//
// Description:
//
//	Binds the feature vector, routes it through the variant router, and
//	returns the scored response. Malformed or semantically invalid
//	features are 400; a model that cannot be loaded at serving time is
//	500 since the serving plane is then degraded.
func HandlePredict(router *inference.Router, metrics *observability.ServingMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.PredictionRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		resp, err := router.Predict(c.Request.Context(), req.Features)
		if err != nil {
			if errors.Is(err, validation.ErrInvalidFeatures) {
				metrics.RecordPrediction(datatypes.VariantStable.String(), false, 0)
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			slog.Error("prediction failed", "error", err)
			metrics.RecordPrediction(datatypes.VariantStable.String(), false, 0)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Prediction failed"})
			return
		}

		metrics.RecordPrediction(resp.ModelUsed.String(), true, resp.LatencyMs/1000)
		c.JSON(http.StatusOK, resp)
	}
}
