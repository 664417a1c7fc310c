// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianServe/services/modelserve/datatypes"
	"github.com/AleutianAI/AleutianServe/services/modelserve/deployment"
)

// HandleStatus serves GET /, the read-only deployment snapshot.
func HandleStatus(state *deployment.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := state.Snapshot()
		c.JSON(http.StatusOK, datatypes.StatusResponse{
			Message:      "Churn Prediction API",
			StableModel:  snap.StablePath,
			CanaryModel:  snap.CanaryPath,
			CanaryActive: snap.CanaryActive,
			DeploymentID: snap.DeploymentID,
		})
	}
}

// HandleHealth serves GET /health, the process liveness probe.
func HandleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
