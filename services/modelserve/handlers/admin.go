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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianServe/services/modelserve/canary"
	"github.com/AleutianAI/AleutianServe/services/modelserve/datatypes"
	"github.com/AleutianAI/AleutianServe/services/modelserve/deployment"
	"github.com/AleutianAI/AleutianServe/services/modelserve/model"
	"github.com/AleutianAI/AleutianServe/services/modelserve/observability"
)

// HandleDeployCanary serves POST /admin/deploy-canary.
//
// Description:
//
//	Deploys a candidate artifact into the canary slot. The artifact is
//	validated before any state mutation: a missing file is 404, a file
//	that exists but cannot be deserialized is 400. Success clears the
//	alert flag and resets both latency series.
func HandleDeployCanary(ctrl *deployment.Controller, metrics *observability.ServingMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.DeployCanaryRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := ctrl.DeployCanary(req.ModelPath)
		if err != nil {
			metrics.RecordDeploymentOp(observability.OpDeploy, false)
			switch {
			case errors.Is(err, model.ErrModelNotFound):
				c.JSON(http.StatusNotFound, gin.H{
					"error": fmt.Sprintf("Model file not found: %s", req.ModelPath),
				})
			case errors.Is(err, model.ErrModelLoad):
				c.JSON(http.StatusBadRequest, gin.H{
					"error": fmt.Sprintf("Failed to load model: %v", err),
				})
			default:
				slog.Error("canary deploy failed", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Deployment failed"})
			}
			return
		}

		metrics.RecordDeploymentOp(observability.OpDeploy, true)
		metrics.SetCanaryActive(true)
		metrics.SetAlertActive(false)
		c.JSON(http.StatusOK, datatypes.DeployCanaryResponse{
			Status:          datatypes.StatusSuccess,
			Message:         "Canary model deployed successfully",
			ModelPath:       result.ModelPath,
			CanaryStartTime: result.CanaryStartTime.Format(time.RFC3339),
			DeploymentID:    result.DeploymentID,
		})
	}
}

// HandleRollbackCanary serves POST /admin/rollback-canary.
//
// Rolling back with no active canary is a reported no-op: HTTP 200 with
// status "error", never a transport failure.
func HandleRollbackCanary(ctrl *deployment.Controller, metrics *observability.ServingMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := ctrl.RollbackCanary(); err != nil {
			metrics.RecordDeploymentOp(observability.OpRollback, false)
			c.JSON(http.StatusOK, datatypes.OperationResponse{
				Status:  datatypes.StatusError,
				Message: "No active canary to rollback",
			})
			return
		}

		metrics.RecordDeploymentOp(observability.OpRollback, true)
		metrics.SetCanaryActive(false)
		metrics.SetAlertActive(false)
		c.JSON(http.StatusOK, datatypes.OperationResponse{
			Status:  datatypes.StatusSuccess,
			Message: "Canary rolled back successfully",
		})
	}
}

// HandlePromoteCanary serves POST /admin/promote-canary.
//
// Promotion is gated on the alert flag. Both precondition failures are
// reported with HTTP 200 and status "error", leaving state untouched.
func HandlePromoteCanary(ctrl *deployment.Controller, metrics *observability.ServingMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := ctrl.PromoteCanary()
		if err != nil {
			metrics.RecordDeploymentOp(observability.OpPromote, false)
			message := "No active canary to promote"
			if errors.Is(err, deployment.ErrAlertActive) {
				message = "Cannot promote canary with active alerts"
			}
			c.JSON(http.StatusOK, datatypes.PromoteCanaryResponse{
				Status:  datatypes.StatusError,
				Message: message,
			})
			return
		}

		metrics.RecordDeploymentOp(observability.OpPromote, true)
		metrics.SetCanaryActive(false)
		metrics.SetAlertActive(false)
		c.JSON(http.StatusOK, datatypes.PromoteCanaryResponse{
			Status:              datatypes.StatusSuccess,
			Message:             "Canary promoted to stable successfully",
			PreviousStableModel: result.PreviousStableModel,
			NewStableModel:      result.NewStableModel,
		})
	}
}

// HandleToggleSlowdown serves POST /admin/toggle-slowdown.
func HandleToggleSlowdown(ctrl *deployment.Controller, metrics *observability.ServingMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		enabled := ctrl.ToggleSlowdown()
		metrics.RecordDeploymentOp(observability.OpToggleSlowdown, true)

		message := "Slowdown simulation disabled"
		if enabled {
			message = "Slowdown simulation enabled"
		}
		c.JSON(http.StatusOK, datatypes.ToggleSlowdownResponse{
			SimulateSlowdown: enabled,
			Message:          message,
		})
	}
}

// HandleCheckCanaryHealth serves GET /admin/check-canary-health.
//
// Description:
//
//	Runs one health evaluation and returns the report. The checker has
//	already written the alert flag into the deployment state by the time
//	the response is serialized. A statistical failure (zero-variance
//	series) is the only 500 path.
func HandleCheckCanaryHealth(checker *canary.Checker, metrics *observability.ServingMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := checker.Check()
		if err != nil {
			slog.Error("canary health check failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Statistical analysis failed"})
			return
		}

		metrics.RecordHealthCheck(healthOutcome(report))
		metrics.SetAlertActive(report.AlertTriggered)
		c.JSON(http.StatusOK, report)
	}
}

// healthOutcome maps a report onto a metrics label.
func healthOutcome(report *canary.Report) observability.HealthOutcome {
	switch {
	case report.AlertTriggered:
		return observability.OutcomeAlert
	case report.PValue != nil:
		return observability.OutcomeHealthy
	case report.StableSampleCount != nil:
		return observability.OutcomeInsufficientData
	default:
		return observability.OutcomeNoCanary
	}
}
