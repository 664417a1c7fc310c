// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AleutianServe/services/modelserve/canary"
	"github.com/AleutianAI/AleutianServe/services/modelserve/deployment"
	"github.com/AleutianAI/AleutianServe/services/modelserve/handlers"
	"github.com/AleutianAI/AleutianServe/services/modelserve/inference"
	"github.com/AleutianAI/AleutianServe/services/modelserve/observability"
)

// Deps carries the shared components the route handlers close over.
type Deps struct {
	State      *deployment.State
	Controller *deployment.Controller
	Router     *inference.Router
	Checker    *canary.Checker
	Metrics    *observability.ServingMetrics
}

// SetupRoutes registers the serving and admin API on the engine.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/", handlers.HandleStatus(deps.State))
	router.GET("/health", handlers.HandleHealth())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/predict", handlers.HandlePredict(deps.Router, deps.Metrics))

	admin := router.Group("/admin")
	{
		admin.POST("/deploy-canary", handlers.HandleDeployCanary(deps.Controller, deps.Metrics))
		admin.POST("/rollback-canary", handlers.HandleRollbackCanary(deps.Controller, deps.Metrics))
		admin.POST("/promote-canary", handlers.HandlePromoteCanary(deps.Controller, deps.Metrics))
		admin.POST("/toggle-slowdown", handlers.HandleToggleSlowdown(deps.Controller, deps.Metrics))
		admin.GET("/check-canary-health", handlers.HandleCheckCanaryHealth(deps.Checker, deps.Metrics))
	}
}
