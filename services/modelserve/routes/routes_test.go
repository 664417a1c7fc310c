// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianServe/services/modelserve/canary"
	"github.com/AleutianAI/AleutianServe/services/modelserve/deployment"
	"github.com/AleutianAI/AleutianServe/services/modelserve/inference"
	"github.com/AleutianAI/AleutianServe/services/modelserve/model"
)

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

func testDeps(t *testing.T) Deps {
	t.Helper()

	stable := filepath.Join(t.TempDir(), "model_v1.json")
	payload := `{
		"schema_version": 1,
		"model_type": "logistic_regression",
		"feature_count": 2,
		"coefficients": [0.4, -0.6],
		"intercept": 0.1
	}`
	require.NoError(t, os.WriteFile(stable, []byte(payload), 0o644))

	state := deployment.NewState(stable)
	latencies := deployment.NewLatencyMetrics()
	store := model.NewStore()

	return Deps{
		State:      state,
		Controller: deployment.NewController(state, latencies, store),
		Router:     inference.NewRouter(state, latencies, model.NewResolver(store, state)),
		Checker:    canary.NewChecker(state, latencies),
	}
}

func TestSetupRoutes_RegistersAllEndpoints(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, testDeps(t))

	expected := []struct {
		method string
		path   string
	}{
		{"GET", "/"},
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"POST", "/predict"},
		{"POST", "/admin/deploy-canary"},
		{"POST", "/admin/rollback-canary"},
		{"POST", "/admin/promote-canary"},
		{"POST", "/admin/toggle-slowdown"},
		{"GET", "/admin/check-canary-health"},
	}

	routes := router.Routes()
	for _, want := range expected {
		found := false
		for _, r := range routes {
			if r.Method == want.method && r.Path == want.path {
				found = true
				break
			}
		}
		assert.True(t, found, "route %s %s not registered", want.method, want.path)
	}
	assert.Len(t, routes, len(expected))
}

func TestSetupRoutes_MetricsEndpointServes(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, testDeps(t))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines",
		"prometheus default collectors are exposed")
}

func TestSetupRoutes_HealthEndpointServes(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, testDeps(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
