// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/AleutianAI/AleutianServe/pkg/logging"
	"github.com/AleutianAI/AleutianServe/services/modelserve"
)

func main() {
	logger := logging.New(logging.Config{
		Service: "modelserve",
		JSON:    true,
		LogDir:  os.Getenv("MODELSERVE_LOG_DIR"),
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	cfg := modelserve.Config{
		Port:            envInt("MODELSERVE_PORT", 8000),
		StableModelPath: os.Getenv("MODELSERVE_STABLE_MODEL"),
		MaxInFlight:     envInt("MODELSERVE_MAX_IN_FLIGHT", 0),
		OTelEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		GinMode:         os.Getenv("GIN_MODE"),
		EnableMetrics:   true,
	}

	svc, err := modelserve.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize model serving service: %v", err)
	}

	if err := svc.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// envInt reads an integer environment variable, falling back on empty or
// malformed values.
func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("ignoring malformed integer env var", "key", key, "value", raw)
		return fallback
	}
	return v
}
