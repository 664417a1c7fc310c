// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package modelserve provides the churn prediction serving service with
// canary deployment support.
//
// This package contains the main service type that coordinates all
// components: the model store, deployment state, traffic router, latency
// metrics, health checker, and the HTTP API.
//
// # Usage
//
//	cfg := modelserve.Config{Port: 8000, StableModelPath: "models/model_v1.json"}
//	svc, err := modelserve.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package modelserve

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/AleutianServe/services/modelserve/canary"
	"github.com/AleutianAI/AleutianServe/services/modelserve/deployment"
	"github.com/AleutianAI/AleutianServe/services/modelserve/inference"
	"github.com/AleutianAI/AleutianServe/services/modelserve/model"
	"github.com/AleutianAI/AleutianServe/services/modelserve/observability"
	"github.com/AleutianAI/AleutianServe/services/modelserve/routes"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the model serving service.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and
// should only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	//
	// # Assumptions
	//
	//   - Caller will not modify the router.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds model serving configuration options.
//
// All fields are optional; New() applies defaults for zero values.
type Config struct {
	// Port is the HTTP server port. Default: 8000
	Port int

	// StableModelPath is the artifact serving baseline traffic at boot.
	// Default: "models/model_v1.json"
	StableModelPath string

	// MaxInFlight bounds concurrent predictions.
	// Default: inference.DefaultMaxInFlight
	MaxInFlight int

	// OTelEndpoint is the OpenTelemetry collector endpoint. If empty,
	// tracing is disabled.
	// Example: "aleutian-otel-collector:4317"
	OTelEndpoint string

	// EnableMetrics enables the Prometheus /metrics endpoint recorders.
	// Default: true
	EnableMetrics bool

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	// Default: uses GIN_MODE env var or "debug"
	GinMode string
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config        Config
	router        *gin.Engine
	state         *deployment.State
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a new serving Service with the given configuration.
//
// # Description
//
// New initializes all serving components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing when an endpoint is configured
//  3. Initializes Prometheus metrics
//  4. Wires the model store, deployment state, router, and health checker
//  5. Sets up HTTP routes
//
// The stable model is loaded lazily on first use, so a missing artifact
// fails the first prediction rather than startup.
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults.
//
// # Outputs
//
//   - Service: Ready-to-run serving service
//   - error: Non-nil if initialization fails
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	if s.config.OTelEndpoint != "" {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	var servingMetrics *observability.ServingMetrics
	if s.config.EnableMetrics {
		servingMetrics = observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics for model serving")
	}

	s.state = deployment.NewState(s.config.StableModelPath)
	latencies := deployment.NewLatencyMetrics()
	store := model.NewStore()
	resolver := model.NewResolver(store, s.state)

	deps := routes.Deps{
		State:      s.state,
		Controller: deployment.NewController(s.state, latencies, store),
		Router: inference.NewRouter(s.state, latencies, resolver,
			inference.WithMaxInFlight(s.config.MaxInFlight)),
		Checker: canary.NewChecker(s.state, latencies),
		Metrics: servingMetrics,
	}
	s.initRouter(deps)

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting model serving server",
		"port", s.config.Port,
		"stable_model", s.config.StableModelPath,
	)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.StableModelPath == "" {
		cfg.StableModelPath = "models/model_v1.json"
	}
	if cfg.MaxInFlight == 0 {
		cfg.MaxInFlight = inference.DefaultMaxInFlight
	}
	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// # Limitations
//
//   - Uses insecure gRPC connection (appropriate for internal networks)
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("modelserve-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter(deps routes.Deps) {
	s.router = gin.Default()
	if s.tracerCleanup != nil {
		s.router.Use(otelgin.Middleware("modelserve-service"))
	}

	routes.SetupRoutes(s.router, deps)
}

// cleanup releases resources on shutdown.
func (s *service) cleanup() {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}
