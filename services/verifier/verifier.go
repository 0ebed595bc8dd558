// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package verifier provides the claim-verification service for TruthSpotter.
//
// This package contains the main Verifier service type that coordinates all
// components: HTTP routing, the language-model client, web search, the
// Weaviate similarity store, and observability infrastructure.
//
// # Usage
//
//	cfg := verifier.Config{Port: 12310}
//	svc, err := verifier.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Mayuresh1004/TruthSpotter/services/llm"
	"github.com/Mayuresh1004/TruthSpotter/services/search"
	"github.com/Mayuresh1004/TruthSpotter/services/vectorstore"
	"github.com/Mayuresh1004/TruthSpotter/services/verifier/handlers"
	"github.com/Mayuresh1004/TruthSpotter/services/verifier/observability"
	"github.com/Mayuresh1004/TruthSpotter/services/verifier/pipeline"
	"github.com/Mayuresh1004/TruthSpotter/services/verifier/routes"
	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the verifier service lifecycle.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and should
// only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing. Callers must
	// not modify the router.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds verifier service configuration. Zero values use defaults.
type Config struct {
	// Port is the HTTP server port. Default: 12310
	Port int

	// LLMProvider selects the completion backend.
	// Valid values: "openai", "local". Default: "openai"
	LLMProvider string

	// WeaviateURL is the Weaviate similarity store URL.
	// If empty, evidence persistence and retrieval degrade to no-ops.
	// Example: "http://localhost:8080"
	WeaviateURL string

	// SerperAPIKey authenticates against the serper.dev search API.
	// Falls back to the SERPER_API_KEY environment variable when empty.
	SerperAPIKey string

	// SearchResultsPerQuery caps web results per search query. Default 4.
	SearchResultsPerQuery int

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "truthspotter-otel-collector:4317"
	OTelEndpoint string

	// DisableMetrics turns off Prometheus metric collection and the
	// /metrics endpoint. Metrics are on by default.
	DisableMetrics bool

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	GinMode string

	// VerifyDeadline bounds one verification run. Default 120s.
	VerifyDeadline time.Duration

	// PipelineStrategy names the execution strategy passed through to the
	// pipeline factory. Default "staged".
	PipelineStrategy string
}

func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "openai"
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "truthspotter-otel-collector:4317"
	}
	if cfg.VerifyDeadline == 0 {
		cfg.VerifyDeadline = 120 * time.Second
	}
	if cfg.SerperAPIKey == "" {
		cfg.SerperAPIKey = os.Getenv("SERPER_API_KEY")
	}
	return cfg
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// All fields are read-only after New() returns.
type service struct {
	config         Config
	router         *gin.Engine
	llmClient      llm.Client
	searchClient   search.Client
	store          vectorstore.Store
	weaviateClient *weaviate.Client
	metrics        *observability.Metrics
	tracerCleanup  func(context.Context)
}

// New creates a verifier Service with the given configuration.
//
// # Description
//
// New initializes all service components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing
//  3. Initializes Prometheus metrics
//  4. Creates the LLM client for the configured provider
//  5. Creates the Serper search client
//  6. Creates the Weaviate store if a URL is configured
//  7. Sets up HTTP routes
//
// # Outputs
//
//   - Service: Ready-to-run verifier service.
//   - error: Non-nil if initialization fails.
func New(cfg Config) (Service, error) {
	s := &service{config: applyConfigDefaults(cfg)}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	if !s.config.DisableMetrics {
		s.metrics = observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics")
	}

	if err := s.initLLMClient(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	if err := s.initSearchClient(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize search client: %w", err)
	}

	if err := s.initWeaviate(); err != nil {
		slog.Warn("Weaviate initialization failed, evidence memory disabled", "error", err)
		// Not fatal; the pipeline runs without cross-run evidence memory.
	}
	if s.store == nil {
		s.store = vectorstore.NewNoopStore()
	}

	s.initRouter()
	return s, nil
}

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting verifier server", "port", s.config.Port)
	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// initTracer sets up the OTLP trace exporter for the configured collector.
// Uses an insecure gRPC connection, appropriate for internal networks.
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
		resource.WithAttributes(semconv.ServiceNameKey.String("verifier-service")))
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

// initLLMClient creates the completion client for the configured provider.
func (s *service) initLLMClient() error {
	client, err := llm.NewClient(s.config.LLMProvider)
	if err != nil {
		return err
	}
	s.llmClient = client
	slog.Info("Using LLM backend", "provider", s.config.LLMProvider)
	return nil
}

// initSearchClient creates the Serper web-search client.
func (s *service) initSearchClient() error {
	client, err := search.NewSerperClient(search.SerperConfig{
		APIKey:     s.config.SerperAPIKey,
		MaxResults: s.config.SearchResultsPerQuery,
	})
	if err != nil {
		return err
	}
	s.searchClient = client
	return nil
}

// initWeaviate creates the Weaviate client and evidence store when a URL
// is configured. Leaves the store nil otherwise.
func (s *service) initWeaviate() error {
	weaviateURL := strings.Trim(s.config.WeaviateURL, "\"' ")
	if weaviateURL == "" || !strings.Contains(weaviateURL, "http") {
		slog.Info("Weaviate URL not configured, running without evidence memory")
		return nil
	}

	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return fmt.Errorf("invalid Weaviate URL: %s", weaviateURL)
	}

	s.weaviateClient, err = weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
	if err != nil {
		return fmt.Errorf("failed to create Weaviate client: %w", err)
	}

	if err := vectorstore.EnsureSchema(context.Background(), s.weaviateClient); err != nil {
		return fmt.Errorf("failed to ensure evidence schema: %w", err)
	}

	s.store = vectorstore.NewWeaviateStore(s.weaviateClient)
	slog.Info("Weaviate evidence store initialized", "url", weaviateURL)
	return nil
}

// initRouter sets up the Gin router with middleware and routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("verifier-service"))

	routes.SetupRoutes(s.router, s.verifierFactory(), s.metrics)
}

// verifierFactory builds a per-request pipeline Verifier. Each request
// gets a fresh instance so the single-run guard never couples requests.
func (s *service) verifierFactory() handlers.VerifierFactory {
	return func(observer pipeline.ProgressFunc) (pipeline.Verifier, error) {
		return pipeline.NewVerifier(pipeline.Deps{
			LLM:     s.llmClient,
			Search:  s.searchClient,
			Store:   s.store,
			Metrics: s.metrics,
		}, pipeline.Config{
			Strategy: s.config.PipelineStrategy,
			Deadline: s.config.VerifyDeadline,
		}, observer)
	}
}

// cleanup releases resources held by the service.
func (s *service) cleanup() {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
