// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command verifier starts the TruthSpotter verifier HTTP server.
//
// This is the main entry point for the containerized verifier service.
// It reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - VERIFIER_PORT: HTTP server port (default: 12310)
//   - LLM_PROVIDER: completion backend - openai, local (default: openai)
//   - WEAVIATE_SERVICE_URL: Weaviate similarity store URL (optional)
//   - SERPER_API_KEY: serper.dev search API key
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: truthspotter-otel-collector:4317)
//
// # Usage
//
//	# Build
//	go build -o verifier ./cmd/verifier
//
//	# Run
//	./verifier
//
//	# Or via container
//	podman-compose up verifier
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/Mayuresh1004/TruthSpotter/services/verifier"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Build configuration from environment variables
	cfg := verifier.Config{
		Port:         getEnvInt("VERIFIER_PORT", 12310),
		LLMProvider:  getEnvString("LLM_PROVIDER", "openai"),
		WeaviateURL:  os.Getenv("WEAVIATE_SERVICE_URL"),
		SerperAPIKey: os.Getenv("SERPER_API_KEY"),
		OTelEndpoint: getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "truthspotter-otel-collector:4317"),
		GinMode:      os.Getenv("GIN_MODE"),
	}

	slog.Info("Starting verifier",
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
		"weaviate_url", cfg.WeaviateURL,
	)

	svc, err := verifier.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create verifier: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Verifier error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable parsed as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
