// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Mayuresh1004/TruthSpotter/services/verifier"
)

// serviceConfig builds a verifier.Config from the resolved viper settings.
//
// Zero values are left for verifier.New to default, so the service layer
// stays the single source of truth for fallback values.
func serviceConfig() verifier.Config {
	return verifier.Config{
		Port:                  viper.GetInt("port"),
		LLMProvider:           viper.GetString("llm_provider"),
		WeaviateURL:           viper.GetString("weaviate_url"),
		SerperAPIKey:          viper.GetString("serper_api_key"),
		SearchResultsPerQuery: viper.GetInt("search_results_per_query"),
		OTelEndpoint:          viper.GetString("otel_endpoint"),
		GinMode:               viper.GetString("gin_mode"),
		VerifyDeadline:        viper.GetDuration("verify_deadline"),
		PipelineStrategy:      viper.GetString("pipeline_strategy"),
	}
}

// runServe starts the verifier HTTP server and blocks until shutdown.
func runServe(cmd *cobra.Command, args []string) error {
	cfg := serviceConfig()

	slog.Info("Starting verifier service",
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
		"weaviate_url", cfg.WeaviateURL,
	)

	svc, err := verifier.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create verifier service: %w", err)
	}
	return svc.Run()
}
