// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// cliConfig mirrors the config file layout. Field names match the viper
// keys used by serviceConfig.
type cliConfig struct {
	Port                  int    `yaml:"port"`
	LLMProvider           string `yaml:"llm_provider"`
	WeaviateURL           string `yaml:"weaviate_url"`
	SerperAPIKey          string `yaml:"serper_api_key,omitempty"`
	SearchResultsPerQuery int    `yaml:"search_results_per_query"`
	OTelEndpoint          string `yaml:"otel_endpoint"`
	GinMode               string `yaml:"gin_mode"`
	VerifyDeadline        string `yaml:"verify_deadline"`
	PipelineStrategy      string `yaml:"pipeline_strategy"`
}

// defaultCLIConfig returns the documented defaults for a fresh install.
func defaultCLIConfig() cliConfig {
	return cliConfig{
		Port:                  12310,
		LLMProvider:           "openai",
		WeaviateURL:           "",
		SearchResultsPerQuery: 4,
		OTelEndpoint:          "truthspotter-otel-collector:4317",
		GinMode:               "release",
		VerifyDeadline:        "120s",
		PipelineStrategy:      "staged",
	}
}

// resolvedCLIConfig overlays viper's resolved values on the defaults.
func resolvedCLIConfig() cliConfig {
	cfg := defaultCLIConfig()
	if v := viper.GetInt("port"); v != 0 {
		cfg.Port = v
	}
	if v := viper.GetString("llm_provider"); v != "" {
		cfg.LLMProvider = v
	}
	if v := viper.GetString("weaviate_url"); v != "" {
		cfg.WeaviateURL = v
	}
	if v := viper.GetInt("search_results_per_query"); v != 0 {
		cfg.SearchResultsPerQuery = v
	}
	if v := viper.GetString("otel_endpoint"); v != "" {
		cfg.OTelEndpoint = v
	}
	if v := viper.GetString("gin_mode"); v != "" {
		cfg.GinMode = v
	}
	if v := viper.GetDuration("verify_deadline"); v != 0 {
		cfg.VerifyDeadline = v.String()
	}
	if v := viper.GetString("pipeline_strategy"); v != "" {
		cfg.PipelineStrategy = v
	}
	// Never echo the API key itself, only whether one is set.
	if viper.GetString("serper_api_key") != "" || os.Getenv("SERPER_API_KEY") != "" {
		cfg.SerperAPIKey = "(set)"
	}
	return cfg
}

// runConfigShow prints the resolved configuration as YAML.
func runConfigShow(cmd *cobra.Command, args []string) error {
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
	} else {
		fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
	}

	yamlData, err := yaml.Marshal(resolvedCLIConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	fmt.Println(string(yamlData))

	fmt.Println("Configuration hierarchy (highest to lowest priority):")
	fmt.Println("  1. CLI flags")
	fmt.Println("  2. Environment variables (TRUTHSPOTTER_*, SERPER_API_KEY, OPENAI_API_KEY)")
	fmt.Println("  3. Config file (~/.truthspotter/config.yaml)")
	fmt.Println("  4. Defaults")

	return nil
}

// runConfigInit writes a documented default config file.
func runConfigInit(cmd *cobra.Command, args []string) (err error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("error finding home directory: %w", err)
	}

	configDir := home + "/.truthspotter"
	configPath := configDir + "/config.yaml"

	if _, statErr := os.Stat(configPath); statErr == nil {
		return fmt.Errorf("config file already exists: %s\nUse 'truthspotter config show' to view it, or delete it first to recreate", configPath)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	f, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close config file: %w", closeErr)
		}
	}()

	yamlData, err := yaml.Marshal(defaultCLIConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	header := `# TruthSpotter Configuration File
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (TRUTHSPOTTER_*)
#   3. This config file
#   4. Built-in defaults

`
	footer := `
# API keys (recommended to use environment variables instead):
#   export SERPER_API_KEY=...
#   export OPENAI_API_KEY=sk-...
`
	if _, err := f.WriteString(header); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	if _, err := f.Write(yamlData); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	if _, err := f.WriteString(footer); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}

	fmt.Printf("Created default configuration: %s\n", configPath)
	fmt.Printf("\nTo view the configuration:\n  truthspotter config show\n")
	return nil
}
