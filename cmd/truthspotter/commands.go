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
)

const cliVersion = "v0.2.1"

// --- Global Command Variables ---
var (
	cfgFile string
	verbose bool

	rootCmd = &cobra.Command{
		Use:   "truthspotter",
		Short: "A cli to run and manage the TruthSpotter claim verification service",
		Long: `TruthSpotter verifies factual claims against live web evidence.

It classifies incoming queries, decomposes claims into checkable
assertions, gathers and scores supporting evidence, and produces an
adjudicated verdict with confidence and risk ratings.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	// --- Server ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the verifier HTTP server",
		RunE:  runServe, // Defined in cmd_serve.go
	}

	// --- Configuration ---
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage TruthSpotter configuration",
	}
	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE:  runConfigShow, // Defined in cmd_config.go
	}
	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file at ~/.truthspotter/config.yaml",
		RunE:  runConfigInit, // Defined in cmd_config.go
	}

	// --- Utilities ---
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("truthspotter " + cliVersion)
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.truthspotter/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	serveCmd.Flags().Int("port", 0, "HTTP server port (default 12310)")
	serveCmd.Flags().String("llm-provider", "", "completion backend: openai or local")
	serveCmd.Flags().String("weaviate-url", "", "Weaviate similarity store URL")
	serveCmd.Flags().String("otel-endpoint", "", "OpenTelemetry collector endpoint")
	serveCmd.Flags().Duration("verify-deadline", 0, "per-request verification deadline (default 120s)")
	serveCmd.Flags().String("gin-mode", "", "Gin framework mode: debug, release, or test")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("llm_provider", serveCmd.Flags().Lookup("llm-provider"))
	_ = viper.BindPFlag("weaviate_url", serveCmd.Flags().Lookup("weaviate-url"))
	_ = viper.BindPFlag("otel_endpoint", serveCmd.Flags().Lookup("otel-endpoint"))
	_ = viper.BindPFlag("verify_deadline", serveCmd.Flags().Lookup("verify-deadline"))
	_ = viper.BindPFlag("gin_mode", serveCmd.Flags().Lookup("gin-mode"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// initConfig reads the config file and TRUTHSPOTTER_* environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.truthspotter")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("TRUTHSPOTTER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}
