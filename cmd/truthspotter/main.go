// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command truthspotter is the CLI for the TruthSpotter claim verification
// service.
//
// It starts the verifier HTTP server and manages local configuration.
//
// # Configuration
//
// Settings are resolved in priority order: CLI flags, then TRUTHSPOTTER_*
// environment variables, then ~/.truthspotter/config.yaml, then built-in
// defaults.
//
// # Usage
//
//	# Start the HTTP server
//	truthspotter serve
//
//	# Inspect the resolved configuration
//	truthspotter config show
package main

import (
	"log"
	"log/slog"
	"os"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
