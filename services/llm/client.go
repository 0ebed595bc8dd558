// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides language-model completion clients.
//
// Every verification stage that needs language understanding goes through
// the Client interface. Backends are selected at startup; the pipeline never
// knows which one it is talking to. All implementations must be safe for
// concurrent use by simultaneous verification runs.
package llm

import "context"

// GenerationParams tunes a single completion call. Nil fields use the
// backend's defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Client defines the standard interface for any LLM backend.
type Client interface {
	// Complete generates a completion for the prompt. Callers that need
	// structured output must say so in the prompt ("Respond with ONLY valid
	// JSON") and run the response through the jsonextract recovery chain;
	// backends return the raw model text untouched.
	Complete(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Float32Ptr is a convenience for building GenerationParams literals.
func Float32Ptr(v float32) *float32 { return &v }

// IntPtr is a convenience for building GenerationParams literals.
func IntPtr(v int) *int { return &v }
