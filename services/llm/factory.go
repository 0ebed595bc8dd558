// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"fmt"
	"log/slog"
)

// NewClient constructs the backend named by provider ("openai" or "local").
// An empty provider defaults to openai.
func NewClient(provider string) (Client, error) {
	switch provider {
	case "", "openai":
		return NewOpenAIClient()
	case "local":
		return NewLocalLlamaCppClient()
	default:
		slog.Error("Unknown LLM provider requested", "provider", provider)
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}
