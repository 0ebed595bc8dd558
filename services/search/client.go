// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package search provides the web-search collaborator used during evidence
// research.
//
// The pipeline treats search as best-effort: a failed query yields an empty
// result set at the call site, never an aborted run. Implementations must be
// safe for concurrent use; the researcher issues its queries in parallel.
package search

import (
	"context"
	"fmt"
)

// Result is one search hit in collaborator-native relevance order. Date and
// Source are free-text as returned by the provider and may be empty.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
	Date    string `json:"date,omitempty"`
	Source  string `json:"source,omitempty"`
}

// Client defines the contract for a web-search backend.
type Client interface {
	// Search runs one query and returns up to the backend's configured
	// result cap, in the provider's relevance order.
	Search(ctx context.Context, query string) ([]Result, error)
}

// SearchError wraps provider failures with the HTTP status when one exists.
type SearchError struct {
	Query      string
	StatusCode int
	Message    string
}

// Error implements the error interface for SearchError.
func (e *SearchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("search %q failed (status %d): %s", e.Query, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("search %q failed: %s", e.Query, e.Message)
}

// IsSearchError checks if an error is a *SearchError.
func IsSearchError(err error) bool {
	_, ok := err.(*SearchError)
	return ok
}
