// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package vectorstore provides the similarity-store collaborator backing
// evidence research.
//
// The store is append-only from the pipeline's perspective: research runs
// persist the documents they fetch and later runs retrieve nearest
// neighbors, but nothing in the core ever deletes. Storage failures are
// logged by callers and treated as non-fatal.
package vectorstore

import "context"

// Metadata carries the source attribution for one stored document.
type Metadata struct {
	Title       string `json:"title"`
	SourceName  string `json:"source_name"`
	URL         string `json:"url,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
	RetrievedAt int64  `json:"retrieved_at"`
}

// Document is one unit of content to persist.
type Document struct {
	Content  string
	Metadata Metadata
}

// StoredDocument is a retrieval hit. Certainty is the store's normalized
// similarity in [0,1], highest first.
type StoredDocument struct {
	Content   string
	Metadata  Metadata
	Certainty float64
}

// Store defines the similarity-store contract used by the research stage.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use by simultaneous
// verification runs.
type Store interface {
	// AddDocuments persists documents in one batch. Partially failed
	// batches return a non-nil error after storing what succeeded.
	AddDocuments(ctx context.Context, docs []Document) error

	// Nearest returns up to k documents closest to queryText by semantic
	// similarity, best match first.
	Nearest(ctx context.Context, queryText string, k int) ([]StoredDocument, error)
}

// noopStore discards writes and retrieves nothing. Used when no similarity
// store is configured so the pipeline runs without cross-run memory.
type noopStore struct{}

// NewNoopStore returns a Store that stores nothing.
func NewNoopStore() Store {
	return noopStore{}
}

func (noopStore) AddDocuments(ctx context.Context, docs []Document) error {
	return nil
}

func (noopStore) Nearest(ctx context.Context, queryText string, k int) ([]StoredDocument, error) {
	return nil, nil
}
