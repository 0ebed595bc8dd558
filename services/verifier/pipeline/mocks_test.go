// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/Mayuresh1004/TruthSpotter/services/llm"
	"github.com/Mayuresh1004/TruthSpotter/services/search"
	"github.com/Mayuresh1004/TruthSpotter/services/vectorstore"
)

// mockLLM routes prompts through a test-supplied responder and records
// every prompt it sees.
type mockLLM struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) (string, error)
}

func (m *mockLLM) Complete(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.respond == nil {
		return "", errors.New("mockLLM: no responder configured")
	}
	return m.respond(prompt)
}

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *mockLLM) seenPrompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

var _ llm.Client = (*mockLLM)(nil)

// mockSearch serves canned results per query and records queries.
type mockSearch struct {
	mu      sync.Mutex
	queries []string
	results map[string][]search.Result
	errs    map[string]error
}

func (m *mockSearch) Search(ctx context.Context, query string) ([]search.Result, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if err, ok := m.errs[query]; ok {
		return nil, err
	}
	return m.results[query], nil
}

func (m *mockSearch) seenQueries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.queries))
	copy(out, m.queries)
	return out
}

var _ search.Client = (*mockSearch)(nil)

// mockStore records persisted documents and serves canned neighbors.
type mockStore struct {
	mu       sync.Mutex
	added    [][]vectorstore.Document
	nearest  []vectorstore.StoredDocument
	addErr   error
	queryErr error
}

func (m *mockStore) AddDocuments(ctx context.Context, docs []vectorstore.Document) error {
	m.mu.Lock()
	m.added = append(m.added, docs)
	m.mu.Unlock()
	return m.addErr
}

func (m *mockStore) Nearest(ctx context.Context, queryText string, k int) ([]vectorstore.StoredDocument, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if len(m.nearest) > k {
		return m.nearest[:k], nil
	}
	return m.nearest, nil
}

func (m *mockStore) addedBatches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.added)
}

var _ vectorstore.Store = (*mockStore)(nil)
