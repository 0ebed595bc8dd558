// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Mayuresh1004/TruthSpotter/services/search"
	"github.com/Mayuresh1004/TruthSpotter/services/vectorstore"
	"github.com/Mayuresh1004/TruthSpotter/services/verifier/datatypes"
	"golang.org/x/sync/errgroup"
)

const (
	maxResearchQueries = 3
	broadKeywordCount  = 6
)

// Researcher gathers raw evidence for a claim from web search and the
// similarity store.
//
// # Description
//
// Two to three search queries (narrow, broad, fact-check angle) fan out
// concurrently. The fan-out settles all branches: a failed branch logs and
// contributes nothing, it never cancels its siblings. Fresh search results
// are persisted to the similarity store best-effort, then the store is
// queried for semantic neighbors of the claim so past runs enrich the
// pool. Research succeeding with zero candidates is a valid outcome.
//
// # Thread Safety
//
// Safe for concurrent use.
type Researcher struct {
	search   search.Client
	store    vectorstore.Store
	nearestK int
	now      func() time.Time
}

// NewResearcher creates a Researcher. Panics if either collaborator is nil.
func NewResearcher(searchClient search.Client, store vectorstore.Store, nearestK int) *Researcher {
	if searchClient == nil {
		panic("pipeline: NewResearcher requires a non-nil search client")
	}
	if store == nil {
		panic("pipeline: NewResearcher requires a non-nil store")
	}
	if nearestK <= 0 {
		nearestK = 20
	}
	return &Researcher{
		search:   searchClient,
		store:    store,
		nearestK: nearestK,
		now:      time.Now,
	}
}

// Research returns the raw candidate evidence pool for the claim together
// with the executed search queries. It never returns an error.
func (r *Researcher) Research(ctx context.Context, claim string, analysis *datatypes.ClaimAnalysis) ([]datatypes.EvidenceDocument, []string) {
	ctx, span := tracer.Start(ctx, "Researcher.Research")
	defer span.End()

	queries := buildQueries(claim, analysis)
	perQuery := make([][]search.Result, len(queries))

	g := new(errgroup.Group)
	for i, q := range queries {
		g.Go(func() error {
			results, err := r.search.Search(ctx, q)
			if err != nil {
				slog.Warn("evidence search branch failed", "query", q, "error", err)
				return nil
			}
			perQuery[i] = results
			return nil
		})
	}
	// Branches only ever return nil; Wait is a join point.
	_ = g.Wait()

	var pool []datatypes.EvidenceDocument
	for _, results := range perQuery {
		for _, res := range results {
			pool = append(pool, datatypes.EvidenceDocument{
				Title:       res.Title,
				Snippet:     res.Snippet,
				SourceName:  res.Source,
				URL:         res.Link,
				PublishedAt: res.Date,
			})
		}
	}

	r.persist(ctx, pool)
	pool = append(pool, r.neighbors(ctx, claim)...)
	return pool, queries
}

// persist writes fresh search results to the similarity store. Failures
// are logged and swallowed; persistence never blocks the run.
func (r *Researcher) persist(ctx context.Context, docs []datatypes.EvidenceDocument) {
	if len(docs) == 0 {
		return
	}
	stored := make([]vectorstore.Document, 0, len(docs))
	retrieved := r.now().Unix()
	for _, doc := range docs {
		stored = append(stored, vectorstore.Document{
			Content: doc.Snippet,
			Metadata: vectorstore.Metadata{
				Title:       doc.Title,
				SourceName:  doc.SourceName,
				URL:         doc.URL,
				PublishedAt: doc.PublishedAt,
				RetrievedAt: retrieved,
			},
		})
	}
	if err := r.store.AddDocuments(ctx, stored); err != nil {
		slog.Warn("persisting evidence to similarity store failed", "count", len(stored), "error", err)
	}
}

// neighbors retrieves semantic neighbors of the claim from the store.
func (r *Researcher) neighbors(ctx context.Context, claim string) []datatypes.EvidenceDocument {
	hits, err := r.store.Nearest(ctx, claim, r.nearestK)
	if err != nil {
		slog.Warn("similarity store retrieval failed", "error", err)
		return nil
	}
	docs := make([]datatypes.EvidenceDocument, 0, len(hits))
	for _, hit := range hits {
		docs = append(docs, datatypes.EvidenceDocument{
			Title:       hit.Metadata.Title,
			Snippet:     hit.Content,
			SourceName:  hit.Metadata.SourceName,
			URL:         hit.Metadata.URL,
			PublishedAt: hit.Metadata.PublishedAt,
		})
	}
	return docs
}

// buildQueries derives the search queries from the decomposition: the
// first sub-claim verbatim (narrow), the top keywords joined (broad), and
// the claim with a fact-check angle. Duplicates collapse, so a thin
// decomposition yields two queries instead of three.
func buildQueries(claim string, analysis *datatypes.ClaimAnalysis) []string {
	narrow := claim
	if analysis != nil && len(analysis.SubClaims) > 0 && strings.TrimSpace(analysis.SubClaims[0]) != "" {
		narrow = strings.TrimSpace(analysis.SubClaims[0])
	}

	broad := claim
	if analysis != nil && len(analysis.Keywords) > 0 {
		kw := analysis.Keywords
		if len(kw) > broadKeywordCount {
			kw = kw[:broadKeywordCount]
		}
		broad = strings.Join(kw, " ")
	}

	candidates := []string{narrow, broad, claim + " fact check"}
	seen := make(map[string]struct{}, maxResearchQueries)
	queries := make([]string, 0, maxResearchQueries)
	for _, q := range candidates {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		queries = append(queries, q)
		if len(queries) == maxResearchQueries {
			break
		}
	}
	return queries
}
