// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the request, response, and pipeline data shapes
// for the verifier service.
package datatypes

// EvidenceDocument is one retrieved text fragment with source metadata.
// Raw candidates are mutable until curated; documents surfaced in a
// VerificationResult are treated as immutable.
type EvidenceDocument struct {
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	SourceName  string `json:"sourceName"`
	URL         string `json:"url,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
}

// ScoredEvidence pairs a document with its curation scores. Derived, never
// persisted.
type ScoredEvidence struct {
	EvidenceDocument
	KeywordScore  float64 `json:"keywordScore"`
	RecencyWeight float64 `json:"recencyWeight"`
	CombinedScore float64 `json:"combinedScore"`
}

// ClaimAnalysis is the decomposition of a claim produced once per run by
// the analyzer and read-only afterward.
type ClaimAnalysis struct {
	SubClaims []string `json:"subClaims"`
	Keywords  []string `json:"keywords"`
	Context   string   `json:"context"`
	Entities  []string `json:"entities,omitempty"`
	Locations []string `json:"locations,omitempty"`
	Dates     []string `json:"dates,omitempty"`
	Numbers   []string `json:"numbers,omitempty"`
}
