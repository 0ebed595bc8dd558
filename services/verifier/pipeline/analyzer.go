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
	"regexp"
	"strings"
	"time"

	"github.com/Mayuresh1004/TruthSpotter/pkg/jsonextract"
	"github.com/Mayuresh1004/TruthSpotter/pkg/retry"
	"github.com/Mayuresh1004/TruthSpotter/services/llm"
	"github.com/Mayuresh1004/TruthSpotter/services/verifier/datatypes"
)

const (
	analyzerAttempts     = 2
	analyzerInitialDelay = 500 * time.Millisecond
	heuristicKeywordCap  = 5
)

// Analyzer decomposes a claim into sub-claims, keywords, and structured
// context for the research stage.
//
// # Description
//
// The model is asked for a single JSON object. Raw output goes through the
// extraction chain in pkg/jsonextract, which recovers JSON from code
// fences, surrounding prose, and common truncation. If both attempts fail
// to yield parseable JSON, Analyze falls back to a deterministic heuristic
// decomposition so the pipeline always continues with something usable.
//
// # Thread Safety
//
// Safe for concurrent use.
type Analyzer struct {
	llm llm.Client
}

// NewAnalyzer creates an Analyzer. Panics if client is nil.
func NewAnalyzer(client llm.Client) *Analyzer {
	if client == nil {
		panic("pipeline: NewAnalyzer requires a non-nil llm client")
	}
	return &Analyzer{llm: client}
}

// Analyze returns the decomposition of claim. It never returns an error;
// model or parse failures degrade to HeuristicAnalysis.
func (a *Analyzer) Analyze(ctx context.Context, claim string) *datatypes.ClaimAnalysis {
	policy := retry.Policy{
		Attempts:     analyzerAttempts,
		InitialDelay: analyzerInitialDelay,
		Validate: func(out string) bool {
			return strings.Contains(out, "{")
		},
	}

	raw, err := retry.Do(ctx, policy, func(ctx context.Context) (string, error) {
		return a.llm.Complete(ctx, analyzePrompt(claim), llm.GenerationParams{
			Temperature: llm.Float32Ptr(0.1),
			MaxTokens:   llm.IntPtr(512),
		})
	})
	if err != nil {
		slog.Warn("claim analysis completion failed, using heuristic decomposition", "error", err)
		return HeuristicAnalysis(claim)
	}

	var analysis datatypes.ClaimAnalysis
	if err := jsonextract.Unmarshal(raw, &analysis); err != nil {
		slog.Warn("claim analysis output unparseable, using heuristic decomposition", "error", err)
		return HeuristicAnalysis(claim)
	}

	// Partial model output is topped up rather than discarded.
	if len(analysis.SubClaims) == 0 {
		analysis.SubClaims = []string{claim}
	}
	if len(analysis.Keywords) == 0 {
		analysis.Keywords = heuristicKeywords(claim)
	}
	return &analysis
}

// HeuristicAnalysis is the deterministic fallback decomposition: the claim
// itself as the only sub-claim, and its longer tokens as keywords.
func HeuristicAnalysis(claim string) *datatypes.ClaimAnalysis {
	return &datatypes.ClaimAnalysis{
		SubClaims: []string{claim},
		Keywords:  heuristicKeywords(claim),
		Context:   "Automatic decomposition was unavailable; verifying the claim as a whole.",
	}
}

var wordRe = regexp.MustCompile(`[a-zA-Z0-9]+`)

// heuristicKeywords takes the first few claim tokens longer than three
// characters, lowercased, duplicates removed.
func heuristicKeywords(claim string) []string {
	seen := make(map[string]struct{})
	var keywords []string
	for _, tok := range wordRe.FindAllString(claim, -1) {
		if len(tok) <= 3 {
			continue
		}
		word := strings.ToLower(tok)
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
		if len(keywords) == heuristicKeywordCap {
			break
		}
	}
	return keywords
}
