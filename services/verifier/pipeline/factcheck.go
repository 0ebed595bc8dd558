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

	"github.com/Mayuresh1004/TruthSpotter/pkg/jsonextract"
	"github.com/Mayuresh1004/TruthSpotter/services/llm"
	"github.com/Mayuresh1004/TruthSpotter/services/verifier/datatypes"
)

// factCheckEvidenceCap bounds how many evidence snippets enter the prompt.
const factCheckEvidenceCap = 6

// neutralReasoning is the adjudication text when the model cannot be
// consulted or gives nothing usable.
const neutralReasoning = "The available evidence was not sufficient to reach a clear verdict on this claim."

// FactChecker adjudicates a claim against curated evidence.
//
// # Description
//
// The model sees the claim and the top evidence snippets, each indexed and
// dated, and must answer from that evidence alone, preferring recent and
// authoritative items when they conflict. The verdict is one of SUPPORTED,
// REFUTED, or INCONCLUSIVE; anything the model says outside that set, and
// any model or parse failure, lands on INCONCLUSIVE with neutral
// reasoning.
//
// # Thread Safety
//
// Safe for concurrent use.
type FactChecker struct {
	llm llm.Client
}

// NewFactChecker creates a FactChecker. Panics if client is nil.
func NewFactChecker(client llm.Client) *FactChecker {
	if client == nil {
		panic("pipeline: NewFactChecker requires a non-nil llm client")
	}
	return &FactChecker{llm: client}
}

// Check returns the adjudication for claim. It never returns an error;
// failures degrade to INCONCLUSIVE.
func (f *FactChecker) Check(ctx context.Context, claim string, evidence []datatypes.EvidenceDocument) datatypes.Adjudication {
	raw, err := f.llm.Complete(ctx, factCheckPrompt(claim, evidence, factCheckEvidenceCap), llm.GenerationParams{
		Temperature: llm.Float32Ptr(0.1),
		MaxTokens:   llm.IntPtr(600),
	})
	if err != nil {
		slog.Warn("fact-check completion failed, verdict inconclusive", "error", err)
		return inconclusive()
	}

	var parsed struct {
		Verdict   string `json:"verdict"`
		Reasoning string `json:"reasoning"`
	}
	if err := jsonextract.Unmarshal(raw, &parsed); err != nil {
		slog.Warn("fact-check output unparseable, verdict inconclusive", "error", err)
		return inconclusive()
	}

	adj := datatypes.Adjudication{
		Verdict:   normalizeVerdict(parsed.Verdict),
		Reasoning: strings.TrimSpace(parsed.Reasoning),
	}
	if adj.Reasoning == "" {
		adj.Reasoning = neutralReasoning
	}
	return adj
}

func inconclusive() datatypes.Adjudication {
	return datatypes.Adjudication{
		Verdict:   datatypes.VerdictInconclusive,
		Reasoning: neutralReasoning,
	}
}

// normalizeVerdict maps raw model output to a closed verdict set.
func normalizeVerdict(raw string) datatypes.Verdict {
	switch datatypes.Verdict(strings.ToUpper(strings.TrimSpace(raw))) {
	case datatypes.VerdictSupported:
		return datatypes.VerdictSupported
	case datatypes.VerdictRefuted:
		return datatypes.VerdictRefuted
	default:
		return datatypes.VerdictInconclusive
	}
}
