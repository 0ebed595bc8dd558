// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Mayuresh1004/TruthSpotter/services/llm"
	"github.com/Mayuresh1004/TruthSpotter/services/verifier/datatypes"
)

const (
	confidenceBase        = 70
	confidencePerEvidence = 5
	confidenceCeiling     = 95
	inconclusiveBase      = 40
	inconclusiveCeiling   = 60
	weakEvidenceThreshold = 2
)

// Synthesizer composes the final VerificationResult from the adjudication
// and curated evidence.
//
// # Description
//
// The verdict maps deterministically onto the result contract: SUPPORTED
// verifies the claim with confidence scaling from 70 toward 95 as evidence
// accumulates, REFUTED does the same with the claim marked unverified, and
// INCONCLUSIVE stays unverified with confidence capped at 60. Weak
// evidence (fewer than two items) forces confidence to 60 or below and at
// least MEDIUM risk regardless of verdict.
//
// The user-facing summary starts from the adjudicator's reasoning. If it
// fails to cite any evidence by index, one optional refinement pass asks
// the model to rewrite it with a citation; refinement failure keeps the
// original summary. Synthesis itself cannot fail: any panic in result
// assembly degrades to a generic-caution fallback (confidence 50, MEDIUM).
//
// # Thread Safety
//
// Safe for concurrent use.
type Synthesizer struct {
	llm llm.Client
}

// NewSynthesizer creates a Synthesizer. Panics if client is nil.
func NewSynthesizer(client llm.Client) *Synthesizer {
	if client == nil {
		panic("pipeline: NewSynthesizer requires a non-nil llm client")
	}
	return &Synthesizer{llm: client}
}

// Synthesize builds the final result. It never returns an error.
func (s *Synthesizer) Synthesize(ctx context.Context, claim string, analysis *datatypes.ClaimAnalysis, evidence []datatypes.EvidenceDocument, adj datatypes.Adjudication, queries []string) (result *datatypes.VerificationResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("result synthesis panicked, returning fallback", "panic", r)
			result = FallbackResult(queries, evidence, "The verification pipeline could not complete normally. Treat this claim with caution until it can be re-checked.")
		}
	}()

	result = &datatypes.VerificationResult{
		Analysis:        analysisNarrative(analysis),
		Evidence:        evidence,
		SearchQueries:   queries,
		EvidenceSources: len(evidence),
	}

	switch adj.Verdict {
	case datatypes.VerdictSupported:
		result.IsVerified = true
		result.Confidence = scaledConfidence(len(evidence))
		result.RiskLevel = datatypes.RiskLow
	case datatypes.VerdictRefuted:
		result.IsVerified = false
		result.Confidence = scaledConfidence(len(evidence))
		result.RiskLevel = datatypes.RiskLow
	default:
		result.IsVerified = false
		result.Confidence = minInt(inconclusiveBase+confidencePerEvidence*len(evidence), inconclusiveCeiling)
		result.RiskLevel = datatypes.RiskMedium
	}

	if len(evidence) < weakEvidenceThreshold {
		if result.Confidence > inconclusiveCeiling {
			result.Confidence = inconclusiveCeiling
		}
		result.RiskLevel = datatypes.MaxRisk(result.RiskLevel, datatypes.RiskMedium)
	}
	if len(evidence) == 0 {
		result.RiskLevel = datatypes.RiskHigh
	}

	result.FactCheckSummary = s.summarize(ctx, adj, evidence)
	result.ClampConfidence()
	return result
}

// summarize turns the adjudication into the user-facing summary, refining
// once when it lacks an evidence citation.
func (s *Synthesizer) summarize(ctx context.Context, adj datatypes.Adjudication, evidence []datatypes.EvidenceDocument) string {
	summary := fmt.Sprintf("%s %s", verdictLead(adj.Verdict), adj.Reasoning)
	if len(evidence) == 0 || citesEvidence(summary) {
		return summary
	}
	refined, err := s.llm.Complete(ctx, refinePrompt(summary, evidence), llm.GenerationParams{
		Temperature: llm.Float32Ptr(0.2),
		MaxTokens:   llm.IntPtr(300),
	})
	refined = strings.TrimSpace(refined)
	if err != nil || refined == "" {
		if err != nil {
			slog.Warn("summary refinement failed, keeping original summary", "error", err)
		}
		return summary
	}
	return refined
}

func verdictLead(v datatypes.Verdict) string {
	switch v {
	case datatypes.VerdictSupported:
		return "The evidence supports this claim."
	case datatypes.VerdictRefuted:
		return "The evidence refutes this claim."
	default:
		return "The evidence is inconclusive for this claim."
	}
}

var citationRe = regexp.MustCompile(`\[\d+\]`)

// citesEvidence reports whether a summary cites at least one evidence item
// by bracketed index.
func citesEvidence(summary string) bool {
	return citationRe.MatchString(summary)
}

func analysisNarrative(analysis *datatypes.ClaimAnalysis) string {
	if analysis == nil {
		return ""
	}
	var b strings.Builder
	if len(analysis.SubClaims) == 1 {
		b.WriteString("The claim was checked as a single assertion.")
	} else {
		fmt.Fprintf(&b, "The claim was decomposed into %d checkable assertions.", len(analysis.SubClaims))
	}
	if analysis.Context != "" {
		b.WriteString(" ")
		b.WriteString(analysis.Context)
	}
	return b.String()
}

func scaledConfidence(evidenceCount int) int {
	return minInt(confidenceBase+confidencePerEvidence*evidenceCount, confidenceCeiling)
}

// FallbackResult is the deterministic degraded result used when synthesis
// fails or the run is cut off: unverified, confidence 50, MEDIUM risk,
// whatever evidence and queries were gathered so far attached.
func FallbackResult(queries []string, evidence []datatypes.EvidenceDocument, summary string) *datatypes.VerificationResult {
	return &datatypes.VerificationResult{
		IsVerified:       false,
		Confidence:       50,
		RiskLevel:        datatypes.RiskMedium,
		FactCheckSummary: summary,
		Evidence:         evidence,
		SearchQueries:    queries,
		EvidenceSources:  len(evidence),
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
