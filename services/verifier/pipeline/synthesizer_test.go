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
	"strings"
	"testing"

	"github.com/Mayuresh1004/TruthSpotter/services/verifier/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noRefineLLM(t *testing.T) *mockLLM {
	t.Helper()
	return &mockLLM{respond: func(prompt string) (string, error) {
		t.Fatalf("unexpected model call during synthesis: %s", prompt)
		return "", nil
	}}
}

func citedAdjudication(v datatypes.Verdict) datatypes.Adjudication {
	return datatypes.Adjudication{Verdict: v, Reasoning: "Items [1] and [2] agree on the outcome."}
}

func TestSynthesizeSupportedMapsToVerified(t *testing.T) {
	s := NewSynthesizer(noRefineLLM(t))
	evidence := sampleEvidence()

	result := s.Synthesize(context.Background(), "c", HeuristicAnalysis("c"), evidence, citedAdjudication(datatypes.VerdictSupported), []string{"q1", "q2"})
	require.NotNil(t, result)

	assert.True(t, result.IsVerified)
	assert.GreaterOrEqual(t, result.Confidence, 70)
	assert.LessOrEqual(t, result.Confidence, 95)
	assert.Equal(t, datatypes.RiskLow, result.RiskLevel)
	assert.Equal(t, len(evidence), result.EvidenceSources)
	assert.Equal(t, []string{"q1", "q2"}, result.SearchQueries)
}

func TestSynthesizeRefutedStaysUnverifiedWithHighConfidence(t *testing.T) {
	s := NewSynthesizer(noRefineLLM(t))

	result := s.Synthesize(context.Background(), "c", nil, sampleEvidence(), citedAdjudication(datatypes.VerdictRefuted), nil)
	assert.False(t, result.IsVerified)
	assert.GreaterOrEqual(t, result.Confidence, 70)
	assert.LessOrEqual(t, result.Confidence, 95)
}

func TestSynthesizeInconclusiveCapsConfidence(t *testing.T) {
	s := NewSynthesizer(noRefineLLM(t))

	result := s.Synthesize(context.Background(), "c", nil, sampleEvidence(), citedAdjudication(datatypes.VerdictInconclusive), nil)
	assert.False(t, result.IsVerified)
	assert.LessOrEqual(t, result.Confidence, 60)
	assert.Equal(t, datatypes.RiskMedium, result.RiskLevel)
}

func TestSynthesizeWeakEvidenceForcesCaution(t *testing.T) {
	s := NewSynthesizer(noRefineLLM(t))
	single := sampleEvidence()[:1]

	result := s.Synthesize(context.Background(), "c", nil, single, citedAdjudication(datatypes.VerdictSupported), nil)
	assert.True(t, result.IsVerified)
	assert.LessOrEqual(t, result.Confidence, 60)
	assert.Equal(t, datatypes.RiskMedium, result.RiskLevel)
}

func TestSynthesizeConfidenceScalesWithEvidence(t *testing.T) {
	s := NewSynthesizer(noRefineLLM(t))

	two := s.Synthesize(context.Background(), "c", nil, sampleEvidence(), citedAdjudication(datatypes.VerdictSupported), nil)

	var six []datatypes.EvidenceDocument
	for i := 0; i < 6; i++ {
		six = append(six, sampleEvidence()[0])
	}
	many := s.Synthesize(context.Background(), "c", nil, six, citedAdjudication(datatypes.VerdictSupported), nil)

	assert.Greater(t, many.Confidence, two.Confidence)
	assert.LessOrEqual(t, many.Confidence, 95)
}

func TestSynthesizeRefinesUncitedSummary(t *testing.T) {
	refined := "The evidence supports this claim, most recently [1] on 2025-06-14."
	mock := &mockLLM{respond: func(prompt string) (string, error) {
		if !strings.Contains(prompt, "Rewrite the fact-check summary") {
			return "", errors.New("unexpected prompt")
		}
		return refined, nil
	}}
	s := NewSynthesizer(mock)

	adj := datatypes.Adjudication{Verdict: datatypes.VerdictSupported, Reasoning: "Multiple recent reports agree."}
	result := s.Synthesize(context.Background(), "c", nil, sampleEvidence(), adj, nil)
	assert.Equal(t, refined, result.FactCheckSummary)
	assert.Equal(t, 1, mock.callCount())
}

func TestSynthesizeSkipsRefinementWhenAlreadyCited(t *testing.T) {
	s := NewSynthesizer(noRefineLLM(t))

	result := s.Synthesize(context.Background(), "c", nil, sampleEvidence(), citedAdjudication(datatypes.VerdictSupported), nil)
	assert.Contains(t, result.FactCheckSummary, "[1]")
}

func TestSynthesizeKeepsSummaryWhenRefinementFails(t *testing.T) {
	mock := &mockLLM{respond: func(string) (string, error) { return "", errors.New("model offline") }}
	s := NewSynthesizer(mock)

	adj := datatypes.Adjudication{Verdict: datatypes.VerdictSupported, Reasoning: "Multiple recent reports agree."}
	result := s.Synthesize(context.Background(), "c", nil, sampleEvidence(), adj, nil)
	assert.Contains(t, result.FactCheckSummary, "Multiple recent reports agree.")
}

func TestSynthesizeRefinementIsIdempotent(t *testing.T) {
	calls := 0
	mock := &mockLLM{respond: func(string) (string, error) {
		calls++
		return "Refined with citation [2].", nil
	}}
	s := NewSynthesizer(mock)

	adj := datatypes.Adjudication{Verdict: datatypes.VerdictSupported, Reasoning: "Reports agree."}
	first := s.Synthesize(context.Background(), "c", nil, sampleEvidence(), adj, nil)
	require.Equal(t, 1, calls)

	// A summary that already cites evidence is never rewritten again.
	adj.Reasoning = first.FactCheckSummary
	second := s.Synthesize(context.Background(), "c", nil, sampleEvidence(), adj, nil)
	assert.Equal(t, 1, calls)
	assert.Contains(t, second.FactCheckSummary, "[2]")
}

func TestSynthesizeNoEvidenceIsHighRisk(t *testing.T) {
	s := NewSynthesizer(noRefineLLM(t))

	result := s.Synthesize(context.Background(), "c", nil, nil, citedAdjudication(datatypes.VerdictInconclusive), []string{"q"})
	assert.False(t, result.IsVerified)
	assert.Equal(t, datatypes.RiskHigh, result.RiskLevel)
	assert.Zero(t, result.EvidenceSources)
}

func TestFallbackResult(t *testing.T) {
	result := FallbackResult([]string{"q"}, nil, "caution")
	assert.False(t, result.IsVerified)
	assert.Equal(t, 50, result.Confidence)
	assert.Equal(t, datatypes.RiskMedium, result.RiskLevel)
	assert.Equal(t, "caution", result.FactCheckSummary)
}

func TestAnalysisNarrative(t *testing.T) {
	assert.Empty(t, analysisNarrative(nil))

	one := analysisNarrative(&datatypes.ClaimAnalysis{SubClaims: []string{"a"}, Context: "About a thing."})
	assert.Contains(t, one, "single assertion")
	assert.Contains(t, one, "About a thing.")

	many := analysisNarrative(&datatypes.ClaimAnalysis{SubClaims: []string{"a", "b", "c"}})
	assert.Contains(t, many, "3 checkable assertions")
}
